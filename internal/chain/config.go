package chain

import (
	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/stark"
)

// Network is the context an account is bound to.
// Invariant: ChainID and ChainIDName must always encode the same value.
// ChainIDName exists for YAML serialization; ChainID is hashed into every transaction.
type Network struct {
	Name        string     `yaml:"name"`
	ChainID     *felt.Felt `yaml:"-"`
	ChainIDName string     `yaml:"chain_id"`
	RPCURLs     []string   `yaml:"rpc_urls"`
	ExplorerURL string     `yaml:"explorer_url"`
	FeeToken    *felt.Felt `yaml:"-"`
	IsTestnet   bool       `yaml:"is_testnet"`
}

var (
	// StrkToken is the STRK fee token, deployed at the same address on mainnet and sepolia.
	StrkToken = mustFelt("0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
	// EthToken is the legacy ETH fee token.
	EthToken = mustFelt("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
)

func mustFelt(s string) *felt.Felt {
	f, err := stark.ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}

// NewNetwork builds a network from a short-string chain id such as "SN_SEPOLIA".
func NewNetwork(name, chainID string, rpcURLs ...string) *Network {
	return &Network{
		Name:        name,
		ChainID:     stark.ShortString(chainID),
		ChainIDName: chainID,
		RPCURLs:     rpcURLs,
		FeeToken:    StrkToken,
	}
}

// DefaultNetworks returns the built-in network configurations
func DefaultNetworks() map[string]*Network {
	return map[string]*Network{
		"mainnet": {
			Name:        "Starknet Mainnet",
			ChainID:     stark.ShortString("SN_MAIN"),
			ChainIDName: "SN_MAIN",
			RPCURLs:     []string{"https://starknet-mainnet.public.blastapi.io/rpc/v0_7", "https://free-rpc.nethermind.io/mainnet-juno"},
			ExplorerURL: "https://voyager.online",
			FeeToken:    StrkToken,
			IsTestnet:   false,
		},
		"sepolia": {
			Name:        "Starknet Sepolia Testnet",
			ChainID:     stark.ShortString("SN_SEPOLIA"),
			ChainIDName: "SN_SEPOLIA",
			RPCURLs:     []string{"https://starknet-sepolia.public.blastapi.io/rpc/v0_7", "https://free-rpc.nethermind.io/sepolia-juno"},
			ExplorerURL: "https://sepolia.voyager.online",
			FeeToken:    StrkToken,
			IsTestnet:   true,
		},
		"devnet": {
			Name:        "Local Devnet",
			ChainID:     stark.ShortString("SN_SEPOLIA"),
			ChainIDName: "SN_SEPOLIA",
			RPCURLs:     []string{"http://127.0.0.1:5050/rpc"},
			ExplorerURL: "http://127.0.0.1:5050",
			FeeToken:    StrkToken,
			IsTestnet:   true,
		},
	}
}
