package account

import (
	"context"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/chain"
	"github.com/yolodolo42/starkacct/internal/class"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

// NonceReader reads an account's current nonce from the network.
type NonceReader interface {
	Nonce(ctx context.Context, address *felt.Felt) (uint64, error)
}

// NetworkClient is the part of the RPC client accounts call into.
// *chain.Endpoint implements it.
type NetworkClient interface {
	NonceReader
	AddDeployAccountTransaction(ctx context.Context, tx *chain.DeployAccountTransaction) (*chain.DeployAccountResult, error)
}

// ClassHasher computes the canonical hash of a contract class.
type ClassHasher interface {
	ClassHash(ctx context.Context, c *class.ContractClass) (*felt.Felt, error)
}

// Keyring resolves account names to identities and key material.
// *wallet.Keyring implements it.
type Keyring interface {
	Lookup(network, name string) (*wallet.Identity, error)
	Save(network string, id *wallet.Identity) error
	Key(network, name string) ([]byte, error)
	PutKey(network, name string, key []byte) error
}

// Context binds an account to one network.
type Context struct {
	// Network names the network in the keyring, e.g. "sepolia"
	Network string
	// ChainID is hashed into every message unless a call overrides it
	ChainID *felt.Felt
	// Client is used by Deploy and by LiveNonce; signing never touches it directly
	Client NetworkClient
}

// NewContext builds a Context for a configured network.
func NewContext(name string, network *chain.Network, client NetworkClient) Context {
	return Context{Network: name, ChainID: network.ChainID, Client: client}
}
