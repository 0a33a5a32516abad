package stark

import (
	"math/big"

	"github.com/NethermindEth/juno/core/crypto"
	"github.com/NethermindEth/juno/core/felt"
)

// TxPrefix is the domain separator hashed first into a transaction hash.
type TxPrefix string

const (
	PrefixInvoke        TxPrefix = "invoke"
	PrefixDeclare       TxPrefix = "declare"
	PrefixDeployAccount TxPrefix = "deploy_account"
)

// Felt returns the prefix encoded as a short string.
func (p TxPrefix) Felt() *felt.Felt {
	return ShortString(string(p))
}

var (
	contractAddressPrefix = ShortString("STARKNET_CONTRACT_ADDRESS")

	// L2 addresses are reduced into [0, 2^251 - 256).
	addressBound = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 251), big.NewInt(256))
)

// HashOnElements is Pedersen hash chaining over elems, finished with the element count.
func HashOnElements(elems ...*felt.Felt) *felt.Felt {
	return crypto.PedersenArray(elems...)
}

// ContractAddress derives the address a deployment of classHash will land on.
// A zero deployer means the address does not depend on who deploys.
func ContractAddress(deployer, salt, classHash *felt.Felt, constructorCalldata []*felt.Felt) *felt.Felt {
	if deployer == nil {
		deployer = new(felt.Felt)
	}
	h := HashOnElements(
		contractAddressPrefix,
		deployer,
		salt,
		classHash,
		HashOnElements(constructorCalldata...),
	)
	v := h.BigInt(new(big.Int))
	v.Mod(v, addressBound)
	return new(felt.Felt).SetBigInt(v)
}

// TransactionHash computes the common transaction hash
//
//	H(prefix, version, address, selector, H(calldata), max_fee, chain_id, ...additional)
func TransactionHash(prefix TxPrefix, version, address, selector *felt.Felt, calldata []*felt.Felt, maxFee, chainID *felt.Felt, additional ...*felt.Felt) *felt.Felt {
	elems := make([]*felt.Felt, 0, 7+len(additional))
	elems = append(elems,
		prefix.Felt(),
		version,
		address,
		selector,
		HashOnElements(calldata...),
		maxFee,
		chainID,
	)
	elems = append(elems, additional...)
	return HashOnElements(elems...)
}
