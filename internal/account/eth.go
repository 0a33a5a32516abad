package account

import (
	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

// EthAccount is an account contract that verifies secp256k1 signatures.
// There is no canonical class for it, so its identity must record a class hash.
type EthAccount struct {
	*baseAccount
}

var _ Account = (*EthAccount)(nil)

type ethVariant struct{}

func (ethVariant) flavor() wallet.Flavor { return wallet.FlavorEth }

func (ethVariant) defaultClassHash() *felt.Felt { return nil }

// The constructor takes the public key as two uint256 coordinates, low limb first.
func (ethVariant) constructorCalldata(pub wallet.PublicKey) []*felt.Felt {
	return pub.Felts()
}

func newEthAccount(base *baseAccount) Account {
	base.variant = ethVariant{}
	return &EthAccount{baseAccount: base}
}
