package account

import (
	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/stark"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

// OpenZeppelinClassHash is the OpenZeppelin account class declared on mainnet and sepolia.
var OpenZeppelinClassHash = mustParse("0x061dac032f228abef9c6626f995015233097ae253a7f72d68552db02f2971b8f")

// OpenZeppelinAccount is an OpenZeppelin account contract controlled by a Stark key.
type OpenZeppelinAccount struct {
	*baseAccount
}

var _ Account = (*OpenZeppelinAccount)(nil)

type openZeppelin struct{}

func (openZeppelin) flavor() wallet.Flavor { return wallet.FlavorOpenZeppelin }

func (openZeppelin) defaultClassHash() *felt.Felt {
	h := *OpenZeppelinClassHash
	return &h
}

// The constructor takes the public key as its only argument.
func (openZeppelin) constructorCalldata(pub wallet.PublicKey) []*felt.Felt {
	return pub.Felts()[:1]
}

func newOpenZeppelinAccount(base *baseAccount) Account {
	base.variant = openZeppelin{}
	return &OpenZeppelinAccount{baseAccount: base}
}

func mustParse(s string) *felt.Felt {
	f, err := stark.ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}
