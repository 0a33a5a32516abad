package wallet

import (
	"errors"

	"github.com/NethermindEth/juno/core/felt"
)

var (
	ErrSigning       = errors.New("signing failed")
	ErrAccountLocked = errors.New("account is locked")
	ErrInvalidKey    = errors.New("invalid private key")
)

// Signer produces account-contract signatures over a transaction hash.
// Implementations never expose or log their key material.
type Signer interface {
	// PublicKey returns the verification key the account contract is constructed with
	PublicKey() PublicKey

	// Sign signs a message hash; the signature length is scheme-defined
	Sign(hash *felt.Felt) ([]*felt.Felt, error)
}

// PublicKey is the public half of a Signer.
type PublicKey interface {
	// Felts returns the key as account constructor calldata
	Felts() []*felt.Felt

	// Verify reports whether signature is valid for hash under this key
	Verify(hash *felt.Felt, signature []*felt.Felt) bool
}

// Flavor identifies an account contract implementation and, with it, its signature scheme.
type Flavor string

const (
	FlavorOpenZeppelin Flavor = "openzeppelin"
	FlavorEth          Flavor = "eth"
)

// NewSigner builds the signer matching flavor from raw key bytes.
func NewSigner(flavor Flavor, key []byte) (Signer, error) {
	switch flavor {
	case FlavorOpenZeppelin:
		return NewStarkSigner(key)
	case FlavorEth:
		return NewEthSigner(key)
	default:
		return nil, errors.New("unsupported account flavor: " + string(flavor))
	}
}

// GenerateKey returns fresh raw key bytes for flavor.
func GenerateKey(flavor Flavor) ([]byte, error) {
	switch flavor {
	case FlavorOpenZeppelin:
		return generateStarkKey()
	case FlavorEth:
		return generateEthKey()
	default:
		return nil, errors.New("unsupported account flavor: " + string(flavor))
	}
}
