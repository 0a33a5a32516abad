package wallet

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/stark"
)

// StarkSigner signs with a Stark-curve key. Signatures are [r, s].
type StarkSigner struct {
	// mu keeps Sign from racing with Lock, which wipes the key.
	mu  sync.RWMutex
	key *stark.PrivateKey
	pub *StarkPublicKey
}

// StarkPublicKey is the x coordinate of a Stark-curve public key.
type StarkPublicKey struct {
	key *stark.PublicKey
}

// NewStarkSigner parses a 32-byte big-endian scalar.
func NewStarkSigner(key []byte) (*StarkSigner, error) {
	k, err := stark.PrivateKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &StarkSigner{
		key: k,
		pub: &StarkPublicKey{key: k.PublicKey()},
	}, nil
}

func generateStarkKey() ([]byte, error) {
	k, err := stark.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return k.Bytes(), nil
}

// StarkPublicKeyFromFelt rebuilds a verifier from an account's published key.
func StarkPublicKeyFromFelt(x *felt.Felt) (*StarkPublicKey, error) {
	k, err := stark.PublicKeyFromX(x)
	if err != nil {
		return nil, err
	}
	return &StarkPublicKey{key: k}, nil
}

// PublicKey returns the signer's public key
func (s *StarkSigner) PublicKey() PublicKey {
	return s.pub
}

// Sign signs hash
func (s *StarkSigner) Sign(hash *felt.Felt) ([]*felt.Felt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, ErrAccountLocked)
	}
	r, sv, err := s.key.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return []*felt.Felt{r, sv}, nil
}

// Lock wipes the key. Safe to call more than once.
func (s *StarkSigner) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.Zero()
		s.key = nil
	}
}

// LogValue keeps key material out of logs.
func (s *StarkSigner) LogValue() slog.Value {
	return slog.GroupValue(slog.String("public_key", s.pub.key.X().String()))
}

// Felts returns [public_key]
func (p *StarkPublicKey) Felts() []*felt.Felt {
	return []*felt.Felt{p.key.X()}
}

// Verify checks an [r, s] signature
func (p *StarkPublicKey) Verify(hash *felt.Felt, signature []*felt.Felt) bool {
	if len(signature) != 2 {
		return false
	}
	return p.key.Verify(hash, signature[0], signature[1])
}
