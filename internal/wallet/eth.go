package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yolodolo42/starkacct/internal/stark"
)

// EthSigner signs with a secp256k1 key for Ethereum-signature account contracts.
// Signatures are [r.low, r.high, s.low, s.high, v] with v in {0, 1}.
type EthSigner struct {
	mu  sync.RWMutex
	key *ecdsa.PrivateKey // nil when locked
	pub *EthPublicKey
}

// EthPublicKey is an uncompressed secp256k1 point.
type EthPublicKey struct {
	key *ecdsa.PublicKey
}

// NewEthSigner parses a 32-byte secp256k1 scalar.
func NewEthSigner(key []byte) (*EthSigner, error) {
	k, err := crypto.ToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &EthSigner{
		key: k,
		pub: &EthPublicKey{key: &k.PublicKey},
	}, nil
}

func generateEthKey() ([]byte, error) {
	k, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return crypto.FromECDSA(k), nil
}

// PublicKey returns the signer's public key
func (s *EthSigner) PublicKey() PublicKey {
	return s.pub
}

// Sign signs the 32-byte big-endian encoding of hash.
func (s *EthSigner) Sign(hash *felt.Felt) ([]*felt.Felt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, ErrAccountLocked)
	}
	if hash == nil {
		return nil, fmt.Errorf("%w: nil hash", ErrSigning)
	}

	digest := hash.Bytes()
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	rLow, rHigh := stark.SplitUint256(new(big.Int).SetBytes(sig[:32]))
	sLow, sHigh := stark.SplitUint256(new(big.Int).SetBytes(sig[32:64]))
	v := new(felt.Felt).SetUint64(uint64(sig[64]))
	return []*felt.Felt{rLow, rHigh, sLow, sHigh, v}, nil
}

// Lock wipes the key. Safe to call more than once.
func (s *EthSigner) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.D.SetInt64(0)
		s.key = nil
	}
}

// LogValue keeps key material out of logs.
func (s *EthSigner) LogValue() slog.Value {
	return slog.GroupValue(slog.String("address", crypto.PubkeyToAddress(*s.pub.key).Hex()))
}

// Felts returns [x.low, x.high, y.low, y.high]
func (p *EthPublicKey) Felts() []*felt.Felt {
	xLow, xHigh := stark.SplitUint256(p.key.X)
	yLow, yHigh := stark.SplitUint256(p.key.Y)
	return []*felt.Felt{xLow, xHigh, yLow, yHigh}
}

// Verify checks a five-element signature as produced by EthSigner.Sign
func (p *EthPublicKey) Verify(hash *felt.Felt, signature []*felt.Felt) bool {
	if hash == nil || len(signature) != 5 {
		return false
	}
	r := stark.JoinUint256(signature[0], signature[1])
	s := stark.JoinUint256(signature[2], signature[3])
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return false
	}

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	digest := hash.Bytes()
	return crypto.VerifySignature(crypto.FromECDSAPub(p.key), digest[:], sig)
}
