package stark

import (
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"math/big"

	"github.com/NethermindEth/juno/core/crypto"
	"github.com/NethermindEth/juno/core/felt"
	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/ecdsa"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
)

var (
	ErrInvalidKey       = errors.New("invalid stark private key")
	ErrInvalidPublicKey = errors.New("invalid stark public key")
	ErrHashOutOfRange   = errors.New("message hash must be below 2^251")
)

var (
	curveOrder = fr.Modulus()
	fieldPrime = fp.Modulus()

	// Message hashes, r and w must all lie below 2^251.
	valueBound = new(big.Int).Lsh(big.NewInt(1), 251)
)

// PrivateKey is a scalar on the Stark curve.
type PrivateKey struct {
	key *ecdsa.PrivateKey
	pub PublicKey
}

// PublicKey is a point on the Stark curve. Accounts publish only its x coordinate.
type PublicKey struct {
	key crypto.PublicKey
}

// GenerateKey draws a private key from [1, n). A nil reader means crypto/rand.
func GenerateKey(r io.Reader) (*PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	k, err := ecdsa.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	return wrapPrivateKey(k), nil
}

// PrivateKeyFromBytes parses a big-endian scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) == 0 || len(b) > fr.Bytes {
		return nil, ErrInvalidKey
	}
	d := new(big.Int).SetBytes(b)
	if d.Sign() == 0 || d.Cmp(curveOrder) >= 0 {
		return nil, ErrInvalidKey
	}

	var pub starkcurve.G1Affine
	pub.ScalarMultiplicationBase(d)

	buf := make([]byte, 0, fp.Bytes+fr.Bytes)
	compressed := pub.Bytes()
	buf = append(buf, compressed[:]...)
	buf = append(buf, d.FillBytes(make([]byte, fr.Bytes))...)

	k := new(ecdsa.PrivateKey)
	if _, err := k.SetBytes(buf); err != nil {
		return nil, ErrInvalidKey
	}
	return wrapPrivateKey(k), nil
}

func wrapPrivateKey(k *ecdsa.PrivateKey) *PrivateKey {
	return &PrivateKey{
		key: k,
		pub: PublicKey{key: crypto.PublicKey(k.PublicKey)},
	}
}

// Bytes returns the 32-byte big-endian scalar.
func (k *PrivateKey) Bytes() []byte {
	if k.key == nil {
		return make([]byte, fr.Bytes)
	}
	b := k.key.Bytes()
	return b[len(b)-fr.Bytes:]
}

// PublicKey returns the matching public key.
func (k *PrivateKey) PublicKey() *PublicKey {
	pub := k.pub
	return &pub
}

// LogValue keeps the scalar out of structured logs.
func (k *PrivateKey) LogValue() slog.Value {
	return slog.StringValue("***REDACTED***")
}

// Zero wipes the scalar. The key is unusable afterwards.
func (k *PrivateKey) Zero() {
	if k.key == nil {
		return
	}
	buf := k.key.Bytes()
	clear(buf[len(buf)-fr.Bytes:])
	_, _ = k.key.SetBytes(buf)
	k.key = nil
}

// Sign produces (r, s) over hash. The nonce is drawn fresh per attempt, and
// attempts whose r or w = 1/s fall outside [1, 2^251) are discarded.
func (k *PrivateKey) Sign(hash *felt.Felt) (r, s *felt.Felt, err error) {
	if k.key == nil {
		return nil, nil, ErrInvalidKey
	}
	if hash.BigInt(new(big.Int)).Cmp(valueBound) >= 0 {
		return nil, nil, ErrHashOutOfRange
	}
	msg := hash.Bytes()

	for {
		sig, err := k.key.Sign(msg[:], nil)
		if err != nil {
			return nil, nil, err
		}
		rv := new(big.Int).SetBytes(sig[:fr.Bytes])
		sv := new(big.Int).SetBytes(sig[fr.Bytes:])
		if rv.Cmp(valueBound) >= 0 {
			continue
		}
		if w := new(big.Int).ModInverse(sv, curveOrder); w == nil || w.Cmp(valueBound) >= 0 {
			continue
		}
		return new(felt.Felt).SetBigInt(rv), new(felt.Felt).SetBigInt(sv), nil
	}
}

// PublicKeyFromX rebuilds a public key from its x coordinate. The y sign is
// not recoverable; Verify accepts either.
func PublicKeyFromX(x *felt.Felt) (*PublicKey, error) {
	if x == nil {
		return nil, ErrInvalidPublicKey
	}
	var y fp.Element
	y.Square(x.Impl()).Mul(&y, x.Impl()).Add(&y, x.Impl())
	_, b := starkcurve.CurveCoefficients()
	y.Add(&y, &b)
	if y.Sqrt(&y) == nil {
		return nil, ErrInvalidPublicKey
	}
	return &PublicKey{key: crypto.NewPublicKey(x)}, nil
}

// X returns the x coordinate, the account contract's public key.
func (p *PublicKey) X() *felt.Felt {
	return felt.NewFelt(&p.key.A.X)
}

// Verify checks (r, s) against hash for this point, or for either point
// sharing its x coordinate when the key was rebuilt from x alone.
func (p *PublicKey) Verify(hash, r, s *felt.Felt) bool {
	if hash == nil || r == nil || s == nil {
		return false
	}
	rv := r.BigInt(new(big.Int))
	sv := s.BigInt(new(big.Int))
	if hash.BigInt(new(big.Int)).Cmp(valueBound) >= 0 || rv.Sign() == 0 || rv.Cmp(valueBound) >= 0 {
		return false
	}
	if sv.Sign() == 0 || sv.Cmp(curveOrder) >= 0 {
		return false
	}
	if w := new(big.Int).ModInverse(sv, curveOrder); w == nil || w.Cmp(valueBound) >= 0 {
		return false
	}

	// Verify caches a recovered y on the receiver.
	key := p.key
	ok, err := key.Verify(&crypto.Signature{R: *r, S: *s}, hash)
	return err == nil && ok
}
