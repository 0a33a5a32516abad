package stark

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/crypto"
)

// Entry points that the sequencer routes by a zero selector.
const (
	DefaultEntryPoint   = "__default__"
	L1DefaultEntryPoint = "__l1_default__"
)

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// ShortString encodes an ASCII string of at most 31 characters as a field element.
func ShortString(s string) *felt.Felt {
	return new(felt.Felt).SetBytes([]byte(s))
}

// Keccak returns starknet_keccak: keccak256 truncated to its low 250 bits.
func Keccak(data []byte) *felt.Felt {
	h := crypto.Keccak256(data)
	h[0] &= 0x03
	return new(felt.Felt).SetBytes(h)
}

// SelectorFromName returns the entry point selector for a function name.
func SelectorFromName(name string) *felt.Felt {
	if name == DefaultEntryPoint || name == L1DefaultEntryPoint {
		return new(felt.Felt)
	}
	return Keccak([]byte(name))
}

// ParseFelt parses a decimal or 0x-prefixed hex string.
func ParseFelt(s string) (*felt.Felt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty field element")
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid field element %q", s)
	}
	return FeltFromBig(v)
}

// FeltFromBig converts a non-negative integer below the field prime.
func FeltFromBig(v *big.Int) (*felt.Felt, error) {
	if v == nil || v.Sign() < 0 {
		return nil, fmt.Errorf("field element must be non-negative")
	}
	if v.Cmp(fieldPrime) >= 0 {
		return nil, fmt.Errorf("value %s exceeds field prime", v.Text(16))
	}
	return new(felt.Felt).SetBigInt(v), nil
}

// SplitUint256 splits a 256-bit integer into its (low, high) 128-bit limbs.
func SplitUint256(v *big.Int) (low, high *felt.Felt) {
	lo := new(big.Int).Mod(v, two128)
	hi := new(big.Int).Rsh(v, 128)
	return new(felt.Felt).SetBigInt(lo), new(felt.Felt).SetBigInt(hi)
}

// JoinUint256 is the inverse of SplitUint256.
func JoinUint256(low, high *felt.Felt) *big.Int {
	v := high.BigInt(new(big.Int))
	v.Lsh(v, 128)
	return v.Add(v, low.BigInt(new(big.Int)))
}
