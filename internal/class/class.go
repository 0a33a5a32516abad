// Package class loads Sierra contract classes and computes their class hash.
package class

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/NethermindEth/juno/core/crypto"
	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/stark"
)

var (
	ErrUnsupportedClass = errors.New("unsupported contract class")
	ErrInvalidClass     = errors.New("invalid contract class")
)

// EntryPoint maps a selector to a Sierra function index.
type EntryPoint struct {
	Selector    *felt.Felt `json:"selector"`
	FunctionIdx uint64     `json:"function_idx"`
}

// EntryPointsByType groups entry points by how they are invoked.
type EntryPointsByType struct {
	External    []EntryPoint `json:"EXTERNAL"`
	L1Handler   []EntryPoint `json:"L1_HANDLER"`
	Constructor []EntryPoint `json:"CONSTRUCTOR"`
}

// ContractClass is a Sierra class as emitted by the compiler.
type ContractClass struct {
	SierraProgram        []*felt.Felt      `json:"sierra_program"`
	ContractClassVersion string            `json:"contract_class_version"`
	EntryPointsByType    EntryPointsByType `json:"entry_points_by_type"`
	ABI                  json.RawMessage   `json:"abi"`
}

// Parse decodes a class from JSON.
func Parse(data []byte) (*ContractClass, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClass, err)
	}
	if _, legacy := fields["program"]; legacy {
		return nil, fmt.Errorf("%w: legacy Cairo 0 classes cannot be declared", ErrUnsupportedClass)
	}

	var c ContractClass
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClass, err)
	}
	if len(c.SierraProgram) == 0 {
		return nil, fmt.Errorf("%w: empty sierra_program", ErrInvalidClass)
	}
	if c.ContractClassVersion == "" {
		c.ContractClassVersion = "0.1.0"
	}
	return &c, nil
}

// Load reads and parses a class file.
func Load(path string) (*ContractClass, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract class: %w", err)
	}
	return Parse(data)
}

// ABIString returns the ABI as the string that is hashed. Compilers emit it
// either as a JSON string or as a JSON array; arrays are hashed compacted.
func (c *ContractClass) ABIString() (string, error) {
	raw := bytes.TrimSpace(c.ABI)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: abi: %v", ErrInvalidClass, err)
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("%w: abi: %v", ErrInvalidClass, err)
	}
	return buf.String(), nil
}

// Hasher computes Sierra class hashes locally.
type Hasher struct{}

// NewHasher returns a Hasher
func NewHasher() *Hasher {
	return &Hasher{}
}

// ClassHash returns
//
//	poseidon("CONTRACT_CLASS_V" + version, H(external), H(l1_handler), H(constructor), keccak(abi), H(program))
func (h *Hasher) ClassHash(ctx context.Context, c *ContractClass) (*felt.Felt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil || len(c.SierraProgram) == 0 {
		return nil, fmt.Errorf("%w: empty sierra_program", ErrInvalidClass)
	}
	abi, err := c.ABIString()
	if err != nil {
		return nil, err
	}

	version := c.ContractClassVersion
	if version == "" {
		version = "0.1.0"
	}

	return crypto.PoseidonArray(
		stark.ShortString("CONTRACT_CLASS_V"+version),
		hashEntryPoints(c.EntryPointsByType.External),
		hashEntryPoints(c.EntryPointsByType.L1Handler),
		hashEntryPoints(c.EntryPointsByType.Constructor),
		stark.Keccak([]byte(abi)),
		crypto.PoseidonArray(c.SierraProgram...),
	), nil
}

func hashEntryPoints(eps []EntryPoint) *felt.Felt {
	elems := make([]*felt.Felt, 0, 2*len(eps))
	for _, ep := range eps {
		sel := ep.Selector
		if sel == nil {
			sel = new(felt.Felt)
		}
		elems = append(elems, sel, new(felt.Felt).SetUint64(ep.FunctionIdx))
	}
	return crypto.PoseidonArray(elems...)
}
