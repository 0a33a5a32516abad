package class

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/starkacct/internal/testutil"
)

const sampleClass = `{
  "sierra_program": ["0x1", "0x2", "0x3"],
  "contract_class_version": "0.1.0",
  "entry_points_by_type": {
    "EXTERNAL": [{"selector": "0x83afd3f4caedc6eebf44246fe54e38c95e3179a5ec9ea81740eca5b482d12e", "function_idx": 0}],
    "L1_HANDLER": [],
    "CONSTRUCTOR": [{"selector": "0x28ffe4ff0f226a9107253e17a904099aa4f63a02a5621de0576e5aa71bc5194", "function_idx": 1}]
  },
  "abi": [{"type": "function", "name": "transfer"}]
}`

func TestParse(t *testing.T) {
	t.Run("parses sierra class", func(t *testing.T) {
		c, err := Parse([]byte(sampleClass))
		require.NoError(t, err)
		assert.Len(t, c.SierraProgram, 3)
		assert.Len(t, c.EntryPointsByType.External, 1)
		assert.Len(t, c.EntryPointsByType.Constructor, 1)
		assert.Equal(t, uint64(1), c.EntryPointsByType.Constructor[0].FunctionIdx)
	})

	t.Run("rejects legacy classes", func(t *testing.T) {
		_, err := Parse([]byte(`{"program": {}, "entry_points_by_type": {}}`))
		assert.ErrorIs(t, err, ErrUnsupportedClass)
	})

	t.Run("rejects empty program", func(t *testing.T) {
		_, err := Parse([]byte(`{"sierra_program": []}`))
		assert.ErrorIs(t, err, ErrInvalidClass)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := Parse([]byte(`{`))
		assert.ErrorIs(t, err, ErrInvalidClass)
	})

	t.Run("defaults version", func(t *testing.T) {
		c, err := Parse([]byte(`{"sierra_program": ["0x1"]}`))
		require.NoError(t, err)
		assert.Equal(t, "0.1.0", c.ContractClassVersion)
	})
}

func TestLoad(t *testing.T) {
	dir := testutil.TempDir(t)
	path := testutil.WriteFile(t, dir, "class.json", []byte(sampleClass))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.SierraProgram, 3)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestABIString(t *testing.T) {
	t.Run("string abi is unquoted", func(t *testing.T) {
		c := &ContractClass{ABI: []byte(`"[{\"type\":\"function\"}]"`)}
		s, err := c.ABIString()
		require.NoError(t, err)
		assert.Equal(t, `[{"type":"function"}]`, s)
	})

	t.Run("array abi is compacted", func(t *testing.T) {
		c := &ContractClass{ABI: []byte("[ {\"type\" : \"function\"} ]")}
		s, err := c.ABIString()
		require.NoError(t, err)
		assert.Equal(t, `[{"type":"function"}]`, s)
	})

	t.Run("missing abi is empty", func(t *testing.T) {
		s, err := (&ContractClass{}).ABIString()
		require.NoError(t, err)
		assert.Empty(t, s)
	})
}

func TestHasher_ClassHash(t *testing.T) {
	ctx := context.Background()
	c, err := Parse([]byte(sampleClass))
	require.NoError(t, err)
	h := NewHasher()

	t.Run("integration network class", func(t *testing.T) {
		const want = "0x4e70b19333ae94bd958625f7b61ce9eec631653597e68645e13780061b2136c"
		published, err := Load(filepath.Join("testdata", want+".json"))
		require.NoError(t, err)

		got, err := h.ClassHash(ctx, published)
		require.NoError(t, err)
		assert.Equal(t, want, got.String())
	})

	t.Run("changes with the program", func(t *testing.T) {
		first, err := h.ClassHash(ctx, c)
		require.NoError(t, err)

		modified := *c
		modified.SierraProgram = append([]*felt.Felt{}, c.SierraProgram...)
		modified.SierraProgram[0] = new(felt.Felt).SetUint64(9)
		second, err := h.ClassHash(ctx, &modified)
		require.NoError(t, err)
		assert.False(t, first.Equal(second))
	})

	t.Run("honors cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := h.ClassHash(cctx, c)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("rejects empty class", func(t *testing.T) {
		_, err := h.ClassHash(ctx, &ContractClass{})
		assert.ErrorIs(t, err, ErrInvalidClass)
	})
}
