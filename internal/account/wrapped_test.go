package account

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/starkacct/internal/stark"
)

func TestWrappedMethod_MarshalJSON(t *testing.T) {
	w := newWrappedMethod(message{
		kind:     KindInvoke,
		sender:   feltOf(0xa),
		address:  feltOf(0xb),
		selector: feltOf(0x123),
		calldata: []*felt.Felt{feltOf(1), feltOf(2)},
		maxFee:   big.NewInt(1000),
		version:  1,
		chainID:  sepoliaChainID,
	}, 5)
	w.dryRun = true

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "invoke", got["type"])
	assert.Equal(t, "0xa", got["sender_address"])
	assert.Equal(t, "0xb", got["contract_address"])
	assert.Equal(t, "0x123", got["entry_point_selector"])
	assert.Equal(t, []any{"0x1", "0x2"}, got["calldata"])
	assert.Equal(t, []any{"0x1", "0xb", "0x123", "0x2", "0x1", "0x2"}, got["execute_calldata"])
	assert.Equal(t, "0x3e8", got["max_fee"])
	assert.Equal(t, "0x5", got["nonce"])
	assert.Equal(t, "0x1", got["version"])
	assert.Equal(t, w.Hash().String(), got["transaction_hash"])
	assert.Equal(t, []any{}, got["signature"])
	assert.Equal(t, true, got["dry_run"])
}

func TestWrappedMethod_ExecuteCalldata(t *testing.T) {
	w := newWrappedMethod(message{
		kind:     KindInvoke,
		sender:   feltOf(0xa),
		address:  feltOf(0xb),
		selector: feltOf(0x123),
		calldata: []*felt.Felt{feltOf(1), feltOf(2), feltOf(3)},
		maxFee:   big.NewInt(1000),
		version:  1,
		chainID:  sepoliaChainID,
	}, 5)

	assert.Equal(t, []*felt.Felt{feltOf(1), feltOf(0xb), feltOf(0x123), feltOf(3), feltOf(1), feltOf(2), feltOf(3)},
		w.ExecuteCalldata())

	want := stark.TransactionHash(stark.PrefixInvoke, feltOf(1), feltOf(0xa), new(felt.Felt),
		w.ExecuteCalldata(), feltOf(1000), sepoliaChainID, feltOf(5))
	assert.True(t, want.Equal(w.Hash()))
}

func TestWrappedMethod_DeclareHash(t *testing.T) {
	// mainnet declare v1 0x1b4d9f09276629d496af1af8ff00173c11ff146affacb1b5c858d7aa89001ae
	sender, err := stark.ParseFelt("0x39291faa79897de1fd6fb1a531d144daa1590d058358171b83eadb3ceafed8")
	require.NoError(t, err)
	classHash, err := stark.ParseFelt("0x7aed6898458c4ed1d720d43e342381b25668ec7c3e8837f761051bf4d655e54")
	require.NoError(t, err)
	maxFee, ok := new(big.Int).SetString("f6dbd653833", 16)
	require.True(t, ok)

	w := newWrappedMethod(message{
		kind:     KindDeclare,
		sender:   sender,
		address:  sender,
		selector: new(felt.Felt),
		calldata: []*felt.Felt{classHash},
		maxFee:   maxFee,
		version:  1,
		chainID:  stark.ShortString("SN_MAIN"),
	}, 5)

	assert.Equal(t, "0x1b4d9f09276629d496af1af8ff00173c11ff146affacb1b5c858d7aa89001ae", w.Hash().String())
	assert.Equal(t, w.Calldata(), w.ExecuteCalldata())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "invoke", KindInvoke.String())
	assert.Equal(t, "declare", KindDeclare.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
