package account

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/yolodolo42/starkacct/internal/stark"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

// Kind is the transaction type a WrappedMethod was hashed as.
type Kind uint8

const (
	KindInvoke Kind = iota
	KindDeclare
)

func (k Kind) String() string {
	switch k {
	case KindInvoke:
		return "invoke"
	case KindDeclare:
		return "declare"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) prefix() stark.TxPrefix {
	if k == KindDeclare {
		return stark.PrefixDeclare
	}
	return stark.PrefixInvoke
}

// WrappedMethod is a signed (or dry-run) transaction ready for submission.
// Its fields are fixed at construction; accessors return copies.
type WrappedMethod struct {
	kind      Kind
	sender    felt.Felt
	address   felt.Felt
	selector  felt.Felt
	calldata  []felt.Felt
	maxFee    big.Int
	nonce     uint64
	version   uint64
	chainID   felt.Felt
	hash      felt.Felt
	signature []felt.Felt
	dryRun    bool
}

// message is everything that goes into a WrappedMethod's hash.
type message struct {
	kind     Kind
	sender   *felt.Felt
	address  *felt.Felt
	selector *felt.Felt
	calldata []*felt.Felt
	maxFee   *big.Int
	version  uint64
	chainID  *felt.Felt
}

func newWrappedMethod(m message, nonce uint64) *WrappedMethod {
	w := &WrappedMethod{
		kind:     m.kind,
		sender:   *m.sender,
		address:  *m.address,
		selector: *m.selector,
		calldata: make([]felt.Felt, len(m.calldata)),
		nonce:    nonce,
		version:  m.version,
		chainID:  *m.chainID,
	}
	for i, c := range m.calldata {
		w.calldata[i] = *c
	}
	w.maxFee.Set(m.maxFee)
	w.hash = *w.MessageHash()
	return w
}

func (w *WrappedMethod) Kind() Kind { return w.kind }

// Sender is the account the transaction is sent from.
func (w *WrappedMethod) Sender() *felt.Felt {
	f := w.sender
	return &f
}

// Address is the contract being called. For declarations it equals Sender.
func (w *WrappedMethod) Address() *felt.Felt {
	f := w.address
	return &f
}

func (w *WrappedMethod) Selector() *felt.Felt {
	f := w.selector
	return &f
}

// Calldata returns a fresh copy of the call arguments.
func (w *WrappedMethod) Calldata() []*felt.Felt {
	return copyFelts(w.calldata)
}

func (w *WrappedMethod) MaxFee() *big.Int {
	return new(big.Int).Set(&w.maxFee)
}

func (w *WrappedMethod) Nonce() uint64   { return w.nonce }
func (w *WrappedMethod) Version() uint64 { return w.version }

func (w *WrappedMethod) ChainID() *felt.Felt {
	f := w.chainID
	return &f
}

// Hash is the message hash computed when the method was built.
func (w *WrappedMethod) Hash() *felt.Felt {
	f := w.hash
	return &f
}

// Signature is empty for dry runs.
func (w *WrappedMethod) Signature() []*felt.Felt {
	return copyFelts(w.signature)
}

// DryRun reports whether the method was built without signing.
func (w *WrappedMethod) DryRun() bool { return w.dryRun }

// ExecuteCalldata is what the account's __execute__ entry point receives for
// an invoke: one call encoded as [1, address, selector, len(calldata), ...calldata].
// Declarations are not wrapped and return Calldata.
func (w *WrappedMethod) ExecuteCalldata() []*felt.Felt {
	if w.kind != KindInvoke {
		return w.Calldata()
	}
	out := make([]*felt.Felt, 0, 4+len(w.calldata))
	out = append(out,
		new(felt.Felt).SetUint64(1),
		w.Address(),
		w.Selector(),
		new(felt.Felt).SetUint64(uint64(len(w.calldata))),
	)
	return append(out, copyFelts(w.calldata)...)
}

// MessageHash recomputes the transaction hash from the method's fields. The
// hash is taken over the sender and its execute calldata, so it binds both
// the signing account and the called contract.
func (w *WrappedMethod) MessageHash() *felt.Felt {
	maxFee := new(felt.Felt).SetBigInt(&w.maxFee)
	return stark.TransactionHash(
		w.kind.prefix(),
		new(felt.Felt).SetUint64(w.version),
		w.Sender(),
		new(felt.Felt),
		w.ExecuteCalldata(),
		maxFee,
		w.ChainID(),
		new(felt.Felt).SetUint64(w.nonce),
	)
}

// Verify reports whether the signature is valid for the method's fields under pub.
// Dry runs never verify.
func (w *WrappedMethod) Verify(pub wallet.PublicKey) bool {
	if w.dryRun || len(w.signature) == 0 || pub == nil {
		return false
	}
	return pub.Verify(w.MessageHash(), copyFelts(w.signature))
}

type wrappedMethodJSON struct {
	Type      string         `json:"type"`
	Sender    *felt.Felt     `json:"sender_address"`
	Address   *felt.Felt     `json:"contract_address"`
	Selector  *felt.Felt     `json:"entry_point_selector"`
	Calldata  []*felt.Felt   `json:"calldata"`
	Execute   []*felt.Felt   `json:"execute_calldata,omitempty"`
	MaxFee    *hexutil.Big   `json:"max_fee"`
	Nonce     hexutil.Uint64 `json:"nonce"`
	Version   hexutil.Uint64 `json:"version"`
	ChainID   *felt.Felt     `json:"chain_id"`
	Hash      *felt.Felt     `json:"transaction_hash"`
	Signature []*felt.Felt   `json:"signature"`
	DryRun    bool           `json:"dry_run,omitempty"`
}

// MarshalJSON encodes the method with hex quantities.
func (w *WrappedMethod) MarshalJSON() ([]byte, error) {
	var execute []*felt.Felt
	if w.kind == KindInvoke {
		execute = w.ExecuteCalldata()
	}
	return json.Marshal(wrappedMethodJSON{
		Type:      w.kind.String(),
		Sender:    w.Sender(),
		Address:   w.Address(),
		Selector:  w.Selector(),
		Calldata:  w.Calldata(),
		Execute:   execute,
		MaxFee:    (*hexutil.Big)(w.MaxFee()),
		Nonce:     hexutil.Uint64(w.nonce),
		Version:   hexutil.Uint64(w.version),
		ChainID:   w.ChainID(),
		Hash:      w.Hash(),
		Signature: w.Signature(),
		DryRun:    w.dryRun,
	})
}

func copyFelts(src []felt.Felt) []*felt.Felt {
	out := make([]*felt.Felt, len(src))
	for i := range src {
		f := src[i]
		out[i] = &f
	}
	return out
}
