package tx

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/samber/lo"
	"github.com/yolodolo42/starkacct/internal/account"
	"github.com/yolodolo42/starkacct/internal/stark"
)

var ErrPolicy = errors.New("rejected by policy")

// Intent captures a contract call the user wants to sign.
type Intent struct {
	Network  string       // network name (e.g., "sepolia")
	To       *felt.Felt   // called contract
	Selector *felt.Felt   // entry point
	Calldata []*felt.Felt // call arguments
	MaxFee   *big.Int     // fee ceiling offered to the sequencer
	Nonce    *uint64      // optional override
}

// Policy enforces safety constraints before signing.
type Policy struct {
	MaxFee  *big.Int
	AllowTo []*felt.Felt
	DenyTo  []*felt.Felt
}

// Validate applies allow/deny lists and the fee ceiling.
func Validate(intent Intent, policy Policy) error {
	if intent.MaxFee == nil {
		return fmt.Errorf("max fee missing")
	}
	if intent.To == nil {
		return fmt.Errorf("destination missing")
	}

	matches := func(a *felt.Felt) bool { return a.Equal(intent.To) }
	if lo.ContainsBy(policy.DenyTo, matches) {
		return fmt.Errorf("%w: destination %s denied", ErrPolicy, intent.To)
	}
	if len(policy.AllowTo) > 0 && !lo.ContainsBy(policy.AllowTo, matches) {
		return fmt.Errorf("%w: destination %s not in allowlist", ErrPolicy, intent.To)
	}
	if policy.MaxFee != nil && intent.MaxFee.Cmp(policy.MaxFee) > 0 {
		return fmt.Errorf("%w: max fee %s exceeds limit %s", ErrPolicy, intent.MaxFee, policy.MaxFee)
	}
	return nil
}

// NonceSource returns the override if one was given and reads the network otherwise.
func (i Intent) NonceSource(reader account.NonceReader) account.NonceCallback {
	if i.Nonce != nil {
		return account.FixedNonce(*i.Nonce)
	}
	return account.LiveNonce(reader)
}

// InvokeParams converts the intent into signing parameters.
func (i Intent) InvokeParams(nonce account.NonceCallback, dryRun bool) account.InvokeParams {
	return account.InvokeParams{
		ContractAddress: i.To,
		Selector:        i.Selector,
		Calldata:        i.Calldata,
		MaxFee:          i.MaxFee,
		Nonce:           nonce,
		DryRun:          dryRun,
	}
}

// ParseSelector accepts a hex or decimal selector, or an entry point name.
func ParseSelector(s string) (*felt.Felt, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty selector")
	}
	if f, err := stark.ParseFelt(s); err == nil {
		return f, nil
	}
	return stark.SelectorFromName(s), nil
}

// ParseCalldata parses each argument as a field element.
func ParseCalldata(args []string) ([]*felt.Felt, error) {
	out := make([]*felt.Felt, 0, len(args))
	for i, a := range args {
		f, err := stark.ParseFelt(a)
		if err != nil {
			return nil, fmt.Errorf("calldata[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseAddresses parses a list of contract addresses, skipping blanks.
func ParseAddresses(list []string) ([]*felt.Felt, error) {
	list = lo.Compact(lo.Map(list, func(s string, _ int) string { return strings.TrimSpace(s) }))
	return ParseCalldata(list)
}
