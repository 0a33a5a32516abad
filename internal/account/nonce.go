package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
)

// NonceCallback yields the nonce a signing operation must use for the account at address.
//
// Every signing method invokes it at most once, after the account's address (and for
// DeployContract the deployed contract's address) is final and before the message is
// hashed. Accounts never cache the returned value. Two concurrent signing calls that
// share a live callback can receive the same nonce; ordering across in-flight
// transactions is up to the callback (see FixedNonce, Exclusive and NonceSequencer).
type NonceCallback func(ctx context.Context, address *felt.Felt) (uint64, error)

// FixedNonce always returns n. Useful when building a batch with precomputed nonces.
func FixedNonce(n uint64) NonceCallback {
	return func(context.Context, *felt.Felt) (uint64, error) {
		return n, nil
	}
}

// LiveNonce reads the current nonce from the network on every call.
func LiveNonce(r NonceReader) NonceCallback {
	return func(ctx context.Context, address *felt.Felt) (uint64, error) {
		if address == nil {
			return 0, fmt.Errorf("account address unknown")
		}
		n, err := r.Nonce(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		return n, nil
	}
}

// Exclusive serializes invocations of cb. It does not stop two callers from
// receiving the same live nonce; combine with NonceSequencer for that.
func Exclusive(cb NonceCallback) NonceCallback {
	var mu sync.Mutex
	return func(ctx context.Context, address *felt.Felt) (uint64, error) {
		mu.Lock()
		defer mu.Unlock()
		return cb(ctx, address)
	}
}

// NonceSequencer hands out consecutive nonces per address, reading the network
// only for the first one. Call Reset after a transaction it numbered is rejected.
type NonceSequencer struct {
	reader NonceReader
	mu     sync.Mutex
	next   map[felt.Felt]uint64
}

// NewNonceSequencer creates a sequencer backed by r
func NewNonceSequencer(r NonceReader) *NonceSequencer {
	return &NonceSequencer{reader: r, next: make(map[felt.Felt]uint64)}
}

// Next returns the nonce to use for address and reserves it.
func (s *NonceSequencer) Next(ctx context.Context, address *felt.Felt) (uint64, error) {
	if address == nil {
		return 0, fmt.Errorf("account address unknown")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.next[*address]; ok {
		s.next[*address] = n + 1
		return n, nil
	}
	n, err := s.reader.Nonce(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	s.next[*address] = n + 1
	return n, nil
}

// Reset forgets address so the next call reads the network again. A nil
// address is ignored.
func (s *NonceSequencer) Reset(address *felt.Felt) {
	if address == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.next, *address)
}

// Callback adapts the sequencer to a NonceCallback
func (s *NonceSequencer) Callback() NonceCallback {
	return s.Next
}

// resolveNonce runs the callback exactly once and wraps its failure.
func resolveNonce(ctx context.Context, cb NonceCallback, address *felt.Felt) (uint64, error) {
	if cb == nil {
		return 0, fmt.Errorf("%w: no nonce callback", ErrNonceResolution)
	}
	n, err := cb(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNonceResolution, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return n, nil
}
