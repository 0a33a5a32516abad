// Package account signs Starknet transactions on behalf of named account contracts.
//
// An Account is bound to one identity on one network. It starts undeployed or
// deployed depending on its persisted record and moves to deployed exactly once,
// through a successful Deploy. Signing works in either state: the address of an
// undeployed account is its counterfactual address.
//
// Signing methods do not serialize with each other. Each resolves its nonce
// through the caller's NonceCallback, so two concurrent calls sharing a live
// callback may sign with the same nonce. Callers that need ordering wrap the
// callback (Exclusive, NonceSequencer) or allocate nonces themselves.
package account

import (
	"context"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

// Account is a signing account contract.
type Account interface {
	Name() string
	Flavor() wallet.Flavor

	// Address returns the on-chain address, or the address the account will be
	// deployed to. It is nil when neither a record nor key material determines it.
	Address() *felt.Felt

	// PublicKey returns nil when the identity has no key material yet
	PublicKey() wallet.PublicKey

	Deployed() bool

	// Deploy submits a deploy_account transaction and returns its hash. Key
	// material is generated and stored first when the identity has none.
	Deploy(ctx context.Context) (*felt.Felt, error)

	// SignInvokeTransaction builds and signs a call to another contract.
	SignInvokeTransaction(ctx context.Context, p InvokeParams) (*WrappedMethod, error)

	// DeployContract signs a call to the account's deploy_contract entry point and
	// returns it with the address the new contract will have.
	DeployContract(ctx context.Context, p DeployParams) (*WrappedMethod, *felt.Felt, error)

	// Declare signs a declaration of a contract class.
	Declare(ctx context.Context, p DeclareParams) (*WrappedMethod, error)
}
