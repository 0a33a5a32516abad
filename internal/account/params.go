package account

import (
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/class"
	"github.com/yolodolo42/starkacct/internal/stark"
)

// DefaultTxVersion is the transaction version used when a call leaves Version at zero.
const DefaultTxVersion uint64 = 1

var deployContractSelector = stark.SelectorFromName("deploy_contract")

// InvokeParams describes a contract call to sign.
type InvokeParams struct {
	ContractAddress *felt.Felt
	Selector        *felt.Felt
	Calldata        []*felt.Felt
	// ChainID overrides the network's chain id when set
	ChainID *felt.Felt
	MaxFee  *big.Int
	Version uint64
	Nonce   NonceCallback
	// DryRun skips signing and returns an empty signature
	DryRun bool
}

func (p *InvokeParams) validate() error {
	if p.ContractAddress == nil {
		return fmt.Errorf("%w: contract address is required", ErrInvalidParams)
	}
	if p.Selector == nil {
		return fmt.Errorf("%w: selector is required", ErrInvalidParams)
	}
	if err := validateCalldata(p.Calldata); err != nil {
		return err
	}
	return validateMaxFee(p.MaxFee)
}

// DeployParams describes a contract deployment through the account's deploy_contract entry point.
type DeployParams struct {
	ClassHash           *felt.Felt
	Salt                *felt.Felt
	ConstructorCalldata []*felt.Felt
	// DeployFromZero makes the address independent of the deploying account
	DeployFromZero bool
	ChainID        *felt.Felt
	MaxFee         *big.Int
	Version        uint64
	Nonce          NonceCallback
}

func (p *DeployParams) validate() error {
	if p.ClassHash == nil {
		return fmt.Errorf("%w: class hash is required", ErrInvalidParams)
	}
	if p.Salt == nil {
		return fmt.Errorf("%w: salt is required", ErrInvalidParams)
	}
	if err := validateCalldata(p.ConstructorCalldata); err != nil {
		return err
	}
	return validateMaxFee(p.MaxFee)
}

// DeclareParams describes a class declaration.
type DeclareParams struct {
	Class   *class.ContractClass
	ChainID *felt.Felt
	MaxFee  *big.Int
	Version uint64
	Nonce   NonceCallback
	DryRun  bool
}

func (p *DeclareParams) validate() error {
	if p.Class == nil {
		return fmt.Errorf("%w: contract class is required", ErrInvalidParams)
	}
	return validateMaxFee(p.MaxFee)
}

func validateCalldata(calldata []*felt.Felt) error {
	for i, c := range calldata {
		if c == nil {
			return fmt.Errorf("%w: calldata[%d] is nil", ErrInvalidParams, i)
		}
	}
	return nil
}

func validateMaxFee(fee *big.Int) error {
	if fee == nil {
		return fmt.Errorf("%w: max fee is required", ErrInvalidParams)
	}
	if _, err := stark.FeltFromBig(fee); err != nil {
		return fmt.Errorf("%w: max fee: %v", ErrInvalidParams, err)
	}
	return nil
}

func txVersion(v uint64) uint64 {
	if v == 0 {
		return DefaultTxVersion
	}
	return v
}
