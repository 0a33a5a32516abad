package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/log"
	"github.com/yolodolo42/starkacct/internal/class"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

// DefaultDeployFee is the max fee, in fri, offered for deploy_account transactions.
var DefaultDeployFee = big.NewInt(1_000_000_000_000_000)

var constructors = map[wallet.Flavor]func(*baseAccount) Account{
	wallet.FlavorOpenZeppelin: newOpenZeppelinAccount,
	wallet.FlavorEth:          newEthAccount,
}

// Flavors lists the account flavors the factory can build.
func Flavors() []wallet.Flavor {
	return []wallet.Flavor{wallet.FlavorOpenZeppelin, wallet.FlavorEth}
}

// Factory builds accounts from keyring identities.
type Factory struct {
	keyring   Keyring
	hasher    ClassHasher
	logger    log.Logger
	deployFee *big.Int
}

// Option configures a Factory
type Option func(*Factory)

// WithClassHasher replaces the local Sierra class hasher.
func WithClassHasher(h ClassHasher) Option {
	return func(f *Factory) { f.hasher = h }
}

func WithLogger(l log.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// WithDeployFee sets the max fee offered by Deploy.
func WithDeployFee(fee *big.Int) Option {
	return func(f *Factory) { f.deployFee = new(big.Int).Set(fee) }
}

// NewFactory creates a factory reading identities from keyring.
func NewFactory(keyring Keyring, opts ...Option) *Factory {
	f := &Factory{
		keyring:   keyring,
		hasher:    class.NewHasher(),
		logger:    log.Root(),
		deployFee: DefaultDeployFee,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the account registered as name on netCtx's network. It performs
// no network I/O; an identity without key material yields an account that can
// Deploy but not sign.
func (f *Factory) Create(ctx context.Context, netCtx Context, name string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := f.keyring.Lookup(netCtx.Network, name)
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s on %s", ErrIdentityNotFound, name, netCtx.Network)
		}
		return nil, err
	}

	build, ok := constructors[id.Flavor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFlavor, id.Flavor)
	}

	var signer wallet.Signer
	key, err := f.keyring.Key(netCtx.Network, name)
	switch {
	case err == nil:
		signer, err = wallet.NewSigner(id.Flavor, key)
		clear(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSigning, err)
		}
	case errors.Is(err, wallet.ErrKeyNotFound):
	default:
		return nil, err
	}

	return build(&baseAccount{
		netCtx:    netCtx,
		keyring:   f.keyring,
		hasher:    f.hasher,
		logger:    f.logger.New("network", netCtx.Network),
		deployFee: f.deployFee,
		identity:  id,
		signer:    signer,
	}), nil
}
