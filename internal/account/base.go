package account

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/log"
	"github.com/yolodolo42/starkacct/internal/chain"
	"github.com/yolodolo42/starkacct/internal/stark"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

const deployAccountType = "DEPLOY_ACCOUNT"

// variant is what differs between account contract implementations.
type variant interface {
	flavor() wallet.Flavor
	// defaultClassHash is nil when the identity must carry its own
	defaultClassHash() *felt.Felt
	constructorCalldata(pub wallet.PublicKey) []*felt.Felt
}

// baseAccount carries the pipeline every variant shares.
type baseAccount struct {
	variant variant

	netCtx    Context
	keyring   Keyring
	hasher    ClassHasher
	logger    log.Logger
	deployFee *big.Int

	mu       sync.RWMutex
	identity *wallet.Identity
	signer   wallet.Signer
}

func (b *baseAccount) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.identity.Name
}

func (b *baseAccount) Flavor() wallet.Flavor {
	return b.variant.flavor()
}

func (b *baseAccount) Deployed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.identity.Deployed
}

func (b *baseAccount) PublicKey() wallet.PublicKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.signer == nil {
		return nil
	}
	return b.signer.PublicKey()
}

func (b *baseAccount) Address() *felt.Felt {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, _ := b.addressLocked()
	return addr
}

// addressLocked prefers the recorded address and falls back to the counterfactual one.
func (b *baseAccount) addressLocked() (*felt.Felt, error) {
	if b.identity.Address != nil {
		a := *b.identity.Address
		return &a, nil
	}
	if b.signer == nil {
		return nil, fmt.Errorf("%w: %s has no key material", ErrSigning, b.identity.Name)
	}
	classHash, err := b.classHashLocked()
	if err != nil {
		return nil, err
	}
	pub := b.signer.PublicKey()
	ctor := b.variant.constructorCalldata(pub)
	return stark.ContractAddress(nil, b.saltLocked(pub), classHash, ctor), nil
}

func (b *baseAccount) classHashLocked() (*felt.Felt, error) {
	if b.identity.ClassHash != nil {
		return b.identity.ClassHash, nil
	}
	if h := b.variant.defaultClassHash(); h != nil {
		return h, nil
	}
	return nil, fmt.Errorf("%w: no class hash configured for %s account %s",
		ErrInvalidParams, b.variant.flavor(), b.identity.Name)
}

func (b *baseAccount) saltLocked(pub wallet.PublicKey) *felt.Felt {
	if b.identity.Salt != nil {
		return b.identity.Salt
	}
	return pub.Felts()[0]
}

// snapshot returns the signer and sender address a signing call works with.
func (b *baseAccount) snapshot() (wallet.Signer, *felt.Felt, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.signer == nil {
		return nil, nil, fmt.Errorf("%w: %s has no key material", ErrSigning, b.identity.Name)
	}
	addr, err := b.addressLocked()
	if err != nil {
		return nil, nil, err
	}
	return b.signer, addr, nil
}

func (b *baseAccount) chainID(override *felt.Felt) (*felt.Felt, error) {
	if override != nil {
		return override, nil
	}
	if b.netCtx.ChainID == nil {
		return nil, fmt.Errorf("%w: chain id is required", ErrInvalidParams)
	}
	return b.netCtx.ChainID, nil
}

// sign resolves the nonce, hashes m and signs it unless dryRun.
func (b *baseAccount) sign(ctx context.Context, signer wallet.Signer, m message, cb NonceCallback, dryRun bool) (*WrappedMethod, error) {
	nonce, err := resolveNonce(ctx, cb, m.sender)
	if err != nil {
		return nil, err
	}

	w := newWrappedMethod(m, nonce)
	if !dryRun {
		sig, err := signer.Sign(w.Hash())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSigning, err)
		}
		w.signature = make([]felt.Felt, len(sig))
		for i, s := range sig {
			w.signature[i] = *s
		}
	}
	w.dryRun = dryRun

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.logger.Debug("Built transaction", "account", b.Name(), "type", m.kind,
		"to", m.address, "nonce", nonce, "hash", w.Hash(), "dry_run", dryRun)
	return w, nil
}

func (b *baseAccount) SignInvokeTransaction(ctx context.Context, p InvokeParams) (*WrappedMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	signer, sender, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	chainID, err := b.chainID(p.ChainID)
	if err != nil {
		return nil, err
	}

	return b.sign(ctx, signer, message{
		kind:     KindInvoke,
		sender:   sender,
		address:  p.ContractAddress,
		selector: p.Selector,
		calldata: p.Calldata,
		maxFee:   p.MaxFee,
		version:  txVersion(p.Version),
		chainID:  chainID,
	}, p.Nonce, p.DryRun)
}

func (b *baseAccount) DeployContract(ctx context.Context, p DeployParams) (*WrappedMethod, *felt.Felt, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := p.validate(); err != nil {
		return nil, nil, err
	}
	signer, sender, err := b.snapshot()
	if err != nil {
		return nil, nil, err
	}
	chainID, err := b.chainID(p.ChainID)
	if err != nil {
		return nil, nil, err
	}

	deployer := sender
	fromZero := new(felt.Felt)
	if p.DeployFromZero {
		deployer = new(felt.Felt)
		fromZero.SetUint64(1)
	}
	address := stark.ContractAddress(deployer, p.Salt, p.ClassHash, p.ConstructorCalldata)

	calldata := make([]*felt.Felt, 0, 4+len(p.ConstructorCalldata))
	calldata = append(calldata, p.ClassHash, p.Salt, new(felt.Felt).SetUint64(uint64(len(p.ConstructorCalldata))))
	calldata = append(calldata, p.ConstructorCalldata...)
	calldata = append(calldata, fromZero)

	w, err := b.sign(ctx, signer, message{
		kind:     KindInvoke,
		sender:   sender,
		address:  sender,
		selector: deployContractSelector,
		calldata: calldata,
		maxFee:   p.MaxFee,
		version:  txVersion(p.Version),
		chainID:  chainID,
	}, p.Nonce, false)
	if err != nil {
		return nil, nil, err
	}
	return w, address, nil
}

func (b *baseAccount) Declare(ctx context.Context, p DeclareParams) (*WrappedMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	signer, sender, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	chainID, err := b.chainID(p.ChainID)
	if err != nil {
		return nil, err
	}

	classHash, err := b.hasher.ClassHash(ctx, p.Class)
	if err != nil {
		return nil, fmt.Errorf("failed to compute class hash: %w", err)
	}

	return b.sign(ctx, signer, message{
		kind:     KindDeclare,
		sender:   sender,
		address:  sender,
		selector: new(felt.Felt),
		calldata: []*felt.Felt{classHash},
		maxFee:   p.MaxFee,
		version:  txVersion(p.Version),
		chainID:  chainID,
	}, p.Nonce, p.DryRun)
}

func (b *baseAccount) Deploy(ctx context.Context) (*felt.Felt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.identity.Deployed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDeployed, b.identity.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.netCtx.Client == nil {
		return nil, fmt.Errorf("%w: no client for network %s", ErrNetwork, b.netCtx.Network)
	}
	if b.netCtx.ChainID == nil {
		return nil, fmt.Errorf("%w: chain id is required", ErrInvalidParams)
	}
	if err := b.ensureKeyLocked(); err != nil {
		return nil, err
	}

	classHash, err := b.classHashLocked()
	if err != nil {
		return nil, err
	}
	pub := b.signer.PublicKey()
	salt := b.saltLocked(pub)
	ctor := b.variant.constructorCalldata(pub)
	address := stark.ContractAddress(nil, salt, classHash, ctor)
	if b.identity.Address != nil && !b.identity.Address.Equal(address) {
		return nil, fmt.Errorf("%w: recorded address %s does not match derived %s",
			ErrInvalidParams, b.identity.Address, address)
	}

	// The address is persisted before submission so a retry targets the same contract.
	pending := b.identity.Clone()
	pending.ClassHash = classHash
	pending.Salt = salt
	pending.Address = address
	if err := b.keyring.Save(b.netCtx.Network, pending); err != nil {
		return nil, err
	}
	b.identity = pending

	maxFee := new(felt.Felt).SetBigInt(b.deployFee)
	version := new(felt.Felt).SetUint64(DefaultTxVersion)
	nonce := new(felt.Felt)

	calldata := make([]*felt.Felt, 0, 2+len(ctor))
	calldata = append(calldata, classHash, salt)
	calldata = append(calldata, ctor...)
	hash := stark.TransactionHash(stark.PrefixDeployAccount, version, address, new(felt.Felt),
		calldata, maxFee, b.netCtx.ChainID, nonce)

	sig, err := b.signer.Sign(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	b.logger.Info("Deploying account", "account", b.identity.Name, "address", address,
		"network", b.netCtx.Network)

	res, err := b.netCtx.Client.AddDeployAccountTransaction(ctx, &chain.DeployAccountTransaction{
		Type:                deployAccountType,
		MaxFee:              maxFee,
		Version:             version,
		Signature:           sig,
		Nonce:               nonce,
		ContractAddressSalt: salt,
		ConstructorCalldata: ctor,
		ClassHash:           classHash,
	})
	if err != nil {
		b.logger.Warn("Account deployment failed", "account", b.identity.Name, "err", err)
		return nil, fmt.Errorf("%w: deploy account: %w", ErrNetwork, err)
	}
	if res.ContractAddress != nil && !res.ContractAddress.Equal(address) {
		b.logger.Warn("Sequencer reported a different address", "want", address, "got", res.ContractAddress)
	}

	deployed := b.identity.Clone()
	deployed.Deployed = true
	deployed.DeployTxHash = res.TransactionHash
	b.identity = deployed
	if err := b.keyring.Save(b.netCtx.Network, deployed); err != nil {
		return res.TransactionHash, fmt.Errorf("account deployed but not recorded: %w", err)
	}
	return res.TransactionHash, nil
}

// ensureKeyLocked generates and stores key material if the identity has none.
func (b *baseAccount) ensureKeyLocked() error {
	if b.signer != nil {
		return nil
	}
	key, err := wallet.GenerateKey(b.variant.flavor())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}
	signer, err := wallet.NewSigner(b.variant.flavor(), key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if err := b.keyring.PutKey(b.netCtx.Network, b.identity.Name, key); err != nil {
		return err
	}
	b.signer = signer
	b.logger.Info("Generated account key", "account", b.identity.Name)
	return nil
}
