package account

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/starkacct/internal/chain"
	"github.com/yolodolo42/starkacct/internal/class"
	"github.com/yolodolo42/starkacct/internal/stark"
	"github.com/yolodolo42/starkacct/internal/testutil"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

const testNetwork = "sepolia"

var sepoliaChainID = stark.ShortString("SN_SEPOLIA")

var feltOf = testutil.Felt

// fakeNetwork records deploy_account submissions.
type fakeNetwork struct {
	mu        sync.Mutex
	nonce     uint64
	nonceErr  error
	deployErr error
	block     bool
	onDeploy  func(tx *chain.DeployAccountTransaction)
	deploys   []*chain.DeployAccountTransaction
	nonceReqs int
}

func (f *fakeNetwork) Nonce(_ context.Context, _ *felt.Felt) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceReqs++
	return f.nonce, f.nonceErr
}

func (f *fakeNetwork) AddDeployAccountTransaction(ctx context.Context, tx *chain.DeployAccountTransaction) (*chain.DeployAccountResult, error) {
	f.mu.Lock()
	f.deploys = append(f.deploys, tx)
	hook, block, err := f.onDeploy, f.block, f.deployErr
	f.mu.Unlock()

	if hook != nil {
		hook(tx)
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &chain.DeployAccountResult{
		TransactionHash: feltOf(0xdead),
		ContractAddress: stark.ContractAddress(nil, tx.ContractAddressSalt, tx.ClassHash, tx.ConstructorCalldata),
	}, nil
}

func (f *fakeNetwork) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deploys)
}

type testEnv struct {
	keyring *wallet.Keyring
	network *fakeNetwork
	factory *Factory
	netCtx  Context
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	kr, err := wallet.NewKeyring(testutil.TempDir(t), "testpassword", wallet.WithLightScrypt())
	require.NoError(t, err)

	network := &fakeNetwork{}
	opts = append([]Option{WithLogger(log.NewLogger(log.NewTerminalHandler(io.Discard, false)))}, opts...)
	return &testEnv{
		keyring: kr,
		network: network,
		factory: NewFactory(kr, opts...),
		netCtx:  Context{Network: testNetwork, ChainID: sepoliaChainID, Client: network},
	}
}

// addIdentity saves id, storing a fresh key for it when withKey is set.
func (e *testEnv) addIdentity(t *testing.T, id *wallet.Identity, withKey bool) {
	t.Helper()
	require.NoError(t, e.keyring.Save(testNetwork, id))
	if withKey {
		key, err := wallet.GenerateKey(id.Flavor)
		require.NoError(t, err)
		require.NoError(t, e.keyring.PutKey(testNetwork, id.Name, key))
	}
}

func (e *testEnv) create(t *testing.T, name string) Account {
	t.Helper()
	acct, err := e.factory.Create(context.Background(), e.netCtx, name)
	require.NoError(t, err)
	return acct
}

// countingNonce returns nonce n and records every address it is asked about.
type countingNonce struct {
	mu        sync.Mutex
	n         uint64
	addresses []*felt.Felt
}

func (c *countingNonce) callback(_ context.Context, address *felt.Felt) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addresses = append(c.addresses, address)
	return c.n, nil
}

func (c *countingNonce) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.addresses)
}

func TestFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown identity", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.factory.Create(ctx, env.netCtx, "nobody")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("identity on another network", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "alice", Flavor: wallet.FlavorOpenZeppelin}, true)

		other := env.netCtx
		other.Network = "mainnet"
		_, err := env.factory.Create(ctx, other, "alice")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("unsupported flavor", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "odd", Flavor: "braavos"}, false)
		_, err := env.factory.Create(ctx, env.netCtx, "odd")
		assert.ErrorIs(t, err, ErrUnsupportedFlavor)
	})

	t.Run("builds each flavor", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "oz", Flavor: wallet.FlavorOpenZeppelin}, true)
		env.addIdentity(t, &wallet.Identity{Name: "eth", Flavor: wallet.FlavorEth, ClassHash: feltOf(0xe7)}, true)

		oz := env.create(t, "oz")
		assert.IsType(t, &OpenZeppelinAccount{}, oz)
		assert.Equal(t, wallet.FlavorOpenZeppelin, oz.Flavor())
		assert.Equal(t, "oz", oz.Name())
		assert.False(t, oz.Deployed())
		assert.NotNil(t, oz.Address())

		eth := env.create(t, "eth")
		assert.IsType(t, &EthAccount{}, eth)
		assert.Equal(t, wallet.FlavorEth, eth.Flavor())

		assert.Zero(t, env.network.nonceReqs)
		assert.Zero(t, env.network.submissions())
	})

	t.Run("identity without key cannot sign", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "bare", Flavor: wallet.FlavorOpenZeppelin}, false)

		acct := env.create(t, "bare")
		assert.Nil(t, acct.PublicKey())
		assert.Nil(t, acct.Address())

		nonce := &countingNonce{}
		for _, dryRun := range []bool{false, true} {
			_, err := acct.SignInvokeTransaction(ctx, InvokeParams{
				ContractAddress: feltOf(0xb),
				Selector:        feltOf(0x123),
				MaxFee:          big.NewInt(1),
				Nonce:           nonce.callback,
				DryRun:          dryRun,
			})
			assert.ErrorIs(t, err, ErrSigning)
		}
		assert.Zero(t, nonce.calls())
	})

	t.Run("canceled context", func(t *testing.T) {
		env := newTestEnv(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := env.factory.Create(cctx, env.netCtx, "alice")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// deployedAt registers a deployed openzeppelin identity at address.
func deployedAt(t *testing.T, env *testEnv, name string, address *felt.Felt) Account {
	t.Helper()
	env.addIdentity(t, &wallet.Identity{
		Name:     name,
		Flavor:   wallet.FlavorOpenZeppelin,
		Address:  address,
		Deployed: true,
	}, true)
	return env.create(t, name)
}

func TestSignInvokeTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("signs the invoke hash", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		nonce := &countingNonce{n: 5}

		calldata := testutil.Felts(1, 2, 3)
		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			Calldata:        calldata,
			MaxFee:          big.NewInt(1000),
			Version:         1,
			Nonce:           nonce.callback,
		})
		require.NoError(t, err)

		execute := []*felt.Felt{feltOf(1), feltOf(0xb), feltOf(0x123), feltOf(3), feltOf(1), feltOf(2), feltOf(3)}
		want := stark.TransactionHash(stark.PrefixInvoke, feltOf(1), feltOf(0xa), new(felt.Felt),
			execute, feltOf(1000), sepoliaChainID, feltOf(5))
		assert.True(t, want.Equal(w.Hash()))
		assert.True(t, w.Address().Equal(feltOf(0xb)))
		assert.True(t, w.Sender().Equal(feltOf(0xa)))
		assert.True(t, w.Selector().Equal(feltOf(0x123)))
		assert.Equal(t, calldata, w.Calldata())
		assert.Equal(t, execute, w.ExecuteCalldata())
		assert.Equal(t, uint64(5), w.Nonce())
		assert.Equal(t, uint64(1), w.Version())
		assert.Equal(t, 0, w.MaxFee().Cmp(big.NewInt(1000)))
		assert.Equal(t, KindInvoke, w.Kind())
		assert.False(t, w.DryRun())
		assert.Len(t, w.Signature(), 2)
		assert.True(t, w.Verify(acct.PublicKey()))

		require.Equal(t, 1, nonce.calls())
		assert.True(t, nonce.addresses[0].Equal(feltOf(0xa)))
	})

	t.Run("dry run matches signed fields", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		p := InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			Calldata:        []*felt.Felt{feltOf(7)},
			MaxFee:          big.NewInt(55),
			Nonce:           FixedNonce(3),
		}
		signed, err := acct.SignInvokeTransaction(ctx, p)
		require.NoError(t, err)

		p.DryRun = true
		dry, err := acct.SignInvokeTransaction(ctx, p)
		require.NoError(t, err)

		assert.True(t, dry.DryRun())
		assert.Empty(t, dry.Signature())
		assert.False(t, dry.Verify(acct.PublicKey()))
		assert.True(t, signed.Hash().Equal(dry.Hash()))
		assert.True(t, signed.Address().Equal(dry.Address()))
		assert.Equal(t, signed.Calldata(), dry.Calldata())
		assert.Equal(t, signed.Nonce(), dry.Nonce())
		assert.Equal(t, DefaultTxVersion, dry.Version())
	})

	t.Run("verify detects tampering", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			MaxFee:          big.NewInt(1),
			Nonce:           FixedNonce(0),
		})
		require.NoError(t, err)

		tampered := *w
		tampered.nonce = 1
		assert.False(t, tampered.Verify(acct.PublicKey()))

		other := deployedAt(t, env, "bob", feltOf(0xb0b))
		assert.False(t, w.Verify(other.PublicKey()))
	})

	t.Run("accounts sharing a key sign different hashes", func(t *testing.T) {
		env := newTestEnv(t)
		key, err := wallet.GenerateKey(wallet.FlavorOpenZeppelin)
		require.NoError(t, err)
		for name, addr := range map[string]*felt.Felt{"a": feltOf(0xa1), "b": feltOf(0xb1)} {
			env.addIdentity(t, &wallet.Identity{
				Name: name, Flavor: wallet.FlavorOpenZeppelin, Address: addr, Deployed: true,
			}, false)
			require.NoError(t, env.keyring.PutKey(testNetwork, name, key))
		}
		a, b := env.create(t, "a"), env.create(t, "b")

		p := InvokeParams{
			ContractAddress: feltOf(0xc0de),
			Selector:        feltOf(0x123),
			Calldata:        testutil.Felts(1, 2, 3),
			MaxFee:          big.NewInt(1000),
			Nonce:           FixedNonce(0),
		}
		wa, err := a.SignInvokeTransaction(ctx, p)
		require.NoError(t, err)
		wb, err := b.SignInvokeTransaction(ctx, p)
		require.NoError(t, err)

		assert.False(t, wa.Hash().Equal(wb.Hash()))
		assert.True(t, wa.Verify(b.PublicKey()))

		// a's signature cannot be replayed as b's transaction
		replayed := *wb
		replayed.signature = wa.signature
		assert.False(t, replayed.Verify(b.PublicKey()))
	})

	t.Run("accessors return copies", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			Calldata:        []*felt.Felt{feltOf(1)},
			MaxFee:          big.NewInt(1),
			Nonce:           FixedNonce(0),
		})
		require.NoError(t, err)

		w.Calldata()[0].SetUint64(99)
		w.Address().SetUint64(99)
		w.MaxFee().SetInt64(99)
		assert.True(t, w.Calldata()[0].Equal(feltOf(1)))
		assert.True(t, w.Address().Equal(feltOf(0xb)))
		assert.True(t, w.MessageHash().Equal(w.Hash()))
		assert.True(t, w.Verify(acct.PublicKey()))
	})

	t.Run("chain id override", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		mainnet := stark.ShortString("SN_MAIN")

		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			ChainID:         mainnet,
			MaxFee:          big.NewInt(1),
			Nonce:           FixedNonce(0),
		})
		require.NoError(t, err)
		assert.True(t, w.ChainID().Equal(mainnet))
	})

	t.Run("nonce callback failure", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		boom := errors.New("boom")

		_, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			MaxFee:          big.NewInt(1),
			Nonce: func(context.Context, *felt.Felt) (uint64, error) {
				return 0, boom
			},
		})
		assert.ErrorIs(t, err, ErrNonceResolution)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing nonce callback", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		_, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			MaxFee:          big.NewInt(1),
		})
		assert.ErrorIs(t, err, ErrNonceResolution)
	})

	t.Run("cancellation during nonce resolution", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		cctx, cancel := context.WithCancel(ctx)

		_, err := acct.SignInvokeTransaction(cctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			MaxFee:          big.NewInt(1),
			Nonce: func(context.Context, *felt.Felt) (uint64, error) {
				cancel()
				return 1, nil
			},
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid params", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		nonce := &countingNonce{}

		cases := map[string]InvokeParams{
			"no address":    {Selector: feltOf(1), MaxFee: big.NewInt(1)},
			"no selector":   {ContractAddress: feltOf(1), MaxFee: big.NewInt(1)},
			"no max fee":    {ContractAddress: feltOf(1), Selector: feltOf(1)},
			"negative fee":  {ContractAddress: feltOf(1), Selector: feltOf(1), MaxFee: big.NewInt(-1)},
			"nil calldata":  {ContractAddress: feltOf(1), Selector: feltOf(1), MaxFee: big.NewInt(1), Calldata: []*felt.Felt{nil}},
			"fee too large": {ContractAddress: feltOf(1), Selector: feltOf(1), MaxFee: new(big.Int).Lsh(big.NewInt(1), 252)},
		}
		for name, p := range cases {
			t.Run(name, func(t *testing.T) {
				p.Nonce = nonce.callback
				_, err := acct.SignInvokeTransaction(ctx, p)
				assert.ErrorIs(t, err, ErrInvalidParams)
			})
		}
		assert.Zero(t, nonce.calls())
	})

	t.Run("undeployed account signs from its counterfactual address", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "fresh", Flavor: wallet.FlavorOpenZeppelin}, true)
		acct := env.create(t, "fresh")
		nonce := &countingNonce{}

		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			MaxFee:          big.NewInt(1),
			Nonce:           nonce.callback,
		})
		require.NoError(t, err)

		pub := acct.PublicKey().Felts()
		want := stark.ContractAddress(nil, pub[0], OpenZeppelinClassHash, pub)
		assert.True(t, want.Equal(acct.Address()))
		assert.True(t, want.Equal(w.Sender()))
		assert.True(t, want.Equal(nonce.addresses[0]))
	})

	t.Run("eth account signature", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{
			Name: "eve", Flavor: wallet.FlavorEth, Address: feltOf(0xe), Deployed: true,
		}, true)
		acct := env.create(t, "eve")

		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			Calldata:        []*felt.Felt{feltOf(1)},
			MaxFee:          big.NewInt(1000),
			Nonce:           FixedNonce(2),
		})
		require.NoError(t, err)
		assert.Len(t, w.Signature(), 5)
		assert.True(t, w.Verify(acct.PublicKey()))
	})
}

func TestSignInvokeTransaction_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	acct := deployedAt(t, env, "alice", feltOf(0xa))
	seq := NewNonceSequencer(&fakeNetwork{nonce: 10})

	const n = 8
	nonces := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := acct.SignInvokeTransaction(context.Background(), InvokeParams{
				ContractAddress: feltOf(0xb),
				Selector:        feltOf(0x123),
				MaxFee:          big.NewInt(1),
				Nonce:           seq.Callback(),
			})
			if assert.NoError(t, err) {
				nonces <- w.Nonce()
			}
		}()
	}
	wg.Wait()
	close(nonces)

	seen := make(map[uint64]bool)
	for nonce := range nonces {
		assert.False(t, seen[nonce], "nonce %d used twice", nonce)
		seen[nonce] = true
	}
	assert.Len(t, seen, n)
}

func TestDeployContract(t *testing.T) {
	ctx := context.Background()
	classHash := feltOf(0xc1a55)
	salt := feltOf(0x5a17)
	ctor := testutil.Felts(4, 5)

	t.Run("from the account", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		nonce := &countingNonce{n: 9}

		w, addr, err := acct.DeployContract(ctx, DeployParams{
			ClassHash:           classHash,
			Salt:                salt,
			ConstructorCalldata: ctor,
			MaxFee:              big.NewInt(100),
			Nonce:               nonce.callback,
		})
		require.NoError(t, err)

		assert.True(t, stark.ContractAddress(feltOf(0xa), salt, classHash, ctor).Equal(addr))
		assert.True(t, w.Address().Equal(feltOf(0xa)))
		assert.True(t, w.Selector().Equal(stark.SelectorFromName("deploy_contract")))
		assert.Equal(t, []*felt.Felt{classHash, salt, feltOf(2), feltOf(4), feltOf(5), feltOf(0)}, w.Calldata())
		assert.Equal(t, uint64(9), w.Nonce())
		assert.True(t, w.Verify(acct.PublicKey()))
		assert.Equal(t, 1, nonce.calls())
	})

	t.Run("from zero", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		w, addr, err := acct.DeployContract(ctx, DeployParams{
			ClassHash:           classHash,
			Salt:                salt,
			ConstructorCalldata: ctor,
			DeployFromZero:      true,
			MaxFee:              big.NewInt(100),
			Nonce:               FixedNonce(0),
		})
		require.NoError(t, err)

		assert.True(t, stark.ContractAddress(nil, salt, classHash, ctor).Equal(addr))
		calldata := w.Calldata()
		assert.True(t, calldata[len(calldata)-1].Equal(feltOf(1)))
	})

	t.Run("matches a mainnet deployment address", func(t *testing.T) {
		// mainnet deploy 0x6486c6303dba2f364c684a2e9609211c5b8e417e767f37b527cda51e776e6f0
		parse := func(s string) *felt.Felt {
			f, err := stark.ParseFelt(s)
			require.NoError(t, err)
			return f
		}
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		_, addr, err := acct.DeployContract(ctx, DeployParams{
			ClassHash: parse("0x46f844ea1a3b3668f81d38b5c1bd55e816e0373802aefe732138628f0133486"),
			Salt:      parse("0x74dc2fe193daf1abd8241b63329c1123214842b96ad7fd003d25512598a956b"),
			ConstructorCalldata: []*felt.Felt{
				parse("0x6d706cfbac9b8262d601c38251c5fbe0497c3a96cc91a92b08d91b61d9e70c4"),
				parse("0x79dc0da7c54b95f10aa182ad0a46400db63156920adb65eca2654c0945a463"),
				parse("0x2"),
				parse("0x6658165b4984816ab189568637bedec5aa0a18305909c7f5726e4a16e3afef6"),
				parse("0x6b648b36b074a91eee55730f5f5e075ec19c0a8f9ffb0903cefeee93b6ff328"),
			},
			DeployFromZero: true,
			MaxFee:         big.NewInt(1),
			Nonce:          FixedNonce(0),
		})
		require.NoError(t, err)
		assert.Equal(t, "0x3ec215c6c9028ff671b46a2a9814970ea23ed3c4bcc3838c6d1dcbf395263c3", addr.String())
	})

	t.Run("nonce failure returns no address", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		w, addr, err := acct.DeployContract(ctx, DeployParams{
			ClassHash: classHash,
			Salt:      salt,
			MaxFee:    big.NewInt(100),
		})
		assert.ErrorIs(t, err, ErrNonceResolution)
		assert.Nil(t, w)
		assert.Nil(t, addr)
	})

	t.Run("requires class hash and salt", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		_, _, err := acct.DeployContract(ctx, DeployParams{Salt: salt, MaxFee: big.NewInt(1), Nonce: FixedNonce(0)})
		assert.ErrorIs(t, err, ErrInvalidParams)
		_, _, err = acct.DeployContract(ctx, DeployParams{ClassHash: classHash, MaxFee: big.NewInt(1), Nonce: FixedNonce(0)})
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

type fakeHasher struct {
	hash  *felt.Felt
	err   error
	calls int
}

func (h *fakeHasher) ClassHash(context.Context, *class.ContractClass) (*felt.Felt, error) {
	h.calls++
	return h.hash, h.err
}

func TestDeclare(t *testing.T) {
	ctx := context.Background()
	contract := &class.ContractClass{SierraProgram: []*felt.Felt{feltOf(1)}}

	t.Run("signs the declare hash", func(t *testing.T) {
		hasher := &fakeHasher{hash: feltOf(0xc1a55)}
		env := newTestEnv(t, WithClassHasher(hasher))
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		w, err := acct.Declare(ctx, DeclareParams{
			Class:  contract,
			MaxFee: big.NewInt(500),
			Nonce:  FixedNonce(4),
		})
		require.NoError(t, err)

		want := stark.TransactionHash(stark.PrefixDeclare, feltOf(1), feltOf(0xa), new(felt.Felt),
			[]*felt.Felt{feltOf(0xc1a55)}, feltOf(500), sepoliaChainID, feltOf(4))
		assert.True(t, want.Equal(w.Hash()))
		assert.Equal(t, KindDeclare, w.Kind())
		assert.True(t, w.Address().Equal(w.Sender()))
		assert.True(t, w.Verify(acct.PublicKey()))
		assert.Equal(t, 1, hasher.calls)
	})

	t.Run("uses the local class hasher by default", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		w, err := acct.Declare(ctx, DeclareParams{Class: contract, MaxFee: big.NewInt(1), Nonce: FixedNonce(0)})
		require.NoError(t, err)

		want, err := class.NewHasher().ClassHash(ctx, contract)
		require.NoError(t, err)
		assert.True(t, want.Equal(w.Calldata()[0]))
	})

	t.Run("class hash failure skips the nonce", func(t *testing.T) {
		boom := errors.New("bad class")
		env := newTestEnv(t, WithClassHasher(&fakeHasher{err: boom}))
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		nonce := &countingNonce{}

		_, err := acct.Declare(ctx, DeclareParams{Class: contract, MaxFee: big.NewInt(1), Nonce: nonce.callback})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, nonce.calls())
	})

	t.Run("dry run", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))

		w, err := acct.Declare(ctx, DeclareParams{Class: contract, MaxFee: big.NewInt(1), Nonce: FixedNonce(2), DryRun: true})
		require.NoError(t, err)
		assert.True(t, w.DryRun())
		assert.Empty(t, w.Signature())
		assert.Equal(t, uint64(2), w.Nonce())
		assert.True(t, w.MessageHash().Equal(w.Hash()))
	})

	t.Run("requires a class", func(t *testing.T) {
		env := newTestEnv(t)
		acct := deployedAt(t, env, "alice", feltOf(0xa))
		_, err := acct.Declare(ctx, DeclareParams{MaxFee: big.NewInt(1), Nonce: FixedNonce(0)})
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestDeploy(t *testing.T) {
	ctx := context.Background()

	t.Run("deploys and records the account", func(t *testing.T) {
		env := newTestEnv(t, WithDeployFee(big.NewInt(777)))
		env.addIdentity(t, &wallet.Identity{Name: "alice", Flavor: wallet.FlavorOpenZeppelin}, true)
		acct := env.create(t, "alice")
		predicted := acct.Address()

		txHash, err := acct.Deploy(ctx)
		require.NoError(t, err)
		assert.True(t, txHash.Equal(feltOf(0xdead)))
		assert.True(t, acct.Deployed())
		assert.True(t, predicted.Equal(acct.Address()))

		require.Equal(t, 1, env.network.submissions())
		tx := env.network.deploys[0]
		pub := acct.PublicKey()
		assert.Equal(t, deployAccountType, tx.Type)
		assert.True(t, tx.ClassHash.Equal(OpenZeppelinClassHash))
		assert.True(t, tx.ContractAddressSalt.Equal(pub.Felts()[0]))
		assert.Equal(t, pub.Felts(), tx.ConstructorCalldata)
		assert.True(t, tx.MaxFee.Equal(feltOf(777)))

		calldata := append([]*felt.Felt{tx.ClassHash, tx.ContractAddressSalt}, tx.ConstructorCalldata...)
		hash := stark.TransactionHash(stark.PrefixDeployAccount, feltOf(1), predicted, new(felt.Felt),
			calldata, tx.MaxFee, sepoliaChainID, new(felt.Felt))
		assert.True(t, pub.Verify(hash, tx.Signature))

		id, err := env.keyring.Lookup(testNetwork, "alice")
		require.NoError(t, err)
		assert.True(t, id.Deployed)
		assert.True(t, id.Address.Equal(predicted))
		assert.True(t, id.DeployTxHash.Equal(txHash))
	})

	t.Run("second deploy fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "alice", Flavor: wallet.FlavorOpenZeppelin}, true)
		acct := env.create(t, "alice")

		_, err := acct.Deploy(ctx)
		require.NoError(t, err)
		addr := acct.Address()

		_, err = acct.Deploy(ctx)
		assert.ErrorIs(t, err, ErrAlreadyDeployed)
		assert.True(t, addr.Equal(acct.Address()))
		assert.Equal(t, 1, env.network.submissions())

		reloaded := env.create(t, "alice")
		_, err = reloaded.Deploy(ctx)
		assert.ErrorIs(t, err, ErrAlreadyDeployed)
	})

	t.Run("generates and stores a key first", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "bare", Flavor: wallet.FlavorOpenZeppelin}, false)
		acct := env.create(t, "bare")

		var keyStored, addressStored bool
		env.network.onDeploy = func(*chain.DeployAccountTransaction) {
			_, err := env.keyring.Key(testNetwork, "bare")
			keyStored = err == nil
			id, err := env.keyring.Lookup(testNetwork, "bare")
			addressStored = err == nil && id.Address != nil
		}

		_, err := acct.Deploy(ctx)
		require.NoError(t, err)
		assert.True(t, keyStored)
		assert.True(t, addressStored)
		require.NotNil(t, acct.PublicKey())

		w, err := acct.SignInvokeTransaction(ctx, InvokeParams{
			ContractAddress: feltOf(0xb),
			Selector:        feltOf(0x123),
			MaxFee:          big.NewInt(1),
			Nonce:           FixedNonce(1),
		})
		require.NoError(t, err)
		assert.True(t, w.Verify(acct.PublicKey()))
	})

	t.Run("network failure leaves the account undeployed", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "alice", Flavor: wallet.FlavorOpenZeppelin}, false)
		acct := env.create(t, "alice")
		env.network.deployErr = errors.New("connection refused")

		_, err := acct.Deploy(ctx)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.False(t, acct.Deployed())
		first := acct.Address()
		require.NotNil(t, first)

		env.network.deployErr = nil
		_, err = acct.Deploy(ctx)
		require.NoError(t, err)
		assert.True(t, acct.Deployed())
		assert.True(t, first.Equal(acct.Address()))

		require.Equal(t, 2, env.network.submissions())
		assert.True(t, env.network.deploys[0].ContractAddressSalt.Equal(env.network.deploys[1].ContractAddressSalt))
	})

	t.Run("timeout is a network error", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "alice", Flavor: wallet.FlavorOpenZeppelin}, true)
		acct := env.create(t, "alice")
		env.network.block = true

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := acct.Deploy(tctx)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, acct.Deployed())
	})

	t.Run("eth account needs a class hash", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "eve", Flavor: wallet.FlavorEth}, true)
		acct := env.create(t, "eve")
		assert.Nil(t, acct.Address())

		_, err := acct.Deploy(ctx)
		assert.ErrorIs(t, err, ErrInvalidParams)
		assert.Zero(t, env.network.submissions())
	})

	t.Run("eth account constructor", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "eve", Flavor: wallet.FlavorEth, ClassHash: feltOf(0xe7)}, true)
		acct := env.create(t, "eve")

		_, err := acct.Deploy(ctx)
		require.NoError(t, err)
		tx := env.network.deploys[0]
		assert.Len(t, tx.ConstructorCalldata, 4)
		assert.Len(t, tx.Signature, 5)
		assert.True(t, tx.ClassHash.Equal(feltOf(0xe7)))
	})

	t.Run("without a client", func(t *testing.T) {
		env := newTestEnv(t)
		env.addIdentity(t, &wallet.Identity{Name: "alice", Flavor: wallet.FlavorOpenZeppelin}, true)
		netCtx := env.netCtx
		netCtx.Client = nil
		acct, err := env.factory.Create(ctx, netCtx, "alice")
		require.NoError(t, err)

		_, err = acct.Deploy(ctx)
		assert.ErrorIs(t, err, ErrNetwork)
	})
}
