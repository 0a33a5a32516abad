package cli

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/viper"
	"github.com/yolodolo42/starkacct/internal/account"
	"github.com/yolodolo42/starkacct/internal/chain"
	"github.com/yolodolo42/starkacct/internal/tx"
	"github.com/yolodolo42/starkacct/internal/wallet"
	"golang.org/x/term"
)

// EnvPassword supplies the keyring password without prompting.
const EnvPassword = "STARKACCT_PASSWORD"

const minPasswordLen = 8

var (
	newChainClient = chain.NewClient
	keyringOptions []wallet.KeyringOption
)

// session is everything a command needs for one network.
type session struct {
	network string
	config  *chain.Network
	client  *chain.Client
	keyring *wallet.Keyring
	factory *account.Factory
}

func openSession(confirmPassword bool) (*session, error) {
	name := viper.GetString("network")
	client := newChainClient()

	network, err := client.GetNetwork(name)
	if err != nil {
		client.Close()
		return nil, err
	}
	if url := viper.GetString("rpc_url"); url != "" {
		override := *network
		override.RPCURLs = []string{url}
		client.AddNetwork(name, &override)
		network = &override
	}

	password, err := keyringPassword(confirmPassword)
	if err != nil {
		client.Close()
		return nil, err
	}
	kr, err := wallet.NewKeyring(viper.GetString("account_dir"), password, keyringOptions...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return &session{
		network: name,
		config:  network,
		client:  client,
		keyring: kr,
		factory: account.NewFactory(kr, account.WithLogger(log.Root())),
	}, nil
}

func (s *session) netContext() account.Context {
	return account.NewContext(s.network, s.config, s.client.Endpoint(s.network))
}

func (s *session) account(ctx context.Context, name string) (account.Account, error) {
	return s.factory.Create(ctx, s.netContext(), name)
}

func (s *session) Close() {
	s.client.Close()
}

func keyringPassword(confirm bool) (string, error) {
	if pw, ok := os.LookupEnv(EnvPassword); ok {
		return pw, nil
	}

	password, err := readPassword("Enter keyring password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if !confirm {
		return password, nil
	}

	if len(password) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	again, err := readPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != again {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// parseAmount reads a decimal or 0x-prefixed integer.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// maxFee returns the flag value, else the configured default, else account.DefaultDeployFee.
func maxFee(flag string) (*big.Int, error) {
	if flag == "" {
		flag = viper.GetString("max_fee")
	}
	if flag == "" {
		return new(big.Int).Set(account.DefaultDeployFee), nil
	}
	return parseAmount(flag)
}

// loadPolicy reads the policy.* config keys.
func loadPolicy() (tx.Policy, error) {
	var p tx.Policy
	if s := viper.GetString("policy.max_fee"); s != "" {
		fee, err := parseAmount(s)
		if err != nil {
			return p, fmt.Errorf("policy.max_fee: %w", err)
		}
		p.MaxFee = fee
	}

	var err error
	if p.AllowTo, err = tx.ParseAddresses(viper.GetStringSlice("policy.allow_to")); err != nil {
		return p, fmt.Errorf("policy.allow_to: %w", err)
	}
	if p.DenyTo, err = tx.ParseAddresses(viper.GetStringSlice("policy.deny_to")); err != nil {
		return p, fmt.Errorf("policy.deny_to: %w", err)
	}
	return p, nil
}
