package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/starkacct/internal/account"
	"github.com/yolodolo42/starkacct/internal/class"
	"github.com/yolodolo42/starkacct/internal/stark"
	"github.com/yolodolo42/starkacct/internal/tx"
)

const signTimeout = 30 * time.Second

var invokeCmd = &cobra.Command{
	Use:   "invoke <account> <contract> <selector> [calldata...]",
	Short: "Sign a contract call",
	Long: `Sign a call from <account> to <contract>.

<selector> is an entry point name such as "transfer" or its hex selector.
Calldata elements are decimal or 0x-prefixed field elements. The signed
transaction is printed as JSON.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runInvoke,
}

var deployContractCmd = &cobra.Command{
	Use:   "deploy-contract <account> <class-hash> [constructor-calldata...]",
	Short: "Sign a contract deployment through the account",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDeployContract,
}

var declareCmd = &cobra.Command{
	Use:   "declare <account> <class.json>",
	Short: "Sign a Sierra class declaration",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeclare,
}

func init() {
	rootCmd.AddCommand(invokeCmd, deployContractCmd, declareCmd)

	for _, c := range []*cobra.Command{invokeCmd, deployContractCmd, declareCmd} {
		c.Flags().String("max-fee", "", "Max fee in fri (default from config max_fee)")
		c.Flags().Uint64("nonce", 0, "Use this nonce instead of reading it from the network")
	}
	for _, c := range []*cobra.Command{invokeCmd, declareCmd} {
		c.Flags().Bool("dry-run", false, "Build the transaction without signing it")
	}
	deployContractCmd.Flags().String("salt", "", "Deployment salt (random when omitted)")
	deployContractCmd.Flags().Bool("from-zero", false, "Derive the address independently of the deploying account")
}

// nonceSource honors --nonce, falling back to the network.
func nonceSource(cmd *cobra.Command, s *session) account.NonceCallback {
	var intent tx.Intent
	if cmd.Flags().Changed("nonce") {
		n, _ := cmd.Flags().GetUint64("nonce")
		intent.Nonce = &n
	}
	return intent.NonceSource(s.client.Endpoint(s.network))
}

func commandFee(cmd *cobra.Command) (*big.Int, error) {
	flag, _ := cmd.Flags().GetString("max-fee")
	return maxFee(flag)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	to, err := stark.ParseFelt(args[1])
	if err != nil {
		return fmt.Errorf("invalid contract address: %w", err)
	}
	selector, err := tx.ParseSelector(args[2])
	if err != nil {
		return err
	}
	calldata, err := tx.ParseCalldata(args[3:])
	if err != nil {
		return err
	}
	fee, err := commandFee(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	intent := tx.Intent{To: to, Selector: selector, Calldata: calldata, MaxFee: fee}
	policy, err := loadPolicy()
	if err != nil {
		return err
	}
	if err := tx.Validate(intent, policy); err != nil {
		return err
	}

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()
	intent.Network = s.network

	ctx, cancel := context.WithTimeout(cmd.Context(), signTimeout)
	defer cancel()

	acct, err := s.account(ctx, args[0])
	if err != nil {
		return err
	}
	w, err := acct.SignInvokeTransaction(ctx, intent.InvokeParams(nonceSource(cmd, s), dryRun))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), w)
}

func runDeployContract(cmd *cobra.Command, args []string) error {
	classHash, err := stark.ParseFelt(args[1])
	if err != nil {
		return fmt.Errorf("invalid class hash: %w", err)
	}
	ctor, err := tx.ParseCalldata(args[2:])
	if err != nil {
		return err
	}
	salt, err := saltFlag(cmd)
	if err != nil {
		return err
	}
	fee, err := commandFee(cmd)
	if err != nil {
		return err
	}
	fromZero, _ := cmd.Flags().GetBool("from-zero")

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), signTimeout)
	defer cancel()

	acct, err := s.account(ctx, args[0])
	if err != nil {
		return err
	}
	w, address, err := acct.DeployContract(ctx, account.DeployParams{
		ClassHash:           classHash,
		Salt:                salt,
		ConstructorCalldata: ctor,
		DeployFromZero:      fromZero,
		MaxFee:              fee,
		Nonce:               nonceSource(cmd, s),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), struct {
		Transaction     *account.WrappedMethod `json:"transaction"`
		ContractAddress *felt.Felt             `json:"contract_address"`
	}{w, address})
}

func saltFlag(cmd *cobra.Command) (*felt.Felt, error) {
	if s, _ := cmd.Flags().GetString("salt"); s != "" {
		salt, err := stark.ParseFelt(s)
		if err != nil {
			return nil, fmt.Errorf("invalid salt: %w", err)
		}
		return salt, nil
	}
	return new(felt.Felt).SetRandom()
}

func runDeclare(cmd *cobra.Command, args []string) error {
	contract, err := class.Load(args[1])
	if err != nil {
		return err
	}
	fee, err := commandFee(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), signTimeout)
	defer cancel()

	acct, err := s.account(ctx, args[0])
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	w, err := acct.Declare(ctx, account.DeclareParams{
		Class:  contract,
		MaxFee: fee,
		Nonce:  nonceSource(cmd, s),
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), w)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
