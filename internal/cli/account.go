package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/yolodolo42/starkacct/internal/account"
	"github.com/yolodolo42/starkacct/internal/chain"
	"github.com/yolodolo42/starkacct/internal/stark"
	"github.com/yolodolo42/starkacct/internal/ui"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

const deployTimeout = 2 * time.Minute

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage Starknet accounts",
	Long:  `Create, import, list, and deploy named account contracts.`,
}

var accountNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new account and its key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountNew,
}

var accountImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import an already deployed account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountImport,
}

var accountListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List accounts on the network",
	Args:    cobra.NoArgs,
	RunE:    runAccountList,
}

var accountDeployCmd = &cobra.Command{
	Use:   "deploy <name>",
	Short: "Deploy an account contract",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountDeploy,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountNewCmd, accountImportCmd, accountListCmd, accountDeployCmd)

	flavors := strings.Join(lo.Map(account.Flavors(), func(f wallet.Flavor, _ int) string { return string(f) }), ", ")
	for _, c := range []*cobra.Command{accountNewCmd, accountImportCmd} {
		c.Flags().String("flavor", string(wallet.FlavorOpenZeppelin), "Account flavor ("+flavors+")")
		c.Flags().String("class-hash", "", "Account class hash (required for eth accounts)")
	}
	accountImportCmd.Flags().String("address", "", "Deployed account address")
	accountImportCmd.Flags().String("key", "", "Private key (hex); prompted for when omitted")
	_ = accountImportCmd.MarkFlagRequired("address")
}

func flavorFlags(cmd *cobra.Command) (wallet.Flavor, *felt.Felt, error) {
	flavorName, _ := cmd.Flags().GetString("flavor")
	flavor := wallet.Flavor(flavorName)
	if !lo.Contains(account.Flavors(), flavor) {
		return "", nil, fmt.Errorf("%w: %q", account.ErrUnsupportedFlavor, flavorName)
	}

	var classHash *felt.Felt
	if s, _ := cmd.Flags().GetString("class-hash"); s != "" {
		h, err := stark.ParseFelt(s)
		if err != nil {
			return "", nil, fmt.Errorf("invalid class hash: %w", err)
		}
		classHash = h
	}
	if flavor == wallet.FlavorEth && classHash == nil {
		return "", nil, fmt.Errorf("--class-hash is required for eth accounts")
	}
	return flavor, classHash, nil
}

func runAccountNew(cmd *cobra.Command, args []string) error {
	flavor, classHash, err := flavorFlags(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.keyring.Create(s.network, args[0], flavor, classHash); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	acct, err := s.account(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.SuccessStyle.Render("Account created"))
	fmt.Fprintf(out, "Name:    %s\n", acct.Name())
	fmt.Fprintf(out, "Flavor:  %s\n", acct.Flavor())
	fmt.Fprintf(out, "Address: %s\n", ui.AddressStyle.Render(acct.Address().String()))
	fmt.Fprintf(out, "\nFund the address with %s, then run 'starkacct account deploy %s'.\n",
		feeTokenName(s.config), acct.Name())
	return nil
}

func runAccountImport(cmd *cobra.Command, args []string) error {
	flavor, classHash, err := flavorFlags(cmd)
	if err != nil {
		return err
	}
	addrFlag, _ := cmd.Flags().GetString("address")
	address, err := stark.ParseFelt(addrFlag)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	keyHex, _ := cmd.Flags().GetString("key")
	if keyHex == "" {
		if keyHex, err = readPassword("Enter private key (hex): "); err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}
	key, err := decodeKey(keyHex)
	if err != nil {
		return err
	}
	if _, err := wallet.NewSigner(flavor, key); err != nil {
		return err
	}

	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	name := args[0]
	if _, err := s.keyring.Lookup(s.network, name); err == nil {
		return fmt.Errorf("%w: %s on %s", wallet.ErrAccountExists, name, s.network)
	}
	if err := s.keyring.PutKey(s.network, name, key); err != nil {
		return err
	}
	if err := s.keyring.Save(s.network, &wallet.Identity{
		Name:      name,
		Flavor:    flavor,
		ClassHash: classHash,
		Address:   address,
		Deployed:  true,
		CreatedAt: time.Now().Unix(),
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s at %s\n", name, ui.AddressStyle.Render(address.String()))
	return nil
}

func decodeKey(s string) ([]byte, error) {
	b, err := hexutil.Decode(ensureHexPrefix(s))
	if err != nil || len(b) > 32 {
		return nil, fmt.Errorf("%w: expected up to 32 hex-encoded bytes", wallet.ErrInvalidKey)
	}
	return common.LeftPadBytes(b, 32), nil
}

func ensureHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

func runAccountList(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	ids := s.keyring.List(s.network)
	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintf(out, "No accounts on %s.\n", s.network)
		fmt.Fprintln(out, "Use 'starkacct account new <name>' to create one.")
		return nil
	}

	t := ui.NewTable(out, "Name", "Flavor", "Address", "Status")
	for _, id := range ids {
		address := "-"
		if acct, err := s.account(cmd.Context(), id.Name); err == nil && acct.Address() != nil {
			address = acct.Address().String()
		}
		t.AppendRow([]any{id.Name, id.Flavor, address, ui.Status(id.Deployed)})
	}
	t.Render()
	return nil
}

func runAccountDeploy(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), deployTimeout)
	defer cancel()

	acct, err := s.account(ctx, args[0])
	if err != nil {
		return err
	}
	if acct.Deployed() {
		return fmt.Errorf("%w: %s", account.ErrAlreadyDeployed, acct.Name())
	}

	out := cmd.OutOrStdout()
	if addr := acct.Address(); addr != nil {
		warnIfUnfunded(ctx, s, addr, out)
	}

	txHash, err := acct.Deploy(ctx)
	if err != nil {
		if errors.Is(err, account.ErrNetwork) {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Warning("The account stays undeployed; rerun the command to retry"))
		}
		return err
	}

	fmt.Fprintln(out, ui.SuccessStyle.Render("Deployment submitted"))
	fmt.Fprintf(out, "Address: %s\n", ui.AddressStyle.Render(acct.Address().String()))
	fmt.Fprintf(out, "Tx hash: %s\n", txHash)
	if s.config.ExplorerURL != "" {
		fmt.Fprintf(out, "Explorer: %s/tx/%s\n", s.config.ExplorerURL, txHash)
	}
	return nil
}

// warnIfUnfunded prints a warning when the fee balance is zero; lookup failures only log.
func warnIfUnfunded(ctx context.Context, s *session, address *felt.Felt, out io.Writer) {
	balance, err := s.client.FeeBalance(ctx, s.network, address)
	if err != nil {
		log.Debug("Fee balance lookup failed", "address", address, "err", err)
		return
	}
	if balance.Sign() == 0 {
		fmt.Fprintln(out, ui.Warning(fmt.Sprintf("%s holds no %s; the deployment will be rejected", address, feeTokenName(s.config))))
		return
	}
	fmt.Fprintf(out, "Fee balance: %s %s\n", chain.FormatFee(balance), feeTokenName(s.config))
}

func feeTokenName(n *chain.Network) string {
	if n.FeeToken != nil && n.FeeToken.Equal(chain.EthToken) {
		return "ETH"
	}
	return "STRK"
}
