package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/starkacct/internal/logging"
	"github.com/yolodolo42/starkacct/internal/wallet"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "starkacct",
		Short: "Starknet account manager and transaction signer",
		Long: `starkacct manages Starknet account contracts.

It keeps named accounts per network, deploys them, and signs invoke,
deploy and declare transactions. Every signing command can run as a
dry run that prints the exact message without a signature.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logging.Setup(viper.GetString("log_level"))
			return err
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.starkacct/config.yaml)")
	flags.String("network", "sepolia", "Network to operate on")
	flags.String("rpc-url", "", "Override the network's RPC endpoint")
	flags.String("account-dir", wallet.DefaultAccountDir, "Directory holding accounts and keys")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")

	_ = viper.BindPFlag("network", flags.Lookup("network"))
	_ = viper.BindPFlag("rpc_url", flags.Lookup("rpc-url"))
	_ = viper.BindPFlag("account_dir", flags.Lookup("account-dir"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".starkacct")
		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("STARKACCT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Silently ignore missing config file - it's optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Warning: could not read config: %v\n", err)
		}
	}
}
