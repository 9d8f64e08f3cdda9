package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/sav3/internal/config"
	"github.com/Mohsinsiddi/sav3/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/sav3/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	cfg         *config.Config
	verbose     bool
	networkFlag string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "sav3",
	Short: "Deploy, drive and simulate Sav3/Sw3 NFT sales",
	Long: `sav3 deploys presale / whitelist / public NFT sale contracts, builds
their Merkle allowlists and drives them on a network.

  sav3 simulate             full sale on the in-process ledger
  sav3 allowlist build      Merkle root and proofs for an address list
  sav3 deploy <artifact>    deploy(maxBatchSize, maxSupply)
  sav3 sale status <name>   every phase, price and counter at a glance
  sav3 verify <name> <sol>  publish the source on Etherscan

Secrets are read from the environment or a .env file:
<NETWORK>_ALCHEMY_API_KEY, <NETWORK>_PRIVATE_KEY, <NETWORK>_ETHERSCAN_API_KEY.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		loaded, err := cfg.LoadEnv()
		if err != nil {
			return err
		}
		if verbose {
			for _, f := range loaded {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Meta("loaded "+f))
			}
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.DirEnv+" or ~/.sav3)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network (default: config)")

	rootCmd.AddCommand(
		deployCmd,
		accountsCmd,
		allowlistCmd,
		saleCmd,
		simulateCmd,
		walletCmd,
		networkCmd,
		configCmd,
		verifyCmd,
	)
}
