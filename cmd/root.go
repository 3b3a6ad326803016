package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/config"
	"github.com/Mohsinsiddi/w3studio/internal/logging"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3studio/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir    string
	cfg       *config.Config
	log       logrus.FieldLogger = logging.Discard()
	chainFlag string
	verbose   bool
	logLevel  string
	jsonOut   bool
	abiFlag   string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3studio",
	Short: "Inspect and call verified EVM contracts",
	Long: `w3studio loads a deployed contract, follows its proxy to the implementation,
classifies every function, and lets you simulate or send calls with
human-friendly amounts, dates and percentages.

  w3studio load 0x6B175474E89094C44Da98b954EedeAC495271d0F
  w3studio functions --interactive
  w3studio simulate "transfer(address,uint256)" 0xabc… 1.5
  w3studio audit --deep

The last loaded contract is remembered, so follow-up commands can omit the
address. Use --chain to pick a network (slug or id).`,
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
		if chainFlag != "" {
			cfg.DefaultChain = chainFlag
		}

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		log, err = logging.Init(level, cfg.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, ui.Err(userError(err)))
		os.Exit(1)
	}
}

func init() {
	// W3STUDIO_CONFIG_DIR overrides the --config default.
	if envDir := os.Getenv("W3STUDIO_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3studio)")
	rootCmd.PersistentFlags().StringVarP(&chainFlag, "chain", "c", "", "chain slug or id (default: config default_chain)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&abiFlag, "abi", "", "ABI file, artifact or built-in interface (erc20, erc721, ownable) for unverified contracts")

	rootCmd.AddCommand(
		loadCmd,
		functionsCmd,
		hintCmd,
		convertCmd,
		validateCmd,
		proxyCmd,
		auditCmd,
		simulateCmd,
		sendCmd,
		serveCmd,
		chainsCmd,
		configCmd,
		walletCmd,
	)

	rootCmd.SetVersionTemplate(ui.Banner(Version, len(chain.NewRegistry().All())) + "\n")
}
