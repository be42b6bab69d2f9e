package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/agentcheck/internal/config"
	"github.com/klubi/agentcheck/internal/logging"
	"github.com/klubi/agentcheck/internal/store"
	"github.com/klubi/agentcheck/pkg/client"
)

var (
	configPath string
	serverAddr string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// NewRootCmd creates the top-level agentcheck CLI command with all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentcheck",
		Short: "Verify agent definition documents against their profile",
		Long: `agentcheck verifies agent definition files (Markdown with a "---" header
block) against a profile: required header fields and values, required body
sections, and byte-for-byte equality with the canonical template.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if verbose {
				loaded.Log.Level = "debug"
			}
			l, err := logging.New(loaded.Log)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			cfg, logger = loaded, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $AGENTCHECK_CONFIG or ~/.agentcheck/config.yaml)")
	cmd.PersistentFlags().StringVar(&serverAddr, "server", "", "Read run history from an agentcheck server instead of the local store")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newCheckCmd(),
		newRunsCmd(),
		newDescribeCmd(),
		newProfilesCmd(),
		newInitCmd(),
		newServeCmd(),
		newUICmd(),
	)

	return cmd
}

// openStore opens the run history store selected by the config.
func openStore() (store.Store, error) {
	if cfg.Store.Type == "memory" {
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewBoltStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", cfg.DBPath(), err)
	}
	return s, nil
}

// remoteClient returns an API client when --server was given.
func remoteClient() *client.Client {
	if serverAddr == "" {
		return nil
	}
	return client.New(serverAddr)
}
