package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klubi/agentcheck/internal/tui"
)

func newUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ui",
		Aliases: []string{"dashboard"},
		Short:   "Launch the interactive terminal UI",
		Long:    "Browse recorded check runs and profiles of a running 'agentcheck serve' and trigger new runs.",
		Example: `  agentcheck ui
  agentcheck ui --server http://127.0.0.1:7118`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := serverAddr
			if addr == "" {
				addr = "http://" + cfg.ServerAddress()
			}
			app := tui.NewApp(addr)
			if err := app.Run(); err != nil {
				return fmt.Errorf("UI error: %w", err)
			}
			return nil
		},
	}

	return cmd
}
