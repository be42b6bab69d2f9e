package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/agentcheck/internal/apiserver"
	"github.com/klubi/agentcheck/internal/checker"
	"github.com/klubi/agentcheck/internal/controller"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"github.com/klubi/agentcheck/pkg/manifest"
)

func newServeCmd() *cobra.Command {
	var (
		port        int
		host        string
		dataDir     string
		root        string
		profileFile string
		interval    time.Duration
		keep        int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentcheck report server",
		Long:  "Serve recorded check runs over HTTP and run profiles on request.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Apply CLI overrides.
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.Store.DataDir = dataDir
			}
			if cmd.Flags().Changed("root") {
				cfg.Check.Root = root
			}
			if cmd.Flags().Changed("file") {
				cfg.Check.ProfileFile = profileFile
			}
			if cmd.Flags().Changed("recheck-interval") {
				cfg.Check.RecheckInterval = interval
			}
			if cmd.Flags().Changed("keep") {
				cfg.Check.HistoryLimit = keep
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// 2. Collect the profiles clients may run.
			var profiles []*v1alpha1.AgentProfile
			var err error
			if cfg.Check.ProfileFile != "" {
				profiles, err = manifest.ParseFile(cfg.Check.ProfileFile)
			} else {
				profiles, err = manifest.Builtins()
			}
			if err != nil {
				return err
			}

			// 3. Open the history store.
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			// 4. Create runner and API server.
			runner := checker.NewRunner(cfg.Check.Root, s, logger)
			addr := cfg.ServerAddress()
			apiSrv := apiserver.NewServer(addr, s, runner, profiles, logger)

			// 5. Optionally rerun profiles when their documents change.
			if cfg.Check.RecheckInterval > 0 {
				rechecker := controller.NewRechecker(runner, s, profiles, cfg.Check.RecheckInterval, cfg.Check.HistoryLimit, logger)
				rechecker.Start(cmd.Context())
				defer rechecker.Stop()
			}

			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("agentcheck report server")
			fmt.Printf("   API Server: http://%s\n", addr)
			fmt.Printf("   Root:       %s\n", cfg.Check.Root)
			fmt.Printf("   Store:      %s\n", storeDescription())
			fmt.Printf("   Profiles:   %d\n", len(profiles))
			if cfg.Check.RecheckInterval > 0 {
				fmt.Printf("   Recheck:    every %s\n", cfg.Check.RecheckInterval)
			}
			fmt.Println()

			errCh := make(chan error, 1)
			go func() {
				if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			// 6. Wait for interrupt signal for graceful shutdown.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errCh:
				logger.Error("API server error", zap.Error(err))
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := apiSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("API server shutdown error", zap.Error(err))
			}
			logger.Info("agentcheck report server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 7118, "API server port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "API server host")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.agentcheck/data)")
	cmd.Flags().StringVar(&root, "root", ".", "Directory relative document paths resolve against")
	cmd.Flags().StringVarP(&profileFile, "file", "f", "", "AgentProfile manifest to serve instead of the built-in profiles")
	cmd.Flags().DurationVar(&interval, "recheck-interval", 0, "Rerun profiles whose documents changed at this interval (0 disables)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Runs kept per profile after each recheck (0 keeps all)")

	return cmd
}

func storeDescription() string {
	if cfg.Store.Type == "memory" {
		return "memory"
	}
	return cfg.DBPath()
}
