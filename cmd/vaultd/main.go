// Command vaultd runs the local vault daemon on a unix socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/localvault/internal/config"
	"github.com/and161185/localvault/internal/fileops"
	"github.com/and161185/localvault/internal/logger"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		socket     string
		vaultDir   string
	)

	cmd := &cobra.Command{
		Use:           "vaultd",
		Short:         "Local secret vault daemon",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if socket != "" {
				cfg.Server.Socket = socket
			}
			if vaultDir != "" {
				cfg.Vault.Dir = fileops.ExpandPath(vaultDir)
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			fileops.SetLogger(log)

			log.Info("starting",
				zap.String("version", version),
				zap.String("buildDate", buildDate),
				zap.String("socket", cfg.Server.Socket),
				zap.String("dir", cfg.Vault.Dir),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/localvault/config.yaml)")
	cmd.Flags().StringVar(&socket, "socket", "", "override server.socket")
	cmd.Flags().StringVar(&vaultDir, "dir", "", "override vault.dir")
	cmd.SetContext(context.Background())
	return cmd
}
