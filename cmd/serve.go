package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listenAddr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if listenAddr != "" {
				opts.cfg.SetServerListenAddr(listenAddr)
			}

			components, err := opts.factory.Create(ctx, opts.cfg, logger, service.Options{Persistence: true, HTTP: true})
			if err != nil {
				return fmt.Errorf("failed to initialize service: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.cfg.Server().ShutdownGrace)
				defer cancel()
				if err := components.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Shutdown completed with errors.", zap.Error(err))
				}
			}()

			logger.Info("Starting Synapse API", zap.String("version", Version), zap.String("address", opts.cfg.Server().ListenAddr))
			if err := components.Server.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address, overrides server.listen_addr")
	return serveCmd
}
