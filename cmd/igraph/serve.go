package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/server"
)

var (
	serveOpts  graphFlags
	serveConn  connFlags
	serveAddr  string
	serveToken string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve rendered graphs over HTTP",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, label, err := serveOpts.options(nil)
		if err != nil {
			return err
		}
		src, err := openSource(cfg, serveConn)
		if err != nil {
			return err
		}
		defer src.Close()
		styler, err := newStyler(cfg, serveOpts.graphConfig, label)
		if err != nil {
			return err
		}

		publisher, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()
		if cfg.NATSURL != "" {
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (ISSUEGRAPH_NATS_URL not set)")
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		token := serveToken
		if token == "" {
			token = os.Getenv("ISSUEGRAPH_SERVER_TOKEN")
		}

		graphServer := server.NewGraphServer(src, src.searcher, styler, opts, publisher, logger)
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           graphServer.NewHTTPHandler(token),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-cmd.Context().Done():
			logger.Info("received signal, shutting down")
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveOpts.register(serveCmd)
	serveConn.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default $ISSUEGRAPH_HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveToken, "auth-token", "", "require this bearer token (default $ISSUEGRAPH_SERVER_TOKEN)")
}
