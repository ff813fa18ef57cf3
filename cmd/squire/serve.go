package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rayhaanfarooq/squire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the full workflow and the HTTP API in one process",
	RunE:  runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides SQUIRE_HTTP_ADDR)")
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := squire.FromEnv()
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	wf := squire.New(cfg)
	stop, err := wf.Start(ctx)
	if err != nil {
		return err
	}
	defer stop()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiHandler(wf),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	slog.Info("squire serving", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
	case serr := <-errCh:
		return fmt.Errorf("http server: %w", serr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
