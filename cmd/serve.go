package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/genfinafrica/genfin-chat/internal/mockapi"
)

var serveSeedPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo loan backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		store, err := mockapi.OpenStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("failed to close store", "error", closeErr)
			}
		}()

		if err := store.Ping(cmd.Context()); err != nil {
			return err
		}
		logger.Info("database connected", "path", cfg.DBPath)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if serveSeedPath != "" {
			go func() {
				if err := mockapi.WatchSeed(ctx, store, serveSeedPath, logger); err != nil {
					logger.Error("seed watcher stopped", "error", err)
				}
			}()
			logger.Info("watching seed file", "path", serveSeedPath)
		}

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           mockapi.NewServer(store, logger).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSeedPath, "seed", "", "JSON seed file to register farmers from (watched for changes)")
	rootCmd.AddCommand(serveCmd)
}
