package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/xompass/mongo-index-creator/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger",
	Long: `Start an HTTP server exposing POST /indexes, which runs a reconciliation and
answers with its summary. The body may carry {"clientCode": "..."} to process a single client.`,
	RunE: serveIndexes,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serveIndexes(cmd *cobra.Command, args []string) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	srv := server.New(server.Options{
		Port:   app.config.Server.Port,
		Runner: app.indexer,
		Locker: app.locker,
		Logger: app.logger,

		HealthCheck: app.ping,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down HTTP trigger")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("shutdown failed", zap.Error(err))
		return err
	}

	return nil
}
