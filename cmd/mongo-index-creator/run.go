package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/xompass/mongo-index-creator/lock"
	"go.uber.org/zap"
)

var runClientCodes []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile indexes once and print the changes summary",
	Long: `Reconcile the indexes of the core databases and of every client.
With --client, only the given clients are processed and the core databases are skipped.

Examples:
  # Core databases and every client
  mongo-index-creator run

  # A single client
  mongo-index-creator run --client my-client`,
	RunE: runIndexes,
}

func init() {
	runCmd.Flags().StringSliceVar(&runClientCodes, "client", nil, "Client code to process (repeatable)")
	RootCmd.AddCommand(runCmd)
}

func runIndexes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.close(context.WithoutCancel(ctx))

	err = lock.WithLock(ctx, app.locker, func(ctx context.Context) error {
		_, runErr := app.indexer.Run(ctx, runClientCodes...)
		return runErr
	})
	if err != nil {
		return err
	}

	app.logger.Info("Operation completed successfully.", zap.Strings("clientCodes", runClientCodes))
	return nil
}
