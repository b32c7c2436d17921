package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xompass/mongo-index-creator/logger"
	"go.uber.org/zap"
)

var (
	configDir  string
	configFile string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "mongo-index-creator",
	Short: "Keep MongoDB indexes in line with their declared schemas",
	Long: `mongo-index-creator creates missing indexes and drops obsolete ones on the core
databases and on every client database, as declared in the core and clients schemas.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding .env and indexer.{yaml,json}")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file, overrides the one in --config-dir")
}
