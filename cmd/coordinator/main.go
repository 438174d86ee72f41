// Package main implements the coordinator CLI: the process that wires
// persistence, the event bus, memory, the context store, and the hybrid
// dependency inferer into a running Coordinator, and exposes a handful
// of operator commands against it (status, validate, serve).
//
// Command implementations are split across the other files in this
// package:
//   - cmd_status.go   - statusCmd, runStatus()
//   - cmd_validate.go - validateCmd, runValidate()
//   - cmd_serve.go     - serveCmd, runServe()
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coordinator/internal/config"
)

var (
	configPath string
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Multi-agent software-task coordination engine",
	Long: `coordinator assigns software tasks to agents, infers task
dependencies from task metadata, and learns from completed work to
improve future predictions and assignment quality.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		built, err := zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		logger = built
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "coordinator.yaml", "Path to the coordinator config file")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
