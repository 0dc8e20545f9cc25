package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/internal/config"
	"github.com/aretw0/cadence/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence runs time-boxed analysis state machines",
	Long: `Cadence periodically runs, for every monitored machine and for the global scope,
a state graph of analysis steps bounded by a wall clock budget.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to cadence.yaml (defaults apply when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log_level (debug, info, warn, error, fatal)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// openService builds the service of the loaded configuration, with the logging
// steps registered.
func openService(cmd *cobra.Command) (*cadence.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level)
	return cadence.New(cfg,
		cadence.WithLogger(logger),
		cadence.WithSteps(loggingSteps(logger)),
	)
}
