package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abramin/voyage/internal/config"
	"github.com/abramin/voyage/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "voyage",
	Short: "Voyage - Visualize dependencies between declarative services",
	Long: `Voyage reads service definitions (commands, subscriptions and the
REST endpoints they expose) and derives the dependency graph between them.

It answers "who calls this, and who reacts to it?" by expanding any node
into a diagram of its inputs, its subscribers and the commands it invokes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err = logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./voyage.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return cfg
}
