// Package cli provides the foldertalk command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/foldertalk/internal/config"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

var (
	// version is set at build time.
	version = "dev"

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "foldertalk",
	Short: "Chat with the files of a shared Google Drive folder",
	Long: `foldertalk indexes the supported files of a shared Google Drive folder
and answers questions about them with citations.

Configuration is read from foldertalk.toml in the working directory (or
--config), then from FOLDERTALK_* environment variables and a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default foldertalk.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and applies its log settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := logger.Configure(cfg.Log.Format, cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}
