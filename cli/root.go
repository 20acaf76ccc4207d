// Package cli wires the docchat commands: the HTTP server plus offline
// ingest, query and document management against the same store.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/logger"
)

var (
	configPath string
	verbose    bool

	// appConfig is loaded before any subcommand runs.
	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat ingests PDF, text and markdown documents into a vector store and
answers questions about them with inline citations.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./config.yaml or ~/.config/docchat/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	var (
		cfg  *config.AppConfig
		used string
		err  error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
		used = configPath
	} else {
		cfg, used, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if used != "" {
		logger.Debug("CLI: Using config %s", used)
	}
	appConfig = cfg
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
