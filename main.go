package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskglue/internal/config"
	"deskglue/internal/lookup"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// rootCmd runs the interactive filter panel
var rootCmd = &cobra.Command{
	Use:   "deskglue",
	Short: "Helpdesk customer search and report filters",
	Long: `deskglue opens the AMC report filter panel.

Press enter on the customer filter to search customers by code, name,
address, place or phone. Changing AMC status shows or hides the expiry
month and year filters.

Configuration is read from .deskglue.toml in the current directory, or
from the user config directory when that file is absent.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default .deskglue.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging for subcommands")

	rootCmd.AddCommand(searchCmd, filtersCmd, reportCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	svc := config.NewConfigService(configPath)
	cfg, err := svc.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", svc.Path(), err)
	}
	return cfg, nil
}

// newBackend builds the customer source named by the config
func newBackend(cfg *config.Config, logger *zap.Logger) (lookup.Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendFrappe:
		return lookup.NewFrappeClient(lookup.FrappeConfig{
			BaseURL:   cfg.Backend.BaseURL,
			APIKey:    cfg.Backend.APIKey,
			APISecret: cfg.Backend.APISecret,
			Timeout:   cfg.Backend.Timeout.Std(),
		}, logger)
	default:
		dir, err := lookup.LoadDirectory(cfg.Backend.CustomersFile, cfg.Search.ResultLimit)
		if err != nil {
			return nil, err
		}
		logger.Info("customer directory loaded",
			zap.String("file", cfg.Backend.CustomersFile),
			zap.Int("customers", dir.Len()))
		return dir, nil
	}
}
