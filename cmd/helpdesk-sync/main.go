// Package main implements the helpdesk-sync CLI: credential setup,
// sync runs against the helpdesk API, and run status inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/helpdesk-sync/internal/model"
	"github.com/nhle/helpdesk-sync/internal/obs"
)

// configPath is the --config flag value, shared by all commands.
var configPath string

func main() {
	root := &cobra.Command{
		Use:   "helpdesk-sync",
		Short: "Sync helpdesk conversations into a local document index",
	}

	root.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(),
		"path to the configuration file",
	)

	root.AddCommand(newSetupCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the application configuration and initializes the
// global logger from it.
func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	obs.InitLogger(cfg.LogLevel)
	return cfg, nil
}

// saveConfig writes the configuration back to the configured path.
func saveConfig(cfg *model.AppConfig) error {
	return model.SaveConfig(configPath, cfg)
}
