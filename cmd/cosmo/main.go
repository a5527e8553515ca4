package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cosmoos/cosmo-go/pkg/core"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=X.Y.Z"
	Version = "0.0.0-dev"

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "cosmo",
	Short: "CosmoOS dimension engine",
	Long: `cosmo computes the Cognitive, Physiological and Reflection dashboard
dimensions from locally stored sessions, check-ins and health data.

Commands:
  snapshot <dimension>   Print a dimension snapshot as JSON
  mood <1-5> [label]     Log a mood check-in
  journal <text>         Add a journal entry
  insights               Recompute correlation insights
  health import <file>   Import exported health data
  serve                  Run the JSON API and the daily insight job

Configuration is read from the environment (and a .env file), or from
--config <file.json>.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSON configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(moodCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads --config when given, the environment otherwise.
func loadConfig() (*core.Config, error) {
	var (
		cfg *core.Config
		err error
	)
	if configPath != "" {
		cfg, err = core.LoadConfigFromJSON(configPath)
	} else {
		cfg, err = core.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newClient() (*core.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return core.NewClient(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
