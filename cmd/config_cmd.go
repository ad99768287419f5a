package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory:  %s\n", config.DataDir(cfg))
	fmt.Printf("    Mock recurring:  %v\n", cfg.General.MockRecurring)
	fmt.Println()

	fmt.Println("  [API]")
	origin := config.Origin(cfg)
	if origin == "" {
		origin = api.DefaultOrigin
	}
	fmt.Printf("    Origin: %s\n", origin)
	fmt.Println()

	fmt.Println("  [Watch]")
	fmt.Printf("    Interval: %ds\n", cfg.Watch.IntervalSec)
	fmt.Println()

	if tok := config.AccessToken(); tok != "" {
		fmt.Printf("  Bank access token (env): %s\n", maskToken(tok))
		fmt.Println()
	}

	fmt.Println("  Run `subtrack setup` to reconfigure.")
	return nil
}
