package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to subtrack!")
	fmt.Println()

	// 1. Data directory
	fmt.Println("  1. Data directory")
	fmt.Printf("     Where the session and rate baseline are stored.\n")
	fmt.Printf("     Current: %s\n", config.DataDir(cfg))
	fmt.Print("     > ")
	dataDir, _ := reader.ReadString('\n')
	dataDir = strings.TrimSpace(dataDir)
	if dataDir != "" {
		cfg.General.DataDir = dataDir
	}
	fmt.Println()

	// 2. Recurring-transaction source
	fmt.Println("  2. Recurring-transaction source")
	fmt.Println("     (1) Live bank data [default]")
	fmt.Println("     (2) Backend mock data (for trying subtrack out)")
	fmt.Print("     > ")
	choice, _ := reader.ReadString('\n')
	cfg.General.MockRecurring = strings.TrimSpace(choice) == "2"
	fmt.Println()

	// 3. Watch interval
	fmt.Println("  3. Watch poll interval in seconds (default 300)")
	fmt.Print("     > ")
	intervalStr, _ := reader.ReadString('\n')
	if n, err := strconv.Atoi(strings.TrimSpace(intervalStr)); err == nil && n > 0 {
		cfg.Watch.IntervalSec = n
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `subtrack setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
