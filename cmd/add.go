package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a subscription by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}

	name := strings.Join(args, " ")
	if err := a.repo.Add(cmd.Context(), name); err != nil {
		return describeErr(err)
	}
	fmt.Printf("  Added %q.\n", strings.TrimSpace(name))
	return nil
}
