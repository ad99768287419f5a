package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/cli"
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Import recurring payments from the linked bank account",
	RunE:  runRecurring,
}

func init() {
	rootCmd.AddCommand(recurringCmd)
}

func runRecurring(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}
	if !a.bank.Linked() {
		return errors.New("no linked bank account — run `subtrack link`, or pass --access-token")
	}
	return importRecurring(cmd, a)
}

// importRecurring runs the recurring fetch + save + merge path and reports
// what was discovered, shared by `link` and `recurring`. Discovered records
// are reported even when the follow-up notifier refresh fails: by then the
// import itself has already succeeded.
func importRecurring(cmd *cobra.Command, a *app) error {
	progress("  Fetching recurring transactions...\n")
	saved, err := a.bank.FetchRecurring(cmd.Context(), a.cfg.General.MockRecurring)

	if len(saved) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Discovered %d new subscriptions", len(saved)),
			Headers: []string{"ID", "Name", "Avg Amount", "Last Paid", "Next Payment"},
			Rows:    subscriptionRows(saved),
		}))
	}
	if err != nil {
		return describeErr(err)
	}
	if len(saved) == 0 {
		fmt.Println("  No new recurring subscriptions discovered.")
		return nil
	}

	for _, n := range a.notifier.Notifications() {
		fmt.Printf("    • %s\n", n.Message)
	}
	return nil
}
