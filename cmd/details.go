package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/cli"
)

var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show the extended details for one subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

func init() {
	rootCmd.AddCommand(detailsCmd)
}

func runDetails(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}

	progress("  Fetching details...\n")
	d, err := a.repo.Details(cmd.Context(), args[0])
	if err != nil {
		return describeErr(err)
	}

	fmt.Println()
	var rows [][]string
	addRow := func(label, value string) {
		if value != "" && value != "—" {
			rows = append(rows, []string{label, value})
		}
	}
	addRow("Name", d.Name)
	addRow("Description", d.Description)
	addRow("Frequency", d.Frequency)
	addRow("Status", d.Status)
	addRow("First date", cli.FormatDate(d.FirstDate))
	addRow("Last date", cli.FormatDate(d.LastDate))
	addRow("Predicted next", cli.FormatDate(d.PredictedNextDate))
	addRow("Average amount", cli.FormatAmount(d.AverageAmount))
	addRow("Last amount", cli.FormatAmount(d.LastAmount))
	addRow("Website", d.WebsiteURL)
	addRow("Cancel link", d.CancelURL)
	addRow("Reactivate link", d.ReactivateURL)
	if d.IsActive != nil {
		addRow("Active", fmt.Sprintf("%v", *d.IsActive))
	}
	if len(d.TransactionIDs) > 0 {
		addRow("Transactions", strings.Join(d.TransactionIDs, ", "))
	}

	if len(rows) == 0 {
		fmt.Println("  No details available.")
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{Title: "Subscription " + d.ID, Rows: rows}))
	return nil
}
