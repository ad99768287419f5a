package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/cli"
	"github.com/patcav/subtrack/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show your subscriptions, monthly total, and notifications",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}

	progress("  Fetching subscriptions...\n")
	if _, err := a.repo.List(cmd.Context()); err != nil {
		return describeErr(err)
	}

	// The session just became valid for this process; refresh the rate
	// baseline and pick up notifications.
	notifications, err := a.notifier.Refresh(cmd.Context())
	if err != nil {
		return describeErr(err)
	}

	active, past := a.repo.Partition()

	fmt.Println()
	fmt.Println(cli.RenderTitle("SUBSCRIPTIONS"))
	fmt.Println()

	if len(active) == 0 && len(past) == 0 {
		fmt.Println("  No subscriptions yet. Try `subtrack link` or `subtrack add <name>`.")
		return nil
	}

	if len(active) > 0 {
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Active",
			Headers: []string{"ID", "Name", "Avg Amount", "Last Paid", "Next Payment"},
			Rows:    subscriptionRows(active),
		}))
	}
	if len(past) > 0 {
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Past",
			Headers: []string{"ID", "Name", "Avg Amount", "Last Paid", "Next Payment"},
			Rows:    subscriptionRows(past),
		}))
	}

	fmt.Printf("  Monthly total (active): %s\n\n", cli.FormatTotal(a.repo.MonthlyTotal()))

	if len(notifications) > 0 {
		fmt.Println(cli.RenderStatus("Notifications", false))
		for _, n := range notifications {
			fmt.Printf("    • %s\n", n.Message)
		}
		fmt.Println()
	}
	return nil
}

func subscriptionRows(records []model.SubscriptionRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			cli.Truncate(r.ID, 24),
			cli.Truncate(r.Name, 28),
			cli.FormatAmount(r.AverageAmount),
			cli.FormatDate(r.LastDate),
			cli.FormatDate(r.PredictedNextDate),
		})
	}
	return rows
}
