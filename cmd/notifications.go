package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Refresh and show rate-change and upcoming-payment notifications",
	RunE:  runNotifications,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
}

func runNotifications(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}

	progress("  Checking rates...\n")
	notifications, err := a.notifier.Refresh(cmd.Context())
	if err != nil {
		return describeErr(err)
	}

	if len(notifications) == 0 {
		fmt.Println("  No rate changes or upcoming payments.")
		return nil
	}
	for _, n := range notifications {
		fmt.Printf("  • %s\n", n.Message)
	}
	return nil
}
