package cmd

import (
	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive dashboard",
	Long:  "Open a full-screen dashboard showing active and past subscriptions\nand pending notifications. Refresh with r, toggle past with tab, quit with q.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.restoreSession(); err != nil {
			return err
		}
		return tui.Run(a.repo, a.notifier)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
