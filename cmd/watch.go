package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for rate changes and upcoming payments until interrupted",
	RunE:  runWatch,
}

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Poll interval (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}

	interval := watchInterval
	if interval <= 0 {
		interval = time.Duration(a.cfg.Watch.IntervalSec) * time.Second
	}
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	progress("  Watching every %s (ctrl-c to stop)\n", interval)

	// Seed immediately so the first notifications show without waiting a
	// full interval.
	if err := pollNotifications(ctx, a); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n  Stopped.")
			return nil
		case <-ticker.C:
			if err := pollNotifications(ctx, a); err != nil {
				return err
			}
		}
	}
}

// pollNotifications runs one notifier refresh. Transient failures are
// reported and the loop keeps going; a dead session ends the watch, since
// every further poll would fail the same way.
func pollNotifications(ctx context.Context, a *app) error {
	notifications, err := a.notifier.Refresh(ctx)
	if err != nil {
		if sessionLost(err) {
			return describeErr(err)
		}
		fmt.Fprintf(os.Stderr, "  poll error: %v\n", describeErr(err))
		return nil
	}
	stamp := time.Now().Format("15:04:05")
	if len(notifications) == 0 {
		progress("  [%s] no changes\n", stamp)
		return nil
	}
	for _, n := range notifications {
		fmt.Printf("  [%s] %s\n", stamp, n.Message)
	}
	return nil
}

// sessionLost reports whether an error means the session is gone for good.
func sessionLost(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotSignedIn)
}
