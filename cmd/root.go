// Package cmd implements the subtrack CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/api"
	"github.com/patcav/subtrack/internal/banklink"
	"github.com/patcav/subtrack/internal/config"
	"github.com/patcav/subtrack/internal/notify"
	"github.com/patcav/subtrack/internal/session"
	"github.com/patcav/subtrack/internal/storage"
	"github.com/patcav/subtrack/internal/subs"
)

var (
	flagDataDir     string
	flagQuiet       bool
	flagMock        bool
	flagAccessToken string
)

var rootCmd = &cobra.Command{
	Use:   "subtrack",
	Short: "Subscription tracker and budget advisor",
	Long:  "Track recurring-payment subscriptions from your linked bank account,\nwatch for rate changes, and get budget-based keep/cancel recommendations.",
	RunE:  runList,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Override the data directory")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagMock, "mock", false, "Use the backend's mock recurring-transaction data")
	rootCmd.PersistentFlags().StringVar(&flagAccessToken, "access-token", "", "Bank-link access token from a previous link run (kept in memory only)")
}

// app bundles the wired components for one command invocation.
type app struct {
	cfg      config.Config
	api      *api.Client
	kv       *storage.KV
	session  *session.Store
	repo     *subs.Repository
	notifier *notify.Notifier
	bank     *banklink.Manager
}

// newApp loads config and wires the component graph. The returned cleanup
// closes the durable store.
func newApp() (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Config unreadable, using defaults: %v\n", err)
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	if flagMock {
		cfg.General.MockRecurring = true
	}

	kv, err := storage.Open(config.StorePath(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("opening data store: %w", err)
	}

	client := api.New(api.Config{Origin: config.Origin(cfg)})
	sess := session.New(kv)
	repo := subs.New(client, sess)
	notifier := notify.New(client, sess, kv)
	bank := banklink.New(client, repo, notifier)

	if tok := flagAccessToken; tok != "" {
		bank.SetAccessToken(tok)
	} else if tok := config.AccessToken(); tok != "" {
		bank.SetAccessToken(tok)
	}

	a := &app{
		cfg:      cfg,
		api:      client,
		kv:       kv,
		session:  sess,
		repo:     repo,
		notifier: notifier,
		bank:     bank,
	}
	return a, func() { _ = kv.Close() }, nil
}

// restoreSession restores the persisted session or fails with a sign-in hint.
func (a *app) restoreSession() error {
	if _, ok := a.session.Restore(); !ok {
		return errors.New("not signed in — run `subtrack login` first")
	}
	return nil
}

// describeErr rewrites component errors into user-facing messages.
func describeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		return errors.New("session expired — run `subtrack login` to sign in again")
	case errors.Is(err, session.ErrNotSignedIn):
		return errors.New("not signed in — run `subtrack login` first")
	default:
		return err
	}
}

func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

func maskToken(tok string) string {
	if len(tok) > 16 {
		return tok[:8] + "..." + tok[len(tok)-4:]
	}
	if len(tok) > 4 {
		return tok[:4] + "..."
	}
	return "****"
}
