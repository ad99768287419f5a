package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/cli"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link a bank account and import recurring payments",
	Long: "Fetches a one-time link handle, waits for the public token from the\n" +
		"completed bank-link widget flow, exchanges it for an access credential,\n" +
		"and imports recurring payments as subscriptions.\n\n" +
		"The access credential is held in memory only and is never persisted.",
	RunE: runLink,
}

var linkShowToken bool

func init() {
	linkCmd.Flags().BoolVar(&linkShowToken, "show-token", false, "Print the access token for reuse via SUBTRACK_ACCESS_TOKEN")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}

	progress("  Fetching link token...\n")
	handle, err := a.bank.RequestLinkHandle(cmd.Context())
	if err != nil {
		fmt.Println(cli.RenderStatus(a.bank.Status(), true))
		return err
	}

	fmt.Println()
	fmt.Printf("  Link handle: %s\n", handle)
	fmt.Println("  Complete the bank-link flow with this handle, then paste the")
	fmt.Println("  public token from its success callback below.")
	fmt.Println()

	var publicToken string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Public token").Value(&publicToken),
	))
	if err := form.Run(); err != nil {
		return err
	}

	if err := a.bank.CompleteLink(cmd.Context(), publicToken); err != nil {
		fmt.Println(cli.RenderStatus(a.bank.Status(), true))
		return err
	}
	fmt.Println(cli.RenderStatus(a.bank.Status(), false))

	if linkShowToken {
		if tok, ok := a.bank.AccessToken(); ok {
			fmt.Printf("  Access token: %s\n", tok)
		}
	} else if tok, ok := a.bank.AccessToken(); ok {
		fmt.Printf("  Access token: %s (use --show-token to reveal)\n", maskToken(tok))
	}

	var importNow bool
	confirm := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Import recurring payments now?").Value(&importNow),
	))
	if err := confirm.Run(); err != nil {
		return err
	}
	if !importNow {
		return nil
	}

	return importRecurring(cmd, a)
}
