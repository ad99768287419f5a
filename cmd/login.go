package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your subtrack account",
	RunE:  runLogin,
}

var (
	loginUsername string
	loginPassword string
)

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	username := loginUsername
	password := loginPassword
	if username == "" {
		username = a.session.Username()
	}

	if loginUsername == "" || loginPassword == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Username").Value(&username),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
		))
		if err := form.Run(); err != nil {
			return err
		}
	}

	progress("  Signing in...\n")
	token, err := a.api.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	if err := a.session.SignIn(token); err != nil {
		return err
	}
	_ = a.session.SetUsername(username)

	fmt.Printf("  Signed in as %s.\n", username)
	return nil
}
