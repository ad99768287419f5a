package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Password reset",
}

var resetRequestCmd = &cobra.Command{
	Use:   "request <email>",
	Short: "Request a password reset link by email",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetRequest,
}

var resetConfirmCmd = &cobra.Command{
	Use:   "confirm <uid> <token>",
	Short: "Complete a password reset with the uid and token from the mailed link",
	Args:  cobra.ExactArgs(2),
	RunE:  runResetConfirm,
}

var resetNewPassword string

func init() {
	resetConfirmCmd.Flags().StringVar(&resetNewPassword, "new-password", "", "New password (prompted when omitted)")
	resetCmd.AddCommand(resetRequestCmd)
	resetCmd.AddCommand(resetConfirmCmd)
	rootCmd.AddCommand(resetCmd)
}

func runResetRequest(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.api.RequestPasswordReset(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("  Reset link requested — check your email.")
	return nil
}

func runResetConfirm(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	password := resetNewPassword
	if password == "" {
		var confirm string
		if err := promptPasswords(&password, &confirm); err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
	}

	if err := a.api.ConfirmPasswordReset(cmd.Context(), args[0], args[1], password); err != nil {
		return err
	}
	fmt.Println("  Password has been reset. You may now log in.")
	return nil
}

func promptPasswords(password, confirm *string) error {
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(password),
		huh.NewInput().Title("Confirm new password").EchoMode(huh.EchoModePassword).Value(confirm),
	))
	return form.Run()
}
