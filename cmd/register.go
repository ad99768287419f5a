package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/api"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a subtrack account",
	RunE:  runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	var req api.RegisterRequest
	var confirm string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&req.FirstName),
			huh.NewInput().Title("Last name").Value(&req.LastName),
			huh.NewInput().Title("Username").Value(&req.Username),
			huh.NewInput().Title("Email").Value(&req.Email),
		),
		huh.NewGroup(
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&req.Password),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if req.Password != confirm {
		return errors.New("passwords do not match")
	}

	progress("  Creating account...\n")
	token, err := a.api.Register(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := a.session.SignIn(token); err != nil {
		return err
	}
	_ = a.session.SetUsername(req.Username)

	fmt.Printf("  Account created. Signed in as %s.\n", req.Username)
	return nil
}
