package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions [transaction-id...]",
	Short: "Show raw transactions from the linked bank account",
	RunE:  runTransactions,
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show balances for the linked bank account",
	RunE:  runBalances,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(balancesCmd)
}

func runTransactions(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if !a.bank.Linked() {
		return errors.New("no linked bank account — run `subtrack link`, or pass --access-token")
	}

	progress("  Fetching transactions...\n")
	raw, err := a.bank.FetchTransactions(cmd.Context(), args)
	if err != nil {
		return describeErr(err)
	}
	return printJSON(raw)
}

func runBalances(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if !a.bank.Linked() {
		return errors.New("no linked bank account — run `subtrack link`, or pass --access-token")
	}

	progress("  Fetching balances...\n")
	raw, err := a.bank.FetchBalances(cmd.Context())
	if err != nil {
		return describeErr(err)
	}
	return printJSON(raw)
}

func printJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Println("  No data.")
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "  ", "  "); err != nil {
		fmt.Printf("  %s\n", raw)
		return nil
	}
	fmt.Printf("  %s\n", pretty.String())
	return nil
}
