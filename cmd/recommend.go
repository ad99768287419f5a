package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/patcav/subtrack/internal/cli"
	"github.com/patcav/subtrack/internal/model"
	"github.com/patcav/subtrack/internal/workflow"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank your subscriptions and get a budget keep/cancel recommendation",
	RunE:  runRecommend,
}

var recommendBudget string

func init() {
	recommendCmd.Flags().StringVarP(&recommendBudget, "budget", "b", "", "Monthly budget (prompted when omitted)")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := a.restoreSession(); err != nil {
		return err
	}
	if !a.bank.Linked() {
		return errors.New("no linked bank account — run `subtrack link`, or pass --access-token")
	}

	if _, err := a.repo.List(cmd.Context()); err != nil {
		return describeErr(err)
	}
	active, _ := a.repo.Partition()

	wf := workflow.New(a.api, a.session, a.bank)

	budget := recommendBudget
	if budget == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Monthly budget ($)").Value(&budget),
		))
		if err := form.Run(); err != nil {
			return err
		}
	}
	if err := wf.Begin(budget); err != nil {
		return err
	}
	if err := wf.StartRanking(active); err != nil {
		return err
	}

	rec, err := collectAndSubmit(cmd, wf, active)
	if err != nil {
		return describeErr(err)
	}

	records := a.repo.Records()
	fmt.Println()
	fmt.Println(cli.RenderTitle("RECOMMENDATION"))
	fmt.Println()
	printIDList("Keep", rec.Keep, records)
	printIDList("Cancel", rec.Cancel, records)
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Rows: [][]string{
			{"Total subscriptions", cli.FormatTotal(rec.TotalSubscriptions)},
			{"Other transactions", cli.FormatTotal(rec.OtherTransactions)},
			{"All spending", cli.FormatTotal(rec.AllSpending)},
		},
	}))
	return nil
}

// collectAndSubmit prompts for ranks and submits, re-prompting while the
// ranking fails client-side validation.
func collectAndSubmit(cmd *cobra.Command, wf *workflow.Workflow, active []model.SubscriptionRecord) (*model.Recommendation, error) {
	n := len(active)
	values := make([]string, n)

	for {
		fields := make([]huh.Field, 0, n)
		for i, rec := range active {
			label := fmt.Sprintf("%s (1 = most valued, max %d)", rec.Name, n)
			fields = append(fields, huh.NewInput().Title(label).Value(&values[i]))
		}
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			wf.Abandon()
			return nil, err
		}

		for i, rec := range active {
			if err := wf.SetRank(rec.ID, values[i]); err != nil {
				return nil, err
			}
		}

		rec, err := wf.Submit(cmd.Context())
		var verr *workflow.ValidationError
		if errors.As(err, &verr) {
			fmt.Println(cli.RenderStatus(verr.Reason, true))
			continue
		}
		return rec, err
	}
}

func printIDList(label string, ids []string, records []model.SubscriptionRecord) {
	if len(ids) == 0 {
		fmt.Printf("  %s: none\n", label)
		return
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, model.NameFor(id, records))
	}
	fmt.Printf("  %s: ", label)
	for i, name := range names {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(name)
	}
	fmt.Println()
}
