package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/budget"
	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newAllocateCmd())
}

func newAllocateCmd() *cobra.Command {
	var strategyName, armsFile string
	var total, minDaily, maxDaily float64
	var force, save bool

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Project campaign budgets onto their constraints",
		Long: `Validate the constraint set, project each arm's proposed budget onto
its bounds so the vector sums to the total, and round to exact cents.
Validation violations block allocation unless --force is given.

Example:
  adsexpert allocate --arms campaigns.json --total 1000 --strategy advanced --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var arms []budget.Arm
			if err := readJSONFile(armsFile, &arms); err != nil {
				return err
			}
			if len(arms) == 0 {
				return fmt.Errorf("no arms in %s", armsFile)
			}

			strategy, err := newBudgetStrategy(strategyName)
			if err != nil {
				return err
			}

			constraints := budget.Constraints{
				TotalBudget:    total,
				MinDailyBudget: minDaily,
				MaxDailyBudget: maxDaily,
			}

			result := strategy.Validate(constraints, arms)
			for _, v := range result.Violations {
				fmt.Printf("VIOLATION [%s]: %s\n", v.Type, v.Message)
				if v.SuggestedFix != "" {
					fmt.Printf("  fix: %s\n", v.SuggestedFix)
				}
			}
			for _, w := range result.Warnings {
				fmt.Printf("WARNING [%s/%s]: %s\n", w.Type, w.Impact, w.Message)
			}
			if !result.Valid && !force {
				return fmt.Errorf("constraint set is infeasible; rerun with --force to allocate anyway")
			}

			raw := make([]float64, len(arms))
			for i, arm := range arms {
				raw[i] = arm.CurrentBudget
			}

			allocated, err := strategy.Apply(raw, constraints, arms)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}
			amounts := budget.RoundToCents(allocated, total)

			fmt.Println()
			fmt.Printf("STRATEGY: %s\n", strategy.Metadata().Name)
			fmt.Println()
			fmt.Println("ARM               PROPOSED    ALLOCATED   BOUNDS")
			fmt.Println(strings.Repeat("─", 58))
			allocatedTotal := decimal.Zero
			for i, arm := range arms {
				fmt.Printf("%-16s  $%-9.2f  $%-9s  [%.2f, %.2f]\n",
					truncate(arm.ID, 16), arm.CurrentBudget, amounts[i].StringFixed(2), arm.MinBudget, arm.MaxBudget)
				allocatedTotal = allocatedTotal.Add(amounts[i])
			}
			fmt.Println(strings.Repeat("─", 58))
			fmt.Printf("%-16s  %-11s $%s\n", "TOTAL", "", allocatedTotal.StringFixed(2))

			if save {
				s, err := store.Open(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer s.Close()

				armIDs := make([]string, len(arms))
				for i, arm := range arms {
					armIDs[i] = arm.ID
				}
				run := &store.AllocationRun{
					ID:          uuid.NewString(),
					Strategy:    strategy.Metadata().Name,
					TotalBudget: decimal.NewFromFloat(total),
					ArmIDs:      armIDs,
					Amounts:     amounts,
					CreatedAt:   time.Now(),
				}
				if err := s.SaveAllocationRun(context.Background(), run); err != nil {
					return fmt.Errorf("failed to save allocation run: %w", err)
				}
				fmt.Printf("\nSaved allocation run %s\n", run.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "basic", "allocation strategy: basic or advanced")
	cmd.Flags().StringVar(&armsFile, "arms", "", "JSON file describing the arms and their proposed budgets")
	cmd.Flags().Float64Var(&total, "total", 0, "total budget to allocate")
	cmd.Flags().Float64Var(&minDaily, "min-daily", 0, "global minimum daily budget per arm (0 = unset)")
	cmd.Flags().Float64Var(&maxDaily, "max-daily", 0, "global maximum daily budget per arm (0 = unset)")
	cmd.Flags().BoolVar(&force, "force", false, "allocate even when validation reports violations")
	cmd.Flags().BoolVar(&save, "save", false, "persist the allocation run")
	cmd.MarkFlagRequired("arms")
	cmd.MarkFlagRequired("total")

	return cmd
}

func newBudgetStrategy(name string) (budget.Strategy, error) {
	switch name {
	case "basic":
		return budget.NewBasic(budget.WithBasicLogger(newLogger())), nil
	case "advanced":
		return budget.NewAdvanced(budget.WithAdvancedLogger(newLogger())), nil
	default:
		return nil, fmt.Errorf("unknown allocation strategy %q (want basic or advanced)", name)
	}
}
