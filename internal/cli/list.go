package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List experiments, or recent allocation runs with --runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer s.Close()

			ctx := context.Background()

			if runs > 0 {
				return listAllocationRuns(ctx, s, runs)
			}
			return listExperiments(ctx, s)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 0, "show the N most recent allocation runs instead of experiments")

	return cmd
}

func listExperiments(ctx context.Context, s store.Store) error {
	experiments, err := s.ListExperiments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list experiments: %w", err)
	}
	if len(experiments) == 0 {
		fmt.Println("No experiments yet. Create one with: adsexpert create <name>")
		return nil
	}

	fmt.Println("NAME                    STATE      ARMS  WINNER            CREATED")
	fmt.Println(strings.Repeat("─", 74))
	for _, exp := range experiments {
		winner := "-"
		if exp.Winner != nil && *exp.Winner >= 0 && *exp.Winner < len(exp.Arms) {
			winner = exp.Arms[*exp.Winner]
		}
		fmt.Printf("%-22s  %-9s  %-4d  %-16s  %s\n",
			truncate(exp.Name, 22), exp.State, len(exp.Arms), truncate(winner, 16),
			exp.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func listAllocationRuns(ctx context.Context, s store.Store, limit int) error {
	list, err := s.ListAllocationRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list allocation runs: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No allocation runs yet. Create one with: adsexpert allocate --save")
		return nil
	}

	for _, run := range list {
		fmt.Printf("%s  %-9s  total $%s  (%s)\n",
			run.CreatedAt.Format("2006-01-02 15:04"), run.Strategy,
			run.TotalBudget.StringFixed(2), run.ID)
		for i, armID := range run.ArmIDs {
			if i < len(run.Amounts) {
				fmt.Printf("    %-20s $%s\n", truncate(armID, 20), run.Amounts[i].StringFixed(2))
			}
		}
	}
	return nil
}
