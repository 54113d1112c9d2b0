package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newRecordCmd())
}

func newRecordCmd() *cobra.Command {
	var successes, trials int

	cmd := &cobra.Command{
		Use:   "record <experiment> <arm-index>",
		Short: "Record outcome counts for an arm",
		Long: `Record a batch of outcome counts (successes over trials) for one arm
of an experiment, as supplied by the upstream metrics collector.

Example:
  adsexpert record headline-q3 1 --successes 70 --trials 1000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			arm, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid arm index %q", args[1])
			}

			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer s.Close()

			ctx := context.Background()
			exp, err := s.GetExperiment(ctx, name)
			if err != nil {
				if err == store.ErrNotFound {
					return fmt.Errorf("experiment %q not found", name)
				}
				return fmt.Errorf("failed to get experiment: %w", err)
			}

			if arm < 0 || arm >= len(exp.Arms) {
				return fmt.Errorf("invalid arm index %d (experiment has %d arms: 0-%d)", arm, len(exp.Arms), len(exp.Arms)-1)
			}
			if exp.State != store.StateRunning {
				return fmt.Errorf("experiment is not running (current state: %s)", exp.State)
			}

			if err := s.RecordObservation(ctx, name, arm, successes, trials); err != nil {
				return fmt.Errorf("failed to record observation: %w", err)
			}

			fmt.Printf("Recorded %d/%d for arm %q\n", successes, trials, exp.Arms[arm])
			return nil
		},
	}

	cmd.Flags().IntVar(&successes, "successes", 0, "number of successes in this batch")
	cmd.Flags().IntVar(&trials, "trials", 0, "number of trials in this batch")
	cmd.MarkFlagRequired("trials")

	return cmd
}
