package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/stats"
	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	var confidence, minEffect float64
	var apply bool

	cmd := &cobra.Command{
		Use:   "check <experiment>",
		Short: "Run the early-stopping policy for an experiment",
		Long: `Decide whether an experiment should stop now: decisive success, decisive
harm, futility, or an exhausted sample budget. With --apply, a stop verdict
completes the experiment (recording the variant as winner on success).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

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
			if len(exp.Arms) < 2 {
				return fmt.Errorf("experiment %q has no variant arm", name)
			}

			metrics, err := armMetrics(ctx, s, exp)
			if err != nil {
				return err
			}

			analyzer := stats.NewAnalyzer(
				stats.WithSampler(newSampler()),
				stats.WithLogger(newLogger()),
			)

			// The lifecycle decision compares the control against the
			// strongest variant.
			best := 1
			for i := 2; i < len(metrics); i++ {
				if metrics[i].Rate() > metrics[best].Rate() {
					best = i
				}
			}

			verdict, err := analyzer.ShouldStopEarly(metrics[0], metrics[best], confidence, minEffect)
			if err != nil {
				return err
			}

			fmt.Printf("EXPERIMENT: %s (%s vs %s)\n", exp.Name, exp.Arms[best], exp.Arms[0])
			if verdict.Stop {
				fmt.Printf("VERDICT: stop (%s)\n", verdict.Reason)
			} else {
				fmt.Println("VERDICT: continue")
			}
			fmt.Printf("CONFIDENCE: %.1f%%\n", verdict.Confidence*100)
			fmt.Printf("RECOMMENDATION: %s\n", verdict.Recommendation)

			if apply && verdict.Stop {
				var winner *int
				if verdict.Reason == stats.StopSuccess {
					winner = &best
				} else if verdict.Reason == stats.StopHarm {
					control := 0
					winner = &control
				}
				if err := s.UpdateExperimentState(ctx, name, store.StateCompleted, winner); err != nil {
					return fmt.Errorf("failed to complete experiment: %w", err)
				}
				fmt.Println("Experiment marked completed.")
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "target confidence for the stopping decision")
	cmd.Flags().Float64Var(&minEffect, "min-effect", 0.05, "minimum relative effect worth detecting")
	cmd.Flags().BoolVar(&apply, "apply", false, "complete the experiment when the verdict says stop")

	return cmd
}
