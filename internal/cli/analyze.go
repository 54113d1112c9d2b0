package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/stats"
	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newAnalyzeCmd())
}

func newAnalyzeCmd() *cobra.Command {
	var confidence float64
	var priorAlpha, priorBeta float64

	cmd := &cobra.Command{
		Use:   "analyze <experiment>",
		Short: "Run frequentist and Bayesian analysis for an experiment",
		Long: `Compare each variant arm against the control with a two-proportion
z-test and a Monte Carlo Beta-posterior comparison.`,
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

			metrics, err := armMetrics(ctx, s, exp)
			if err != nil {
				return err
			}

			analyzer := stats.NewAnalyzer(
				stats.WithSampler(newSampler()),
				stats.WithLogger(newLogger()),
			)

			fmt.Printf("EXPERIMENT: %s\n", exp.Name)
			fmt.Printf("STATE: %s\n", exp.State)
			if exp.Goal != "" {
				fmt.Printf("GOAL: %s\n", exp.Goal)
			}
			fmt.Println()

			fmt.Println("ARM               SUCCESSES  TRIALS   RATE")
			fmt.Println(strings.Repeat("─", 48))
			for i, armName := range exp.Arms {
				m := metrics[i]
				label := armName
				if i == 0 {
					label += " (control)"
				}
				fmt.Printf("%-16s  %-9d  %-7d  %s\n", truncate(label, 16), m.Successes, m.Trials, formatPercent(m.Rate()))
			}
			fmt.Println()

			control := metrics[0]
			for i := 1; i < len(exp.Arms); i++ {
				variant := metrics[i]

				test, err := analyzer.TwoProportionTest(control, variant, confidence)
				if err != nil {
					return err
				}
				bayes := analyzer.BayesianAB(control, variant, priorAlpha, priorBeta)

				fmt.Printf("%s vs %s\n", exp.Arms[i], exp.Arms[0])
				fmt.Printf("  z-test:   p=%.4f  uplift=%+.1f%%  CI=[%+.2f%%, %+.2f%%]  effect=%s  → %s\n",
					test.PValue, test.Uplift, test.ConfidenceInterval[0], test.ConfidenceInterval[1], test.Effect, test.Recommendation)
				if !test.SampleSizeAdequate {
					fmt.Println("  z-test:   sample size not yet adequate for a trustworthy verdict")
				}
				fmt.Printf("  bayesian: P(better)=%.3f  lift=%+.1f%%  CrI=[%+.1f%%, %+.1f%%]  → %s\n",
					bayes.ProbabilityVariantBetter, bayes.ExpectedLift*100,
					bayes.CredibleInterval[0]*100, bayes.CredibleInterval[1]*100, bayes.Recommendation)
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "confidence level for the z-test")
	cmd.Flags().Float64Var(&priorAlpha, "prior-alpha", 1, "Beta prior alpha for the Bayesian comparison")
	cmd.Flags().Float64Var(&priorBeta, "prior-beta", 1, "Beta prior beta for the Bayesian comparison")

	return cmd
}

// armMetrics loads accumulated counts and indexes them by arm position.
func armMetrics(ctx context.Context, s store.Store, exp *store.Experiment) ([]stats.MetricData, error) {
	totals, err := s.GetArmTotals(ctx, exp.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get arm totals: %w", err)
	}

	metrics := make([]stats.MetricData, len(exp.Arms))
	for _, t := range totals {
		if t.Arm >= 0 && t.Arm < len(metrics) {
			metrics[t.Arm] = stats.MetricData{Successes: t.Successes, Trials: t.Trials}
		}
	}
	return metrics, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
