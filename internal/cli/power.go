package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/power"
	"github.com/littlebearapps/seo-ads-expert/internal/stats"
	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newPowerCmd())
}

func newPowerCmd() *cobra.Command {
	var targetPower, dailyImpressions float64

	cmd := &cobra.Command{
		Use:   "power <experiment>",
		Short: "Check whether a running experiment has enough statistical power",
		Args:  cobra.ExactArgs(1),
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

			analyzer := power.NewAnalyzer(
				stats.NewAnalyzer(stats.WithSampler(newSampler())),
				dailyImpressions,
				power.WithLogger(newLogger()),
			)

			check, err := analyzer.CheckPower(metrics[0], metrics[1], targetPower)
			if err != nil {
				return err
			}

			fmt.Printf("OBSERVED EFFECT: %+.2f points\n", check.ObservedEffect*100)
			fmt.Printf("ACHIEVED POWER: %.1f%% (target %.0f%%)\n", check.AchievedPower*100, check.TargetPower*100)
			if check.AdditionalSamples > 0 {
				fmt.Printf("ADDITIONAL SAMPLES: %d per arm (~%d days)\n", check.AdditionalSamples, check.AdditionalDays)
			}
			fmt.Printf("RECOMMENDATION: %s\n", check.Recommendation)
			return nil
		},
	}

	cmd.Flags().Float64Var(&targetPower, "target", 0.80, "target statistical power")
	cmd.Flags().Float64Var(&dailyImpressions, "daily-impressions", 1000, "typical daily impressions")

	return cmd
}
