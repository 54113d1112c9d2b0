package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/power"
	"github.com/littlebearapps/seo-ads-expert/internal/stats"
)

func init() {
	rootCmd.AddCommand(newPlanCmd())
}

func newPlanCmd() *cobra.Command {
	var baseline, lift, confidence, targetPower, dailyImpressions float64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan sample size and duration for a new experiment",
		Long: `Compute the sample size needed to detect a relative lift over a
baseline conversion rate, and estimate how long it will take at the
account's typical daily traffic.

Example:
  adsexpert plan --baseline 0.05 --lift 0.10 --daily-impressions 20000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer := power.NewAnalyzer(
				stats.NewAnalyzer(stats.WithSampler(newSampler())),
				dailyImpressions,
				power.WithLogger(newLogger()),
			)

			plan, err := analyzer.PlanExperiment(baseline, lift, confidence, targetPower)
			if err != nil {
				return err
			}

			fmt.Printf("SAMPLE SIZE: %d per arm (%d total)\n", plan.SampleSizePerArm, plan.TotalSampleSize)
			fmt.Printf("DAILY TRAFFIC: %.0f conversions-eligible visits/day\n", plan.DailyTraffic)
			fmt.Printf("ESTIMATED DURATION: %d days\n", plan.EstimatedDays)
			fmt.Println()
			for _, rec := range plan.Recommendations {
				fmt.Printf("  • %s\n", rec)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&baseline, "baseline", 0.05, "baseline conversion rate")
	cmd.Flags().Float64Var(&lift, "lift", 0.10, "desired relative lift to detect")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "confidence level")
	cmd.Flags().Float64Var(&targetPower, "power", 0.80, "statistical power")
	cmd.Flags().Float64Var(&dailyImpressions, "daily-impressions", 1000, "typical daily impressions")

	return cmd
}
