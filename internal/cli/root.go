package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/littlebearapps/seo-ads-expert/internal/dist"
)

var (
	dbPath  string
	seed    int64
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "adsexpert",
	Short: "Bayesian experimentation and budget-allocation engine for ad campaigns",
	Long: `adsexpert is the decision engine of a marketing-operations toolkit:
A/B test verdicts, Bayesian posterior inference, and constrained budget
allocation. Metric collection and budget publishing live in separate tools;
this binary only analyzes and decides.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("ADSX_DB_PATH", "./adsexpert.db"), "database path")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed for reproducible Monte Carlo runs (0 = time-based)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newLogger builds the CLI's logger: silent unless --verbose.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newSampler honors --seed for reproducible runs.
func newSampler() *dist.Sampler {
	if seed == 0 {
		return dist.NewSampler(nil)
	}
	return dist.NewSampler(dist.NewSource(seed))
}
