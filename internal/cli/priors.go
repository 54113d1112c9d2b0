package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/priors"
	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newPriorsCmd())
}

func newPriorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priors",
		Short: "Compute and update per-arm prior distributions",
	}
	cmd.AddCommand(newPriorsComputeCmd())
	cmd.AddCommand(newPriorsUpdateCmd())
	return cmd
}

func newPriorsComputeCmd() *cobra.Command {
	var strategyName, armsFile, historyFile string
	var save bool

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Derive priors for a set of arms from historical performance",
		Long: `Compute Beta (conversion rate) and Gamma (conversion value) priors for
each arm. The hierarchical strategy shrinks sparse arms toward their
category; the informative strategy starts from channel-level defaults.

Example:
  adsexpert priors compute --arms arms.json --history history.json --strategy hierarchical --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := newPriorStrategy(strategyName)
			if err != nil {
				return err
			}

			var arms []priors.Arm
			if err := readJSONFile(armsFile, &arms); err != nil {
				return err
			}

			var historical *priors.HistoricalData
			if historyFile != "" {
				historical = &priors.HistoricalData{}
				if err := readJSONFile(historyFile, historical); err != nil {
					return err
				}
			}

			dists, err := strategy.ComputePriors(arms, historical)
			if err != nil {
				return fmt.Errorf("failed to compute priors: %w", err)
			}

			printDistributions(dists)

			if save {
				s, err := store.Open(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer s.Close()
				if err := saveSnapshots(context.Background(), s, dists, strategy.Metadata().Name); err != nil {
					return err
				}
				fmt.Printf("Saved %d prior snapshots.\n", len(dists))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "hierarchical", "prior strategy: hierarchical or informative")
	cmd.Flags().StringVar(&armsFile, "arms", "", "JSON file describing the arms")
	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with historical performance (optional)")
	cmd.Flags().BoolVar(&save, "save", false, "persist the computed priors as snapshots")
	cmd.MarkFlagRequired("arms")

	return cmd
}

func newPriorsUpdateCmd() *cobra.Command {
	var dataFile string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply new observations to saved prior snapshots",
		Long: `Load the latest saved snapshot for each arm named in the observations
file, apply the conjugate updates, and save the refreshed snapshots.

Example:
  adsexpert priors update --data observations.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var observations []priors.Observation
			if err := readJSONFile(dataFile, &observations); err != nil {
				return err
			}
			if len(observations) == 0 {
				return fmt.Errorf("no observations in %s", dataFile)
			}

			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer s.Close()

			ctx := context.Background()

			seen := make(map[string]bool)
			var current []priors.Distribution
			strategyName := ""
			for _, obs := range observations {
				if seen[obs.ArmID] {
					continue
				}
				seen[obs.ArmID] = true

				snap, err := s.GetPriorSnapshot(ctx, obs.ArmID)
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("no saved priors for arm %q; run priors compute --save first", obs.ArmID)
					}
					return fmt.Errorf("failed to load snapshot for %q: %w", obs.ArmID, err)
				}

				var d priors.Distribution
				if err := json.Unmarshal(snap.Payload, &d); err != nil {
					return fmt.Errorf("corrupt snapshot for %q: %w", obs.ArmID, err)
				}
				current = append(current, d)
				if strategyName == "" {
					strategyName = snap.Strategy
				}
			}

			strategy, err := newPriorStrategy(strategyName)
			if err != nil {
				return err
			}

			updated := strategy.UpdatePriors(current, observations)
			printDistributions(updated)

			if err := saveSnapshots(ctx, s, updated, strategyName); err != nil {
				return err
			}
			fmt.Printf("Updated %d prior snapshots.\n", len(updated))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "JSON file with new observations")
	cmd.MarkFlagRequired("data")

	return cmd
}

func newPriorStrategy(name string) (priors.Strategy, error) {
	switch name {
	case "hierarchical":
		return priors.NewHierarchicalBayes(priors.WithHierarchicalLogger(newLogger())), nil
	case "informative":
		return priors.NewInformative(priors.WithInformativeLogger(newLogger())), nil
	default:
		return nil, fmt.Errorf("unknown prior strategy %q (want hierarchical or informative)", name)
	}
}

func printDistributions(dists []priors.Distribution) {
	fmt.Println("ARM               SOURCE         CVR MEAN  VALUE MEAN  SAMPLES  RELIABILITY")
	fmt.Println(strings.Repeat("─", 78))
	for _, d := range dists {
		fmt.Printf("%-16s  %-13s  %-8s  $%-9.2f  %-7d  %.2f\n",
			truncate(d.ArmID, 16), d.Source, formatPercent(d.ConversionRate.Mean()),
			d.ConversionValue.Mean(), d.SampleSize, d.Reliability)
	}
}

func saveSnapshots(ctx context.Context, s store.Store, dists []priors.Distribution, strategyName string) error {
	for _, d := range dists {
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode priors for %q: %w", d.ArmID, err)
		}
		snap := &store.PriorSnapshot{
			ArmID:     d.ArmID,
			Strategy:  strategyName,
			Payload:   payload,
			UpdatedAt: time.Now(),
		}
		if err := s.SavePriorSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("failed to save snapshot for %q: %w", d.ArmID, err)
		}
	}
	return nil
}
