package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/littlebearapps/seo-ads-expert/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var armsFlag string
	var goal string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new experiment",
		Long: `Register an experiment comparing a control arm against one or more
variants. The first arm is always the control.

Example:
  adsexpert create headline-q3 --arms control,short-copy --goal "signup clicks"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var arms []string
			if armsFlag != "" {
				for _, a := range strings.Split(armsFlag, ",") {
					a = strings.TrimSpace(a)
					if a != "" {
						arms = append(arms, a)
					}
				}
			} else {
				var err error
				arms, err = promptForArms()
				if err != nil {
					return err
				}
			}

			if len(arms) < 2 {
				return fmt.Errorf("an experiment needs at least two arms, got %d", len(arms))
			}

			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer s.Close()

			exp, err := s.CreateExperiment(context.Background(), name, arms, goal)
			if err != nil {
				return fmt.Errorf("failed to create experiment: %w", err)
			}

			fmt.Printf("Created experiment %q with %d arms (control: %s)\n", exp.Name, len(exp.Arms), exp.Arms[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&armsFlag, "arms", "", "comma-separated arm names; first is the control")
	cmd.Flags().StringVar(&goal, "goal", "", "what a success means for this experiment")

	return cmd
}

// promptForArms collects arm names interactively when --arms is omitted.
func promptForArms() ([]string, error) {
	control := promptui.Prompt{
		Label: "Control arm name",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("name cannot be empty")
			}
			return nil
		},
	}
	controlName, err := control.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return nil, fmt.Errorf("cancelled")
		}
		return nil, err
	}

	arms := []string{strings.TrimSpace(controlName)}
	for {
		variant := promptui.Prompt{
			Label: fmt.Sprintf("Variant arm name (%d added, empty to finish)", len(arms)-1),
		}
		name, err := variant.Run()
		if err != nil {
			if err == promptui.ErrInterrupt {
				return nil, fmt.Errorf("cancelled")
			}
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			if len(arms) >= 2 {
				break
			}
			fmt.Println("Add at least one variant.")
			continue
		}
		arms = append(arms, name)
	}

	return arms, nil
}
