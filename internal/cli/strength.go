package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raaihank/passforge/internal/strength"
)

type strengthReport struct {
	strength.Result
	CrossCheck *strength.Estimate `json:"crossCheck,omitempty"`
}

func newStrengthCmd(root *rootOptions) *cobra.Command {
	var (
		crossCheck bool
		userInputs []string
	)

	cmd := &cobra.Command{
		Use:   "strength [PASSWORD | -]",
		Short: "Score a password",
		Long: `Score a password from 0 to 100 and print feedback. With no argument, or
"-", the password is read from stdin so it stays out of shell history.

Examples:
  passforge strength 'Tr0ub4dor&3'
  printf '%s' "$PW" | passforge strength --cross-check --user-input alice
`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("no password given")
			}

			report := strengthReport{Result: root.services.Forge.AnalyzeStrength(password)}
			if crossCheck || len(userInputs) > 0 {
				est := root.services.Forge.CrossCheck(password, userInputs)
				report.CrossCheck = &est
			}

			if root.jsonOutput {
				return root.printJSON(cmd.OutOrStdout(), report)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Score:         %d/100 (%s)\n", report.Score, report.Level)
			fmt.Fprintf(w, "Entropy:       %.1f bits\n", report.Entropy)
			fmt.Fprintf(w, "Time to crack: %s\n", report.TimeToCrack)
			if report.CrossCheck != nil {
				fmt.Fprintf(w, "Cross-check:   %d/4, cracked in %s\n", report.CrossCheck.Score, report.CrossCheck.CrackTimeDisplay)
			}
			for _, f := range report.Feedback {
				fmt.Fprintf(w, "  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&crossCheck, "cross-check", false, "Also run the zxcvbn estimator")
	cmd.Flags().StringSliceVar(&userInputs, "user-input", nil, "Personal words the zxcvbn estimator should penalise (implies --cross-check)")
	return cmd
}
