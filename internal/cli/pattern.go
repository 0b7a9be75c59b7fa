package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raaihank/passforge/internal/pattern"
)

func newPatternCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Work with password templates",
		Long: `Templates map each character to a class: A upper, a lower, 1 digit, @ symbol,
X alphanumeric, C/c consonant, V/v vowel. Any other letter, digit or ASCII
punctuation is copied as a literal. Spaces are rejected.

Examples:
  passforge pattern generate Aa1@Aa1@ -n 5
  passforge pattern validate CvcCvc11
  passforge pattern tokens
`,
	}

	cmd.AddCommand(
		newPatternGenerateCmd(root),
		newPatternValidateCmd(root),
		newPatternComplexityCmd(root),
		newPatternTokensCmd(root),
		newPatternPresetsCmd(root),
	)
	return cmd
}

func newPatternGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		count int
		out   outputOptions
	)

	cmd := &cobra.Command{
		Use:   "generate TEMPLATE",
		Short: "Expand a template into passwords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > root.cfg.Generator.MaxCount {
				return fmt.Errorf("count must be between 1 and %d", root.cfg.Generator.MaxCount)
			}

			passwords, err := root.services.Forge.GenerateFromPatternN(args[0], count)
			if err != nil {
				var invalid *pattern.ValidationError
				if errors.As(err, &invalid) && root.jsonOutput {
					root.printJSON(cmd.OutOrStdout(), pattern.ValidationResult{Valid: false, Errors: invalid.Errors})
				}
				return err
			}
			return root.deliver(cmd, passwords, out)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of passwords")
	out.bind(cmd)
	return cmd
}

func newPatternValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate TEMPLATE",
		Short: "Check a template without generating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := root.services.Forge.ValidatePattern(args[0])
			if root.jsonOutput {
				if result.Errors == nil {
					result.Errors = []string{}
				}
				if err := root.printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
			} else {
				for _, e := range result.Errors {
					fmt.Fprintln(cmd.OutOrStdout(), e)
				}
			}

			if !result.Valid {
				return errors.New("template is invalid")
			}
			return nil
		},
	}
}

func newPatternComplexityCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complexity TEMPLATE",
		Short: "Score the structure of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := root.services.Forge.PatternComplexity(args[0])
			if root.jsonOutput {
				return root.printJSON(cmd.OutOrStdout(), c)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "score\t%d\n", c.Score)
			fmt.Fprintf(w, "length\t%d\n", c.Length)
			fmt.Fprintf(w, "uppercase\t%t\n", c.HasUppercase)
			fmt.Fprintf(w, "lowercase\t%t\n", c.HasLowercase)
			fmt.Fprintf(w, "numbers\t%t\n", c.HasNumbers)
			fmt.Fprintf(w, "symbols\t%t\n", c.HasSymbols)
			return w.Flush()
		},
	}
}

func newPatternTokensCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List template tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens := pattern.Tokens()
			if root.jsonOutput {
				return root.printJSON(cmd.OutOrStdout(), tokens)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tNAME\tEXAMPLE\tDESCRIPTION")
			for _, t := range tokens {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Pattern, t.Name, t.Example, t.Description)
			}
			return w.Flush()
		},
	}
}

func newPatternPresetsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List built-in templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets := pattern.Presets()
			if root.jsonOutput {
				return root.printJSON(cmd.OutOrStdout(), presets)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTEMPLATE\tDESCRIPTION")
			for _, p := range presets {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Pattern, p.Description)
			}
			return w.Flush()
		},
	}
}
