package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raaihank/passforge/internal/forge"
	"github.com/raaihank/passforge/internal/rules"
	"github.com/raaihank/passforge/internal/sink"
)

type outputOptions struct {
	copy         bool
	showStrength bool
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.copy, "copy", false, "Copy the first password to the clipboard")
	cmd.Flags().BoolVar(&o.showStrength, "show-strength", false, "Print the strength level next to each password")
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		count int
		out   outputOptions
	)
	r := rules.Default()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate passwords from a rule set",
		Long: `Generate passwords that satisfy a rule set. Every enabled class appears at
least once and ambiguous characters are never used.

Examples:
  passforge generate
  passforge generate --min 20 --max 24 --symbols=false -n 10
  passforge generate --copy
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 0 {
				return fmt.Errorf("count must not be negative")
			}
			if limit := root.cfg.Generator.MaxCount; count > limit {
				return fmt.Errorf("count %d exceeds the maximum of %d", count, limit)
			}

			passwords, err := root.services.Forge.GenerateN(cmd.Context(), r, count)
			if err != nil {
				return err
			}
			return root.deliver(cmd, passwords, out)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&count, "count", "n", 0, "Number of passwords (defaults to the configured batch size)")
	flags.IntVar(&r.MinLength, "min", r.MinLength, "Minimum length")
	flags.IntVar(&r.MaxLength, "max", r.MaxLength, "Maximum length")
	flags.BoolVar(&r.IncludeUppercase, "upper", r.IncludeUppercase, "Include uppercase letters")
	flags.BoolVar(&r.IncludeLowercase, "lower", r.IncludeLowercase, "Include lowercase letters")
	flags.BoolVar(&r.IncludeNumbers, "numbers", r.IncludeNumbers, "Include digits")
	flags.BoolVar(&r.IncludeSymbols, "symbols", r.IncludeSymbols, "Include symbols")
	flags.BoolVar(&r.AvoidCommonWords, "avoid-common", r.AvoidCommonWords, "Ask remote candidates to avoid common words")
	flags.BoolVar(&r.AvoidPersonalInfo, "avoid-personal", r.AvoidPersonalInfo, "Ask remote candidates to avoid personal information")
	out.bind(cmd)

	return cmd
}

// deliver prints passwords and optionally copies the first one
func (o *rootOptions) deliver(cmd *cobra.Command, passwords []forge.GeneratedPassword, opts outputOptions) error {
	w := cmd.OutOrStdout()

	switch {
	case o.jsonOutput:
		if err := o.printJSON(w, passwords); err != nil {
			return err
		}
	case opts.showStrength:
		for _, p := range passwords {
			fmt.Fprintf(w, "%s\t%s (%d)\n", p.Password, p.Strength.Level, p.Strength.Score)
		}
	default:
		writer := sink.NewWriterSink(w)
		var first sink.Sink = writer
		copied := opts.copy && len(passwords) > 0
		if copied {
			first = sink.Multi{writer, sink.NewClipboardSink()}
			opts.copy = false
		}
		if len(passwords) > 0 {
			if err := first.Deliver(passwords[0].Password); err != nil {
				return err
			}
			if err := deliverAll(writer, passwords[1:]); err != nil {
				return err
			}
		}
		if copied {
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied the first password to the clipboard")
		}
	}

	if opts.copy && len(passwords) > 0 {
		if err := sink.NewClipboardSink().Deliver(passwords[0].Password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied the first password to the clipboard")
	}
	return nil
}

func deliverAll(s sink.Sink, passwords []forge.GeneratedPassword) error {
	for _, p := range passwords {
		if err := s.Deliver(p.Password); err != nil {
			return err
		}
	}
	return nil
}
