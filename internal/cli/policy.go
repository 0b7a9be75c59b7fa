package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raaihank/passforge/internal/policy"
)

func newPolicyCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Turn written password policies into rules",
	}
	cmd.AddCommand(newPolicyExtractCmd(root), newPolicyAnalyzeCmd(root))
	return cmd
}

type policyInput struct {
	file string
}

func (p *policyInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "Read the policy text from a file")
}

func (p *policyInput) read(cmd *cobra.Command, args []string) (string, error) {
	if p.file != "" {
		data, err := os.ReadFile(p.file)
		if err != nil {
			return "", fmt.Errorf("failed to read policy file: %w", err)
		}
		return string(data), nil
	}
	text, err := readArg(args, cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no policy text given")
	}
	return text, nil
}

func newPolicyExtractCmd(root *rootOptions) *cobra.Command {
	var in policyInput

	cmd := &cobra.Command{
		Use:   "extract [TEXT | -]",
		Short: "Print the rule set a policy text describes",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd, args)
			if err != nil {
				return err
			}

			extraction := root.services.Forge.ExtractRulesFromPolicyText(cmd.Context(), text)
			if root.jsonOutput {
				return root.printJSON(cmd.OutOrStdout(), extraction)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, policy.Summary(extraction.Rules))
			fmt.Fprintf(w, "source: %s\n", extraction.Source)
			if extraction.Ambiguous {
				fmt.Fprintln(w, "note: the policy names no character classes")
			}
			return nil
		},
	}
	in.bind(cmd)
	return cmd
}

func newPolicyAnalyzeCmd(root *rootOptions) *cobra.Command {
	var (
		in  policyInput
		out outputOptions
	)

	cmd := &cobra.Command{
		Use:   "analyze [TEXT | -]",
		Short: "Extract rules from a policy and generate passwords for it",
		Long: `Extract rules from a policy and generate passwords for it.

Examples:
  passforge policy analyze "Passwords must be 10-14 characters and include a number"
  passforge policy analyze -f policy.txt --show-strength
`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd, args)
			if err != nil {
				return err
			}

			analysis, err := root.services.Forge.AnalyzePolicyAndGenerate(cmd.Context(), text)
			if err != nil {
				return err
			}
			if root.jsonOutput {
				return root.printJSON(cmd.OutOrStdout(), analysis)
			}

			fmt.Fprintln(cmd.OutOrStdout(), analysis.Analysis)
			fmt.Fprintln(cmd.OutOrStdout())
			return root.deliver(cmd, analysis.Passwords, out)
		},
	}
	in.bind(cmd)
	out.bind(cmd)
	return cmd
}
