// Package cli implements the passforge command line
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raaihank/passforge/internal/app"
	"github.com/raaihank/passforge/internal/config"
	"github.com/raaihank/passforge/internal/logger"
)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	jsonOutput bool

	cfg      *config.Config
	log      *logger.Logger
	services *app.Services
}

// NewRootCmd builds the passforge command tree
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "passforge",
		Short: "Generate and evaluate passwords",
		Long: `PassForge generates passwords from rule sets and templates, scores password
strength, and turns written password policies into generation rules.

Examples:
  passforge generate --min 16 --max 20 -n 3
  passforge pattern generate CvcCvc11@
  passforge strength 'correct horse battery staple'
  passforge policy analyze "At least 12 characters with a number and a symbol"
`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return opts.teardown()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file loaded before configuration")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newPatternCmd(opts),
		newStrengthCmd(opts),
		newPolicyCmd(opts),
	)

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	o.cfg = cfg

	log, err := logger.New(logger.Config{
		Level:  o.logLevel,
		Format: "console",
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}
	o.log = log

	services, err := app.Build(cfg, log, app.Options{})
	if err != nil {
		return err
	}
	o.services = services
	return nil
}

func (o *rootOptions) teardown() error {
	if o.log != nil {
		o.log.Sync()
	}
	if o.services == nil {
		return nil
	}
	return o.services.Close()
}

func (o *rootOptions) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readArg returns the joined arguments, or all of in when they are absent
// or a single "-"
func readArg(args []string, in io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
