package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cardbook/internal/config"
	"github.com/roach88/cardbook/internal/store"
)

// RootOptions holds global flags for all commands and the configuration
// resolved from them.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config is resolved on first use by resolveConfig.
	Config *config.Config

	// RunIDs names journal runs. Nil means UUIDv7.
	RunIDs store.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cardbook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cardbook",
		Short: "cardbook - card collection tracker",
		Long: `Track which cards each user has collected and announce, exactly once,
when a user finishes a set and when a user finishes the whole album.

Settings come from defaults, then cardbook.yaml (or --config), then
CARDBOOK_* environment variables, then flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./cardbook.yaml if present)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewAssignCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// resolveConfig layers the config file, environment and the flags of cmd.
// Explicitly set flags win. When cmd carries the --format flag the resolved
// format replaces opts.Format; a command built without the root keeps the
// format it was given.
func (opts *RootOptions) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if opts.Config != nil {
		return opts.Config, nil
	}
	cfg, err := config.Load(config.Options{
		File:        opts.ConfigFile,
		SearchPaths: []string{"."},
		Flags:       cmd.Flags(),
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	opts.Config = cfg
	if cmd.Flags().Lookup("format") != nil {
		opts.Format = cfg.Format
	}
	return cfg, nil
}

// newLogger returns a text logger on w. --verbose forces debug level.
func (opts *RootOptions) newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel() // validated by config.Load
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFormatter builds the formatter for cmd. Verbose logs go to stderr to
// avoid corrupting JSON.
func (opts *RootOptions) newFormatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
