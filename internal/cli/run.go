package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Input  string
	Strict bool
}

// AssignmentFile is the input of the run command.
//
//	assignments:
//	  - {user: 1, card: 4}
//	  - {user: 2, card: 7}
type AssignmentFile struct {
	Assignments []Assignment `yaml:"assignments"`
}

// Assignment is one (user, card) grant.
type Assignment struct {
	User int64 `yaml:"user"`
	Card int64 `yaml:"card"`
}

// RunResult is the output of the run command.
type RunResult struct {
	Assignments  int         `json:"assignments"`
	Recorded     int         `json:"recorded"`
	Duplicates   int         `json:"duplicates"`
	UnknownCards []int64     `json:"unknown_cards,omitempty"`
	SetEvents    int         `json:"set_events"`
	AlbumEvents  int         `json:"album_events"`
	Events       []EventView `json:"events"`
}

func (r RunResult) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d assignments: %d recorded, %d duplicate, %d unknown\n",
		r.Assignments, r.Recorded, r.Duplicates, len(r.UnknownCards))
	fmt.Fprintf(&b, "%d set completions, %d album completions", r.SetEvents, r.AlbumEvents)
	for _, e := range r.Events {
		fmt.Fprintf(&b, "\n  %s", e)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run --catalog <file> --input <assignments.yaml>",
		Short: "Replay a list of assignments",
		Long: `Apply every assignment in the input file in order and report the
completion events. Unknown cards are counted and skipped; with --strict
the first unknown card fails the run.

Examples:
  cardbook run --catalog animals.yaml --input assignments.yaml
  cardbook run --catalog animals.yaml --input assignments.yaml --db cardbook.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, cmd)
		},
	}

	addCatalogFlag(cmd)
	addDBFlag(cmd, "event journal to append to (optional)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "assignments YAML file (required)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on the first unknown card")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// decodeAssignments parses an assignments document, rejecting unknown keys.
func decodeAssignments(r io.Reader) (*AssignmentFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f AssignmentFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse assignments: %w", err)
	}
	return &f, nil
}

func runRun(rootOpts *RootOptions, opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	formatter := rootOpts.newFormatter(cmd)
	logger := rootOpts.newLogger(cmd.ErrOrStderr(), cfg)

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		_ = formatter.Error(ErrCodeInputInvalid, err.Error(), map[string]string{"input": opts.Input})
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	input, err := decodeAssignments(bytes.NewReader(data))
	if err != nil {
		_ = formatter.Error(ErrCodeInputInvalid, err.Error(), map[string]string{"input": opts.Input})
		return WrapExitError(ExitFailure, "invalid input", err)
	}

	album, err := loadCatalog(formatter, cfg.Catalog)
	if err != nil {
		return err
	}

	j, err := openJournal(commandContext(cmd), cfg.DB, "run:"+opts.Input, album, rootOpts.RunIDs)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"db": cfg.DB})
		return err
	}
	defer j.close(logger)
	formatter.RunID = j.id()

	svc := assign.New(catalog.NewIndex(album), assign.WithLogger(logger))
	j.attach(svc, logger)

	result := RunResult{Events: []EventView{}}
	svc.Subscribe(func(e event.Event) {
		result.Events = append(result.Events, viewEvent(e))
		switch e.Kind {
		case event.KindSetFinished:
			result.SetEvents++
		case event.KindAlbumFinished:
			result.AlbumEvents++
		}
	})

	for i, a := range input.Assignments {
		result.Assignments++
		duplicate := svc.Tracker().HasCard(a.User, catalog.CardID(a.Card))
		err := svc.AssignCard(a.User, catalog.CardID(a.Card))
		switch {
		case err == nil && duplicate:
			result.Duplicates++
		case err == nil:
			result.Recorded++
		case isUnknownCard(err):
			if opts.Strict {
				_ = formatter.Error(ErrCodeUnknownCard, err.Error(), map[string]int{"assignment": i})
				return WrapExitError(ExitFailure, "unknown card in strict run", err)
			}
			result.UnknownCards = append(result.UnknownCards, a.Card)
		default:
			return WrapExitError(ExitFailure, "assignment failed", err)
		}
	}
	formatter.VerboseLog("Replayed %d assignments", result.Assignments)

	return formatter.Success(result)
}
