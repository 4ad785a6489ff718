package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cardbook/internal/event"
	"github.com/roach88/cardbook/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	RunID string
	User  int64
	Kind  string
}

// RunView is the output form of a journaled run.
type RunView struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	CatalogHash string    `json:"catalog_hash"`
	StartedAt   time.Time `json:"started_at"`
	SetEvents   int       `json:"set_events"`
	AlbumEvents int       `json:"album_events"`
}

// TraceEventView is a journaled event with its run.
type TraceEventView struct {
	Run string `json:"run"`
	EventView
}

// TraceResult is the output of the trace command.
type TraceResult struct {
	Runs   []RunView        `json:"runs"`
	Events []TraceEventView `json:"events"`
}

func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d runs, %d events", len(r.Runs), len(r.Events))
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "\n  run %s %q at %s: %d SET_FINISHED, %d ALBUM_FINISHED",
			run.ID, run.Label, run.StartedAt.Format(time.RFC3339), run.SetEvents, run.AlbumEvents)
	}
	for _, e := range r.Events {
		fmt.Fprintf(&b, "\n  [%s] %s", e.Run, e.EventView)
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace --db <file>",
		Short: "Show journaled completion events",
		Long: `List the runs recorded in an event journal with their completion
counts, followed by the matching events in sequence order.

Examples:
  cardbook trace --db cardbook.db
  cardbook trace --db cardbook.db --run 0190a6f4-... --user 7
  cardbook trace --db cardbook.db --kind ALBUM_FINISHED --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, opts, cmd)
		},
	}

	addDBFlag(cmd, "event journal to read (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only this run")
	cmd.Flags().Int64Var(&opts.User, "user", 0, "only this user")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only this kind (SET_FINISHED|ALBUM_FINISHED)")

	return cmd
}

func runTrace(rootOpts *RootOptions, opts *TraceOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	formatter := rootOpts.newFormatter(cmd)
	ctx := commandContext(cmd)

	if cfg.DB == "" {
		return NewExitError(ExitCommandError, "no journal given (use --db, CARDBOOK_DB or cardbook.yaml)")
	}
	// Opening would create an empty journal; a typo should fail instead.
	if _, err := os.Stat(cfg.DB); err != nil {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("journal not found: %s", cfg.DB), nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	filter := store.Filter{RunID: opts.RunID}
	if cmd.Flags().Changed("user") {
		user := opts.User
		filter.UserID = &user
	}
	if opts.Kind != "" {
		kind, err := event.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		filter.Kind = kind
	}

	st, err := store.Open(cfg.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"db": cfg.DB})
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	runs, err := st.Runs(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read runs", err)
	}

	result := TraceResult{Runs: []RunView{}, Events: []TraceEventView{}}
	for _, run := range runs {
		if opts.RunID != "" && run.ID != opts.RunID {
			continue
		}
		counts, err := st.Counts(ctx, run.ID)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitFailure, "failed to count events", err)
		}
		result.Runs = append(result.Runs, RunView{
			ID:          run.ID,
			Label:       run.Label,
			CatalogHash: run.CatalogHash,
			StartedAt:   run.StartedAt,
			SetEvents:   counts[event.KindSetFinished],
			AlbumEvents: counts[event.KindAlbumFinished],
		})
	}
	if opts.RunID != "" && len(result.Runs) == 0 {
		_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return NewExitError(ExitFailure, "run not found")
	}

	records, err := st.ReadEvents(ctx, filter)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read events", err)
	}
	for _, rec := range records {
		result.Events = append(result.Events, TraceEventView{Run: rec.RunID, EventView: viewEvent(rec.Event)})
	}

	return formatter.Success(result)
}
