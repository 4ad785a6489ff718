package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
	"github.com/roach88/cardbook/internal/store"
)

// EventView is the output form of an event.
type EventView struct {
	Seq   int64  `json:"seq"`
	Kind  string `json:"kind"`
	User  int64  `json:"user"`
	Album int64  `json:"album"`
	Set   int64  `json:"set,omitempty"`
}

func viewEvent(e event.Event) EventView {
	return EventView{
		Seq:   e.Seq,
		Kind:  e.Kind.String(),
		User:  e.UserID,
		Album: int64(e.AlbumID),
		Set:   int64(e.SetID),
	}
}

func (v EventView) String() string {
	if v.Kind == event.KindSetFinished.String() {
		return fmt.Sprintf("#%d %s user=%d set=%d", v.Seq, v.Kind, v.User, v.Set)
	}
	return fmt.Sprintf("#%d %s user=%d album=%d", v.Seq, v.Kind, v.User, v.Album)
}

// addCatalogFlag registers --catalog; the value reaches the command through
// config, so CARDBOOK_CATALOG and cardbook.yaml also work.
func addCatalogFlag(cmd *cobra.Command) {
	cmd.Flags().String("catalog", "", "catalog file (.yaml, .json or .cue)")
}

// addDBFlag registers --db for commands that optionally journal events.
func addDBFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().String("db", "", usage)
}

// loadCatalog loads path and reports load failures through f.
// The returned error is an *ExitError.
func loadCatalog(f *OutputFormatter, path string) (catalog.Album, error) {
	if path == "" {
		return catalog.Album{}, NewExitError(ExitCommandError, "no catalog given (use --catalog, CARDBOOK_CATALOG or cardbook.yaml)")
	}
	album, err := catalog.Load(path)
	if err != nil {
		code := catalog.LoadErrorCode(err)
		if code == "" {
			code = ErrCodeGeneric
		}
		exit := ExitFailure
		if code == catalog.ErrCodeNotFound || code == catalog.ErrCodeReadFailed {
			exit = ExitCommandError
		}
		_ = f.Error(code, err.Error(), map[string]string{"catalog": path})
		return catalog.Album{}, WrapExitError(exit, "failed to load catalog", err)
	}
	f.VerboseLog("Loaded catalog %s: %d sets, %d cards", path, len(album.Sets), album.CardCount())
	return album, nil
}

// journal is an open event journal bound to one run.
type journal struct {
	store *store.Store
	runID string
}

// openJournal opens path and begins a run for album, or returns nil when
// path is empty.
func openJournal(ctx context.Context, path, label string, album catalog.Album, gen store.RunIDGenerator) (*journal, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	hash, err := catalog.Hash(album)
	if err != nil {
		st.Close()
		return nil, err
	}
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	j := &journal{store: st, runID: gen.Generate()}
	if err := st.BeginRun(ctx, store.Run{ID: j.runID, Label: label, CatalogHash: hash}); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to begin journal run", err)
	}
	return j, nil
}

// attach subscribes the journal to svc. A nil journal is a no-op.
func (j *journal) attach(svc *assign.Service, logger *slog.Logger) {
	if j == nil {
		return
	}
	svc.Subscribe(store.Subscriber(j.store, j.runID, logger))
}

// id returns the run id, or "" for a nil journal.
func (j *journal) id() string {
	if j == nil {
		return ""
	}
	return j.runID
}

func (j *journal) close(logger *slog.Logger) {
	if j == nil {
		return
	}
	if err := j.store.Close(); err != nil {
		logger.Error("error closing journal", "error", err)
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isUnknownCard reports whether err is a catalog lookup failure.
func isUnknownCard(err error) bool {
	return errors.Is(err, catalog.ErrUnknownCard)
}
