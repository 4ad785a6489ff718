package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/cardbook/internal/event"
)

// Run is one journaled session: a replay, an interactive assign or a
// simulation.
type Run struct {
	ID          string
	Label       string
	CatalogHash string
	StartedAt   time.Time
}

// BeginRun records a run. Events can only be written for a known run.
// Beginning the same run id twice is a no-op.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("begin run: empty run id")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, catalog_hash, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Label, run.CatalogHash, run.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteEvent appends e to runID's journal.
// Uses ON CONFLICT DO NOTHING on (run_id, seq), so rewriting an event is a
// no-op. A seq of 0 is rejected because the publisher never stamps it.
func (s *Store) WriteEvent(ctx context.Context, runID string, e event.Event) error {
	if e.Seq <= 0 {
		return fmt.Errorf("write event: unstamped seq %d", e.Seq)
	}
	var setID sql.NullInt64
	if e.Kind == event.KindSetFinished {
		setID = sql.NullInt64{Int64: int64(e.SetID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, seq, kind, user_id, album_id, set_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, e.Seq, e.Kind.String(), e.UserID, int64(e.AlbumID), setID)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Subscriber returns a handler that journals every event under runID.
// Handlers cannot return errors, so write failures are logged.
func Subscriber(s *Store, runID string, logger *slog.Logger) event.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(e event.Event) {
		if err := s.WriteEvent(context.Background(), runID, e); err != nil {
			logger.Error("journal event", "run", runID, "event", e.String(), "error", err)
		}
	}
}

