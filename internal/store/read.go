package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
)

// Filter narrows ReadEvents. Zero fields match everything.
type Filter struct {
	RunID  string
	UserID *int64
	Kind   event.Kind
}

// Record is a journaled event with the run it belongs to.
type Record struct {
	RunID string
	Event event.Event
}

// ReadEvents returns journaled events matching f, ordered by run id then seq.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadEvents(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Kind != 0 {
		where = append(where, "kind = ?")
		args = append(args, f.Kind.String())
	}

	query := "SELECT run_id, seq, kind, user_id, album_id, set_id FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY run_id COLLATE BINARY ASC, seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec     Record
		kind    string
		albumID int64
		setID   sql.NullInt64
	)
	if err := rows.Scan(&rec.RunID, &rec.Event.Seq, &kind, &rec.Event.UserID, &albumID, &setID); err != nil {
		return Record{}, fmt.Errorf("scan event: %w", err)
	}
	k, err := event.ParseKind(kind)
	if err != nil {
		return Record{}, fmt.Errorf("scan event seq %d: %w", rec.Event.Seq, err)
	}
	rec.Event.Kind = k
	rec.Event.AlbumID = catalog.AlbumID(albumID)
	if setID.Valid {
		rec.Event.SetID = catalog.SetID(setID.Int64)
	}
	return rec, nil
}

// Counts returns the number of journaled events per kind for runID.
// Kinds with no events are present with a zero count.
func (s *Store) Counts(ctx context.Context, runID string) (map[event.Kind]int, error) {
	counts := map[event.Kind]int{
		event.KindSetFinished:   0,
		event.KindAlbumFinished: 0,
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM events
		WHERE run_id = ?
		GROUP BY kind
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		k, err := event.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("count events: %w", err)
		}
		counts[k] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// Runs lists every journaled run, oldest id first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, catalog_hash, started_at FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &r.Label, &r.CatalogHash, &started); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %s: parse started_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
