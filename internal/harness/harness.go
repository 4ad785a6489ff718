package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
	"github.com/roach88/cardbook/internal/store"
	"github.com/roach88/cardbook/internal/testutil"
)

// Harness is the scenario execution context: one service and one event
// sink per scenario.
type Harness struct {
	svc    *assign.Service
	sink   *testutil.EventSink
	logger *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	journal *store.Store
	runID   string
	metrics *assign.Metrics
}

// WithLogger passes l to the service and logs step progress at debug.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithJournal records every event of the scenario in st under runID.
func WithJournal(st *store.Store, runID string) Option {
	return func(c *runConfig) {
		c.journal = st
		c.runID = runID
	}
}

// WithMetrics records the scenario's assignments in m.
func WithMetrics(m *assign.Metrics) Option {
	return func(c *runConfig) { c.metrics = m }
}

// Run executes a scenario against a fresh service and returns the result.
//
// Execution flow:
// 1. Load and validate the scenario's catalog
// 2. Build a service with a deterministic clock and an event sink
// 3. Execute steps, checking per-step expectations
// 4. Evaluate assertions against all published events
//
// Failed expectations and assertions are reported in Result.Errors; the
// returned error is reserved for scenarios that cannot run at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	album, err := scenario.album()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	ix := catalog.NewIndex(album)

	svcOpts := []assign.Option{
		assign.WithClock(testutil.NewDeterministicClock()),
		assign.WithLogger(cfg.logger),
	}
	if cfg.metrics != nil {
		svcOpts = append(svcOpts, assign.WithMetrics(cfg.metrics))
	}

	h := &Harness{
		svc:    assign.New(ix, svcOpts...),
		sink:   testutil.NewEventSink(),
		logger: cfg.logger,
	}
	h.svc.Subscribe(h.sink.Handle)

	if cfg.journal != nil {
		hash, err := catalog.Hash(album)
		if err != nil {
			return nil, fmt.Errorf("hash catalog: %w", err)
		}
		run := store.Run{ID: cfg.runID, Label: "test:" + scenario.Name, CatalogHash: hash}
		if err := cfg.journal.BeginRun(context.Background(), run); err != nil {
			return nil, err
		}
		h.svc.Subscribe(store.Subscriber(cfg.journal, cfg.runID, cfg.logger))
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		switch {
		case step.Assign != nil:
			h.executeAssign(i, step.Assign, result)
		case step.Concurrent != nil:
			if err := h.executeConcurrent(i, step.Concurrent, ix, result); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
	}

	for _, msg := range EvaluateAssertions(h.sink.Events(), scenario.Assertions, h.svc) {
		result.AddError(msg)
	}

	return result, nil
}

// executeAssign runs one assignment and checks its expectations.
func (h *Harness) executeAssign(index int, step *AssignStep, result *Result) {
	before := len(h.sink.Events())
	owned := h.svc.Tracker().HasCard(step.User, step.Card)

	err := h.svc.AssignCard(step.User, step.Card)

	entry := TraceEntry{Type: TraceAssign, Step: index, User: step.User, Card: int64(step.Card)}
	switch {
	case errors.Is(err, catalog.ErrUnknownCard):
		entry.Outcome = assign.ResultUnknownCard
	case err != nil:
		entry.Outcome = "error"
	case owned:
		entry.Outcome = assign.ResultDuplicate
	default:
		entry.Outcome = assign.ResultRecorded
	}
	result.Trace = append(result.Trace, entry)

	published := h.sink.Events()[before:]
	for _, e := range published {
		result.Trace = append(result.Trace, TraceEntry{
			Type: TraceEvent,
			Step: index,
			User: e.UserID,
			Kind: e.Kind.String(),
			Set:  int64(e.SetID),
			Seq:  e.Seq,
		})
	}
	h.logger.Debug("assign step", "step", index, "user", step.User, "card", int64(step.Card), "events", len(published))

	if step.ExpectError == ExpectUnknownCard {
		if !errors.Is(err, catalog.ErrUnknownCard) {
			result.AddError(fmt.Sprintf("step %d: expected unknown_card error, got %v", index, err))
		}
		return
	}
	if err != nil {
		result.AddError(fmt.Sprintf("step %d: unexpected error: %v", index, err))
		return
	}
	if step.Expect != nil {
		if msg := compareEvents(step.Expect, published); msg != "" {
			result.AddError(fmt.Sprintf("step %d: %s", index, msg))
		}
	}
}

// compareEvents checks published against want. A zero Set in want
// matches any set.
func compareEvents(want []ExpectedEvent, published []event.Event) string {
	if len(want) != len(published) {
		return fmt.Sprintf("expected %d events %v, got %d %v", len(want), want, len(published), published)
	}
	for i, w := range want {
		got := published[i]
		if got.Kind.String() != w.Kind || (w.Set != 0 && got.SetID != w.Set) {
			return fmt.Sprintf("event %d: expected %s(set=%d), got %s", i, w.Kind, w.Set, got)
		}
	}
	return ""
}

// executeConcurrent races Workers goroutines over the same users and cards.
// Each worker walks every (user, card) pair per round in its own shuffled
// order, so the last card of a set is delivered by different workers for
// different users.
func (h *Harness) executeConcurrent(index int, step *ConcurrentStep, ix *catalog.Index, result *Result) error {
	before := len(h.sink.Events())
	cards := ix.AllCards()

	g := new(errgroup.Group)
	for w := 0; w < step.Workers; w++ {
		rng := rand.New(rand.NewSource(step.Seed + int64(w)))
		g.Go(func() error {
			order := make([]catalog.CardID, len(cards))
			copy(order, cards)
			for r := 0; r < step.Rounds; r++ {
				rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
				for _, card := range order {
					for u := 0; u < step.Users; u++ {
						if err := h.svc.AssignCard(step.FirstUser+int64(u), card); err != nil {
							return err
						}
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("concurrent assignment: %w", err)
	}

	entry := TraceEntry{
		Type:        TraceConcurrent,
		Step:        index,
		Assignments: step.Workers * step.Rounds * step.Users * len(cards),
	}
	for _, e := range h.sink.Events()[before:] {
		switch e.Kind {
		case event.KindSetFinished:
			entry.SetEvents++
		case event.KindAlbumFinished:
			entry.AlbumEvents++
		}
	}
	result.Trace = append(result.Trace, entry)
	h.logger.Debug("concurrent step", "step", index, "set_events", entry.SetEvents, "album_events", entry.AlbumEvents)
	return nil
}
