package store

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardbook/internal/event"
)

func TestWriteEvent_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginTestRun(t, s, "run-1")

	require.NoError(t, s.WriteEvent(ctx, "run-1", stamped(event.SetFinished(13, 1, 7), 1)))
	require.NoError(t, s.WriteEvent(ctx, "run-1", stamped(event.AlbumFinished(13, 1), 2)))

	recs, err := s.ReadEvents(ctx, Filter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{RunID: "run-1", Event: event.Event{Kind: event.KindSetFinished, UserID: 13, AlbumID: 1, SetID: 7, Seq: 1}}, recs[0])
	assert.Equal(t, Record{RunID: "run-1", Event: event.Event{Kind: event.KindAlbumFinished, UserID: 13, AlbumID: 1, Seq: 2}}, recs[1])
}

func TestWriteEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginTestRun(t, s, "run-1")

	e := stamped(event.SetFinished(13, 1, 7), 1)
	require.NoError(t, s.WriteEvent(ctx, "run-1", e))
	require.NoError(t, s.WriteEvent(ctx, "run-1", e))

	recs, err := s.ReadEvents(ctx, Filter{RunID: "run-1"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestWriteEvent_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteEvent(context.Background(), "missing", stamped(event.AlbumFinished(13, 1), 1))
	assert.Error(t, err, "foreign key should reject events for an unknown run")
}

func TestWriteEvent_UnstampedSeq(t *testing.T) {
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")
	err := s.WriteEvent(context.Background(), "run-1", event.AlbumFinished(13, 1))
	assert.ErrorContains(t, err, "unstamped seq")
}

func TestBeginRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.Error(t, s.BeginRun(ctx, Run{}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "b", Label: "simulate", CatalogHash: "h"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "a", Label: "run", CatalogHash: "h"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "a", Label: "ignored", CatalogHash: "h"}))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "run", runs[0].Label)
	assert.Equal(t, "b", runs[1].ID)
	assert.False(t, runs[1].StartedAt.IsZero())
}

func TestSubscriber_JournalsPublishedEvents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginTestRun(t, s, "run-1")

	pub := event.NewPublisher(nil)
	pub.Subscribe(Subscriber(s, "run-1", nil))

	var wg sync.WaitGroup
	for u := int64(0); u < 20; u++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			pub.Publish(event.SetFinished(user, 1, 1))
			pub.Publish(event.AlbumFinished(user, 1))
		}(u)
	}
	wg.Wait()

	counts, err := s.Counts(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 20, counts[event.KindSetFinished])
	assert.Equal(t, 20, counts[event.KindAlbumFinished])
}

func TestSubscriber_LogsWriteErrors(t *testing.T) {
	s := createTestStore(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Subscriber(s, "never-begun", logger)
	h(stamped(event.AlbumFinished(13, 1), 1))

	assert.Contains(t, buf.String(), "journal event")
	assert.Contains(t, buf.String(), "never-begun")
}
