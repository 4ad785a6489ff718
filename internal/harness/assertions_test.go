package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
)

func ptr[T any](v T) *T { return &v }

func sampleEvents() []event.Event {
	return []event.Event{
		{Kind: event.KindSetFinished, UserID: 13, SetID: 1, Seq: 1},
		{Kind: event.KindSetFinished, UserID: 14, SetID: 1, Seq: 2},
		{Kind: event.KindSetFinished, UserID: 13, SetID: 2, Seq: 3},
		{Kind: event.KindAlbumFinished, UserID: 13, Seq: 4},
	}
}

func TestAssertEventCount(t *testing.T) {
	events := sampleEvents()

	assert.NoError(t, assertEventCount(events, Assertion{Kind: "SET_FINISHED", Count: 3}))
	assert.NoError(t, assertEventCount(events, Assertion{Kind: "SET_FINISHED", User: ptr(int64(13)), Count: 2}))
	assert.NoError(t, assertEventCount(events, Assertion{Kind: "ALBUM_FINISHED", User: ptr(int64(14)), Count: 0}))

	err := assertEventCount(events, Assertion{Kind: "ALBUM_FINISHED", Count: 2})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertEventCount, ae.Type)
	assert.Contains(t, err.Error(), "Expected: 2 ALBUM_FINISHED events for all users")
}

func TestAssertEventOrder(t *testing.T) {
	events := sampleEvents()

	assert.NoError(t, assertEventOrder(events, Assertion{
		User:  ptr(int64(13)),
		Kinds: []string{"SET_FINISHED", "SET_FINISHED", "ALBUM_FINISHED"},
	}))

	err := assertEventOrder(events, Assertion{
		User:  ptr(int64(13)),
		Kinds: []string{"SET_FINISHED", "ALBUM_FINISHED"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seq=4", "failure lists the user's events")

	assert.NoError(t, assertEventOrder(events, Assertion{User: ptr(int64(99))}))
}

func TestAssertOwns(t *testing.T) {
	svc := assign.New(catalog.NewIndex(*oneCardCatalog()))
	require.NoError(t, svc.AssignCard(13, 42))

	assert.NoError(t, assertOwns(svc, Assertion{User: ptr(int64(13)), Card: 42}))
	assert.NoError(t, assertOwns(svc, Assertion{User: ptr(int64(14)), Card: 42, Want: ptr(false)}))
	assert.Error(t, assertOwns(svc, Assertion{User: ptr(int64(13)), Card: 42, Want: ptr(false)}))
}

func TestEvaluateAssertions_CollectsFailures(t *testing.T) {
	svc := assign.New(catalog.NewIndex(*oneCardCatalog()))
	failures := EvaluateAssertions(sampleEvents(), []Assertion{
		{Type: AssertEventCount, Kind: "SET_FINISHED", Count: 3},
		{Type: AssertEventCount, Kind: "SET_FINISHED", Count: 1},
		{Type: AssertOwns, User: ptr(int64(13)), Card: 42},
		{Type: "bogus"},
	}, svc)

	require.Len(t, failures, 3)
	assert.Contains(t, failures[0], "assertion 1")
	assert.Contains(t, failures[1], "assertion 2")
	assert.Contains(t, failures[2], "unknown assertion type")
}
