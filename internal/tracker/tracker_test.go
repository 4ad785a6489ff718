package tracker

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardbook/internal/catalog"
)

func twoSets() *catalog.Index {
	return catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{
		{ID: 1, Cards: []catalog.Card{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}},
		{ID: 2, Cards: []catalog.Card{{ID: 5}, {ID: 6}, {ID: 7}, {ID: 8}}},
	}})
}

func assign(t *testing.T, tr *Tracker, ix *catalog.Index, user int64, card catalog.CardID) Result {
	t.Helper()
	set, err := ix.FindSetByCard(card)
	require.NoError(t, err)
	return tr.AssignCard(user, card, set)
}

func TestAssignCard_SingleCardSet(t *testing.T) {
	ix := catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{{ID: 1, Cards: []catalog.Card{{ID: 42}}}}})
	tr := New(ix.Album())

	res := assign(t, tr, ix, 13, 42)

	assert.Equal(t, []catalog.SetID{1}, res.Sets)
	assert.True(t, res.SetJustCompleted(1))
	assert.True(t, res.Album, "the only set completes the album")
	assert.True(t, tr.HasCard(13, 42))
}

func TestAssignCard_CompletesSetsThenAlbum(t *testing.T) {
	ix := twoSets()
	tr := New(ix.Album())

	var transitions []string
	for _, card := range ix.AllCards() {
		res := assign(t, tr, ix, 13, card)
		for range res.Sets {
			transitions = append(transitions, "set")
		}
		if res.Album {
			transitions = append(transitions, "album")
		}
		if card == 4 {
			assert.True(t, res.SetJustCompleted(1))
			assert.False(t, res.Album)
		}
		if card == 8 {
			assert.True(t, res.SetJustCompleted(2))
			assert.True(t, res.Album)
		}
	}

	assert.Equal(t, []string{"set", "set", "album"}, transitions)

	snap, ok := tr.Snapshot(13)
	require.True(t, ok)
	assert.Equal(t, []catalog.CardID{1, 2, 3, 4, 5, 6, 7, 8}, snap.Owned)
	assert.Equal(t, []catalog.SetID{1, 2}, snap.CompletedSets)
	assert.True(t, snap.AlbumComplete)
}

func TestAssignCard_Duplicate(t *testing.T) {
	ix := catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{{ID: 1, Cards: []catalog.Card{{ID: 42}}}}})
	tr := New(ix.Album())

	first := assign(t, tr, ix, 13, 42)
	second := assign(t, tr, ix, 13, 42)

	assert.Equal(t, 2, first.Transitions())
	assert.True(t, second.Duplicate)
	assert.Zero(t, second.Transitions())
}

func TestAssignCard_DuplicateBeforeCompletion(t *testing.T) {
	ix := twoSets()
	tr := New(ix.Album())

	assign(t, tr, ix, 13, 1)
	res := assign(t, tr, ix, 13, 1)
	assert.True(t, res.Duplicate)

	snap, _ := tr.Snapshot(13)
	assert.Equal(t, []catalog.CardID{1}, snap.Owned)
}

func TestAssignCard_EmptySetCompletesOnFirstTouch(t *testing.T) {
	ix := catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{
		{ID: 1, Cards: []catalog.Card{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}},
		{ID: 2},
	}})
	tr := New(ix.Album())

	first := assign(t, tr, ix, 13, 1)
	assert.Equal(t, []catalog.SetID{2}, first.Sets, "empty set is vacuously complete")
	assert.False(t, first.Album)

	assert.Zero(t, assign(t, tr, ix, 13, 2).Transitions())
	assert.Zero(t, assign(t, tr, ix, 13, 3).Transitions())

	last := assign(t, tr, ix, 13, 4)
	assert.Equal(t, []catalog.SetID{1}, last.Sets)
	assert.True(t, last.Album)
}

func TestAssignCard_EmptySetSeededPerUser(t *testing.T) {
	ix := catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{
		{ID: 1, Cards: []catalog.Card{{ID: 1}, {ID: 2}}},
		{ID: 2},
	}})
	tr := New(ix.Album())

	assert.Equal(t, []catalog.SetID{2}, assign(t, tr, ix, 1, 1).Sets)
	assert.Equal(t, []catalog.SetID{2}, assign(t, tr, ix, 2, 1).Sets)
	assert.Empty(t, assign(t, tr, ix, 1, 1).Sets)
}

func TestAssignCard_UsersAreIndependent(t *testing.T) {
	ix := twoSets()
	tr := New(ix.Album())

	for _, card := range []catalog.CardID{1, 2, 3} {
		assign(t, tr, ix, 1, card)
	}
	res := assign(t, tr, ix, 2, 4)
	assert.Empty(t, res.Sets)

	res = assign(t, tr, ix, 1, 4)
	assert.Equal(t, []catalog.SetID{1}, res.Sets)

	assert.Equal(t, []int64{1, 2}, tr.Users())
	assert.False(t, tr.HasCard(2, 1))
}

func TestSnapshot_UnknownUser(t *testing.T) {
	tr := New(twoSets().Album())
	_, ok := tr.Snapshot(99)
	assert.False(t, ok)
	assert.False(t, tr.HasCard(99, 1))
	assert.Empty(t, tr.Users())
}

func TestAssignCard_ConcurrentLastCardsOfSet(t *testing.T) {
	ix := twoSets()
	set, _ := ix.Set(1)

	// Each round races all four cards of set 1 for a fresh user.
	for user := int64(0); user < 200; user++ {
		tr := New(ix.Album())
		var wins atomic.Int32
		var wg sync.WaitGroup
		for _, c := range set.Cards {
			wg.Add(1)
			go func(card catalog.CardID) {
				defer wg.Done()
				if tr.AssignCard(user, card, set).SetJustCompleted(1) {
					wins.Add(1)
				}
			}(c.ID)
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load(), "user %d", user)
	}
}

func TestAssignCard_ConcurrentAlbumCompletion(t *testing.T) {
	// Two single-card sets: each goroutine completes a different set and
	// both race to see the album complete.
	ix := catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{
		{ID: 1, Cards: []catalog.Card{{ID: 1}}},
		{ID: 2, Cards: []catalog.Card{{ID: 2}}},
	}})
	tr := New(ix.Album())

	for user := int64(0); user < 500; user++ {
		var albums, sets atomic.Int32
		var wg sync.WaitGroup
		for _, card := range []catalog.CardID{1, 2} {
			wg.Add(1)
			go func(card catalog.CardID) {
				defer wg.Done()
				set, _ := ix.FindSetByCard(card)
				res := tr.AssignCard(user, card, set)
				sets.Add(int32(len(res.Sets)))
				if res.Album {
					albums.Add(1)
				}
			}(card)
		}
		wg.Wait()
		require.Equal(t, int32(2), sets.Load(), "user %d", user)
		require.Equal(t, int32(1), albums.Load(), "user %d", user)
	}
}

func TestAssignCard_ConcurrentDuplicates(t *testing.T) {
	ix := catalog.NewIndex(catalog.Album{ID: 1, Sets: []catalog.Set{{ID: 1, Cards: []catalog.Card{{ID: 42}}}}})
	tr := New(ix.Album())
	set, _ := ix.Set(1)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.AssignCard(13, 42, set).Album {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestResult_Helpers(t *testing.T) {
	r := Result{Sets: []catalog.SetID{2, 1}, Album: true}
	assert.True(t, r.SetJustCompleted(1))
	assert.False(t, r.SetJustCompleted(3))
	assert.Equal(t, 3, r.Transitions())
	assert.Zero(t, Result{}.Transitions())
}
