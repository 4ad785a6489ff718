// Package tracker records which cards each user owns and detects the
// moment a user completes a set or the whole album.
//
// Every (user, set) and (user, album) pair moves INCOMPLETE → COMPLETE at
// most once. The call that performs the move is told so through Result;
// every other call, including racing ones, is not. All of a user's state
// lives behind that user's own mutex, so unrelated users never contend.
package tracker

import (
	"sort"
	"sync"

	"github.com/roach88/cardbook/internal/catalog"
)

// Result reports the completion transitions performed by one AssignCard call.
type Result struct {
	// Sets lists the sets this call completed, in the order they completed.
	// On a user's first assignment it starts with the album's empty sets.
	Sets []catalog.SetID

	// Album is true when this call completed the album.
	Album bool

	// Duplicate is true when the card was already owned and nothing was
	// evaluated.
	Duplicate bool
}

// SetJustCompleted reports whether set transitioned during this call.
func (r Result) SetJustCompleted(set catalog.SetID) bool {
	for _, id := range r.Sets {
		if id == set {
			return true
		}
	}
	return false
}

// Transitions returns how many completion transitions the call performed.
func (r Result) Transitions() int {
	n := len(r.Sets)
	if r.Album {
		n++
	}
	return n
}

// userState is one user's collection. All fields are guarded by mu.
type userState struct {
	mu        sync.Mutex
	seeded    bool
	owned     map[catalog.CardID]struct{}
	completed map[catalog.SetID]struct{}
	albumDone bool
}

// Tracker owns all per-user completion state.
//
// Thread-safety: all methods are safe for concurrent use. Calls for the
// same user serialize on that user's lock; calls for different users run
// in parallel.
type Tracker struct {
	sets      []catalog.SetID
	emptySets []catalog.SetID
	users     sync.Map // int64 -> *userState
}

// New creates a tracker for album. The album's set list is captured once;
// card membership is read from the *catalog.Set passed to AssignCard.
func New(album *catalog.Album) *Tracker {
	t := &Tracker{sets: album.SetIDs()}
	for _, s := range album.Sets {
		if len(s.Cards) == 0 {
			t.emptySets = append(t.emptySets, s.ID)
		}
	}
	return t
}

// state returns the user's state, creating it on first touch. Concurrent
// first touches converge on a single instance through LoadOrStore.
func (t *Tracker) state(userID int64) *userState {
	if st, ok := t.users.Load(userID); ok {
		return st.(*userState)
	}
	st, _ := t.users.LoadOrStore(userID, &userState{
		owned:     make(map[catalog.CardID]struct{}),
		completed: make(map[catalog.SetID]struct{}),
	})
	return st.(*userState)
}

// AssignCard records that userID owns cardID, which belongs to set, and
// reports any completion transitions this call performed.
//
// The owned-card insert, the set completion test and the completion mark
// happen in one critical section, so of several goroutines delivering the
// last missing cards of a set exactly one sees the set in Result.Sets.
// The same holds for Result.Album.
func (t *Tracker) AssignCard(userID int64, cardID catalog.CardID, set *catalog.Set) Result {
	st := t.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	var res Result
	if !st.seeded {
		st.seeded = true
		for _, id := range t.emptySets {
			st.completed[id] = struct{}{}
			res.Sets = append(res.Sets, id)
		}
	}

	if _, owned := st.owned[cardID]; owned {
		res.Duplicate = true
		return res
	}
	st.owned[cardID] = struct{}{}

	if _, done := st.completed[set.ID]; !done && st.ownsAll(set) {
		st.completed[set.ID] = struct{}{}
		res.Sets = append(res.Sets, set.ID)
	}

	if len(res.Sets) > 0 && !st.albumDone && st.completedAll(t.sets) {
		st.albumDone = true
		res.Album = true
	}
	return res
}

func (st *userState) ownsAll(set *catalog.Set) bool {
	for _, c := range set.Cards {
		if _, ok := st.owned[c.ID]; !ok {
			return false
		}
	}
	return true
}

func (st *userState) completedAll(sets []catalog.SetID) bool {
	for _, id := range sets {
		if _, ok := st.completed[id]; !ok {
			return false
		}
	}
	return true
}

// Snapshot is a point-in-time copy of one user's state.
type Snapshot struct {
	UserID        int64
	Owned         []catalog.CardID
	CompletedSets []catalog.SetID
	AlbumComplete bool
}

// Snapshot returns a copy of userID's state. ok is false for a user that
// has never been assigned a card.
func (t *Tracker) Snapshot(userID int64) (snap Snapshot, ok bool) {
	v, ok := t.users.Load(userID)
	if !ok {
		return Snapshot{}, false
	}
	st := v.(*userState)
	st.mu.Lock()
	defer st.mu.Unlock()

	snap = Snapshot{UserID: userID, AlbumComplete: st.albumDone}
	for id := range st.owned {
		snap.Owned = append(snap.Owned, id)
	}
	for id := range st.completed {
		snap.CompletedSets = append(snap.CompletedSets, id)
	}
	sort.Slice(snap.Owned, func(i, j int) bool { return snap.Owned[i] < snap.Owned[j] })
	sort.Slice(snap.CompletedSets, func(i, j int) bool { return snap.CompletedSets[i] < snap.CompletedSets[j] })
	return snap, true
}

// HasCard reports whether userID owns cardID.
func (t *Tracker) HasCard(userID int64, cardID catalog.CardID) bool {
	v, ok := t.users.Load(userID)
	if !ok {
		return false
	}
	st := v.(*userState)
	st.mu.Lock()
	defer st.mu.Unlock()
	_, owned := st.owned[cardID]
	return owned
}

// Users returns the ids of every user seen so far, ascending.
func (t *Tracker) Users() []int64 {
	var ids []int64
	t.users.Range(func(k, _ any) bool {
		ids = append(ids, k.(int64))
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
