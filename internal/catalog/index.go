package catalog

// Index is the card → set lookup built once from an album.
//
// Thread-safety: Index is read-only after NewIndex and safe for concurrent use.
type Index struct {
	album     Album
	setByCard map[CardID]int // position in album.Sets
	setByID   map[SetID]int
}

// NewIndex inverts the album's set → cards relation.
//
// The album is copied, so later changes to the caller's slices are not
// observed. If a card id appears in more than one set the last one wins;
// Load rejects such catalogs before they get here.
func NewIndex(album Album) *Index {
	a := album.clone()
	ix := &Index{
		album:     a,
		setByCard: make(map[CardID]int, a.CardCount()),
		setByID:   make(map[SetID]int, len(a.Sets)),
	}
	for i, s := range a.Sets {
		ix.setByID[s.ID] = i
		for _, c := range s.Cards {
			ix.setByCard[c.ID] = i
		}
	}
	return ix
}

// FindSetByCard returns the set containing cardID, or an *UnknownCardError.
// The returned set is shared and must not be modified.
func (ix *Index) FindSetByCard(cardID CardID) (*Set, error) {
	i, ok := ix.setByCard[cardID]
	if !ok {
		return nil, &UnknownCardError{CardID: cardID}
	}
	return &ix.album.Sets[i], nil
}

// Set returns the set with the given id.
func (ix *Index) Set(id SetID) (*Set, bool) {
	i, ok := ix.setByID[id]
	if !ok {
		return nil, false
	}
	return &ix.album.Sets[i], true
}

// Album returns the indexed album. It is shared and must not be modified.
func (ix *Index) Album() *Album {
	return &ix.album
}

// AllCards returns every card id in album order.
func (ix *Index) AllCards() []CardID {
	ids := make([]CardID, 0, len(ix.setByCard))
	for i := range ix.album.Sets {
		ids = append(ids, ix.album.Sets[i].CardIDs()...)
	}
	return ids
}
