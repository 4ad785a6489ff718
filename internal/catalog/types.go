package catalog

// CardID identifies a card within a catalog.
type CardID int64

// SetID identifies a set within a catalog.
type SetID int64

// AlbumID identifies the album.
type AlbumID int64

// Card is the smallest collectible unit.
type Card struct {
	ID   CardID `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Set is a named group of cards. A set with no cards is complete for
// every user from the moment the user is first seen.
type Set struct {
	ID    SetID  `yaml:"id" json:"id"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Cards []Card `yaml:"cards" json:"cards"`
}

// CardIDs returns the ids of the set's cards in declaration order.
func (s *Set) CardIDs() []CardID {
	ids := make([]CardID, len(s.Cards))
	for i, c := range s.Cards {
		ids[i] = c.ID
	}
	return ids
}

// Album is the top-level collection of sets.
type Album struct {
	ID   AlbumID `yaml:"id" json:"id"`
	Name string  `yaml:"name,omitempty" json:"name,omitempty"`
	Sets []Set   `yaml:"sets" json:"sets"`
}

// SetIDs returns the ids of the album's sets in declaration order.
func (a *Album) SetIDs() []SetID {
	ids := make([]SetID, len(a.Sets))
	for i, s := range a.Sets {
		ids[i] = s.ID
	}
	return ids
}

// CardCount returns the total number of cards across all sets.
func (a *Album) CardCount() int {
	n := 0
	for _, s := range a.Sets {
		n += len(s.Cards)
	}
	return n
}

// clone returns a deep copy so callers cannot mutate an indexed album
// through slices they still hold.
func (a Album) clone() Album {
	out := Album{ID: a.ID, Name: a.Name, Sets: make([]Set, len(a.Sets))}
	for i, s := range a.Sets {
		cards := make([]Card, len(s.Cards))
		copy(cards, s.Cards)
		out.Sets[i] = Set{ID: s.ID, Name: s.Name, Cards: cards}
	}
	return out
}
