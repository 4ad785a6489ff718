package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func animals() Album {
	return Album{ID: 1, Name: "Animals", Sets: []Set{
		{ID: 1, Name: "Birds", Cards: []Card{{1, "Eagle"}, {2, "Cormorant"}, {3, "Sparrow"}, {4, "Raven"}}},
		{ID: 2, Name: "Fish", Cards: []Card{{5, "Salmon"}, {6, "Mullet"}, {7, "Bream"}, {8, "Marline"}}},
	}}
}

func TestIndex_FindSetByCard(t *testing.T) {
	ix := NewIndex(animals())

	set, err := ix.FindSetByCard(6)
	require.NoError(t, err)
	assert.Equal(t, SetID(2), set.ID)
	assert.Equal(t, "Fish", set.Name)

	set, err = ix.FindSetByCard(1)
	require.NoError(t, err)
	assert.Equal(t, SetID(1), set.ID)
}

func TestIndex_FindSetByCard_Unknown(t *testing.T) {
	ix := NewIndex(animals())

	set, err := ix.FindSetByCard(42)
	require.Error(t, err)
	assert.Nil(t, set)

	var uce *UnknownCardError
	require.True(t, errors.As(err, &uce))
	assert.Equal(t, CardID(42), uce.CardID)
	assert.ErrorIs(t, err, ErrUnknownCard)
	assert.Contains(t, err.Error(), "42")
}

func TestIndex_CopiesAlbum(t *testing.T) {
	a := animals()
	ix := NewIndex(a)

	a.Sets[0].Cards[0].ID = 99
	a.Sets = append(a.Sets, Set{ID: 3, Cards: []Card{{ID: 100}}})

	_, err := ix.FindSetByCard(99)
	assert.ErrorIs(t, err, ErrUnknownCard)
	_, err = ix.FindSetByCard(100)
	assert.ErrorIs(t, err, ErrUnknownCard)

	set, err := ix.FindSetByCard(1)
	require.NoError(t, err)
	assert.Equal(t, SetID(1), set.ID)
	assert.Len(t, ix.Album().Sets, 2)
}

func TestIndex_SetAndAllCards(t *testing.T) {
	ix := NewIndex(animals())

	s, ok := ix.Set(2)
	require.True(t, ok)
	assert.Equal(t, []CardID{5, 6, 7, 8}, s.CardIDs())

	_, ok = ix.Set(9)
	assert.False(t, ok)

	assert.Equal(t, []CardID{1, 2, 3, 4, 5, 6, 7, 8}, ix.AllCards())
	assert.Equal(t, []SetID{1, 2}, ix.Album().SetIDs())
}

func TestIndex_EmptySet(t *testing.T) {
	a := Album{ID: 1, Sets: []Set{{ID: 1, Cards: []Card{{ID: 1}}}, {ID: 2}}}
	ix := NewIndex(a)

	s, ok := ix.Set(2)
	require.True(t, ok)
	assert.Empty(t, s.CardIDs())
	assert.Equal(t, []CardID{1}, ix.AllCards())
}
