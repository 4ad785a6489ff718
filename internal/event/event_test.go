package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "SET_FINISHED", KindSetFinished.String())
	assert.Equal(t, "ALBUM_FINISHED", KindAlbumFinished.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindSetFinished, KindAlbumFinished} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("SET_STARTED")
	assert.Error(t, err)
}

func TestEvent_Constructors(t *testing.T) {
	s := SetFinished(13, 1, 2)
	assert.Equal(t, Event{Kind: KindSetFinished, UserID: 13, AlbumID: 1, SetID: 2}, s)
	assert.Equal(t, "SET_FINISHED(user=13, set=2)", s.String())

	a := AlbumFinished(13, 1)
	assert.Equal(t, Event{Kind: KindAlbumFinished, UserID: 13, AlbumID: 1}, a)
	assert.Equal(t, "ALBUM_FINISHED(user=13)", a.String())
}
