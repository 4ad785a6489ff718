package event

import (
	"fmt"

	"github.com/roach88/cardbook/internal/catalog"
)

// Kind discriminates events. The set of kinds is closed.
type Kind int

const (
	// KindSetFinished fires once per (user, set) when the user owns every
	// card of the set.
	KindSetFinished Kind = iota + 1
	// KindAlbumFinished fires once per user when every set is finished.
	KindAlbumFinished
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSetFinished:
		return "SET_FINISHED"
	case KindAlbumFinished:
		return "ALBUM_FINISHED"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "SET_FINISHED":
		return KindSetFinished, nil
	case "ALBUM_FINISHED":
		return KindAlbumFinished, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// Event is a completion notification. SetID is set only for
// KindSetFinished; AlbumID is always the catalog's album.
type Event struct {
	Kind    Kind
	UserID  int64
	SetID   catalog.SetID
	AlbumID catalog.AlbumID

	// Seq is stamped by the publisher's clock. Seqs are unique and
	// increase in publish order per publisher.
	Seq int64
}

// SetFinished builds a KindSetFinished event.
func SetFinished(userID int64, albumID catalog.AlbumID, setID catalog.SetID) Event {
	return Event{Kind: KindSetFinished, UserID: userID, AlbumID: albumID, SetID: setID}
}

// AlbumFinished builds a KindAlbumFinished event.
func AlbumFinished(userID int64, albumID catalog.AlbumID) Event {
	return Event{Kind: KindAlbumFinished, UserID: userID, AlbumID: albumID}
}

func (e Event) String() string {
	if e.Kind == KindSetFinished {
		return fmt.Sprintf("%s(user=%d, set=%d)", e.Kind, e.UserID, e.SetID)
	}
	return fmt.Sprintf("%s(user=%d)", e.Kind, e.UserID)
}

// Handler receives published events.
type Handler func(Event)
