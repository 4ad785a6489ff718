// Package assign is the entry point for granting cards to users.
//
// A Service resolves the card's set through a catalog.Index, records the
// card in a tracker.Tracker and publishes one SET_FINISHED event per set
// the call completed followed by ALBUM_FINISHED if the album completed.
// Events are published after the tracker has released the user's lock, so
// handlers may call back into the Service.
package assign
