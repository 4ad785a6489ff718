// Package event defines completion events and the synchronous publisher that
// delivers them.
//
// Delivery model:
//   - Subscribe appends a handler; the list only grows.
//   - Publish calls every handler registered when Publish started, in
//     subscription order, on the caller's goroutine.
//   - Publish takes no lock. Handlers may subscribe or publish re-entrantly;
//     a handler added during a delivery first sees the next event.
package event
