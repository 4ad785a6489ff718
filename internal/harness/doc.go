// Package harness runs cardbook conformance scenarios.
//
// A scenario names a catalog, a list of steps that assign cards, and
// assertions over the events those steps published. Every scenario runs
// against a fresh assign.Service with a deterministic clock, so sequential
// scenarios produce identical traces on every run and can be compared
// against golden files.
//
// # Scenario Format
//
//	name: two_sets
//	description: "Finishing both sets finishes the album"
//	catalog:
//	  id: 1
//	  sets:
//	    - id: 1
//	      cards: [{id: 1}, {id: 2}]
//	    - id: 2
//	      cards: [{id: 3}]
//	steps:
//	  - assign: {user: 13, card: 1}
//	  - assign: {user: 13, card: 2}
//	    expect:
//	      - {kind: SET_FINISHED, set: 1}
//	  - assign: {user: 13, card: 99, expect_error: unknown_card}
//	  - concurrent: {users: 50, workers: 10, rounds: 3}
//	assertions:
//	  - {type: event_count, kind: ALBUM_FINISHED, count: 51}
//	  - {type: event_order, user: 13, kinds: [SET_FINISHED, SET_FINISHED, ALBUM_FINISHED]}
//	  - {type: owns, user: 13, card: 2, want: true}
//
// catalog_file may replace the inline catalog; it is resolved relative to
// the scenario file.
//
// # Assertion Types
//
//   - event_count: exactly N events of a kind, optionally for one user
//   - event_order: a user's events, in publish order, have exactly these kinds
//   - owns: whether a user owns a card after all steps
//
// Concurrent steps interleave nondeterministically, so they contribute one
// summary line to the trace instead of individual events.
package harness
