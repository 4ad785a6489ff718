package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/event"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Events   []event.Event // Relevant events for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for i, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s seq=%d\n", i+1, ev, ev.Seq)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(events []event.Event, assertions []Assertion, svc *assign.Service) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventCount:
			err = assertEventCount(events, a)
		case AssertEventOrder:
			err = assertEventOrder(events, a)
		case AssertOwns:
			err = assertOwns(svc, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

// assertEventCount checks the number of events of a kind, for one user
// when User is set.
func assertEventCount(events []event.Event, a Assertion) error {
	kind, err := event.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	count := 0
	for _, e := range events {
		if e.Kind == kind && (a.User == nil || e.UserID == *a.User) {
			count++
		}
	}
	if count != a.Count {
		scope := "all users"
		if a.User != nil {
			scope = fmt.Sprintf("user %d", *a.User)
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events for %s", a.Count, a.Kind, scope),
			Actual:   fmt.Sprintf("%d events", count),
		}
	}
	return nil
}

// assertEventOrder checks that the user's events, in publish order, have
// exactly the listed kinds.
func assertEventOrder(events []event.Event, a Assertion) error {
	var (
		mine []event.Event
		got  []string
	)
	for _, e := range events {
		if e.UserID == *a.User {
			mine = append(mine, e)
			got = append(got, e.Kind.String())
		}
	}

	match := len(got) == len(a.Kinds)
	for i := 0; match && i < len(got); i++ {
		match = got[i] == a.Kinds[i]
	}
	if !match {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("user %d events %v", *a.User, a.Kinds),
			Actual:   fmt.Sprintf("%v", got),
			Events:   mine,
		}
	}
	return nil
}

// assertOwns checks card ownership in the final tracker state.
func assertOwns(svc *assign.Service, a Assertion) error {
	want := true
	if a.Want != nil {
		want = *a.Want
	}
	if got := svc.Tracker().HasCard(*a.User, a.Card); got != want {
		return &AssertionError{
			Type:     AssertOwns,
			Expected: fmt.Sprintf("user %d owns card %d = %t", *a.User, a.Card, want),
			Actual:   fmt.Sprintf("%t", got),
		}
	}
	return nil
}
