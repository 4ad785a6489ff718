package harness

// Trace entry types.
const (
	TraceAssign     = "assign"
	TraceEvent      = "event"
	TraceConcurrent = "concurrent"
)

// TraceEntry is one line of a scenario trace: an assignment, an event it
// published, or the summary of a concurrent step.
type TraceEntry struct {
	Type string `json:"type"`
	Step int    `json:"step"`

	// assign and event
	User int64 `json:"user,omitempty"`

	// assign
	Card    int64  `json:"card,omitempty"`
	Outcome string `json:"outcome,omitempty"` // recorded, duplicate or unknown_card

	// event
	Kind string `json:"kind,omitempty"`
	Set  int64  `json:"set,omitempty"`
	Seq  int64  `json:"seq,omitempty"`

	// concurrent
	Assignments int `json:"assignments,omitempty"`
	SetEvents   int `json:"set_events,omitempty"`
	AlbumEvents int `json:"album_events,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace records the steps and their events in execution order.
	Trace []TraceEntry `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
