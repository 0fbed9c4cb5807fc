/*Package report carries what a session has to say to the outside world.

A session emits Events to a Reporter.  The usual Reporter is a Bus, which
queues events on a channel drained by a single goroutine that hands each one,
in order, to every Sink.  Sinks therefore never see two events at once and
need no locking against each other; those that are also read from other
goroutines (Status) lock against their readers.
*/
package report

import "time"

// Kind is the type of an Event
type Kind int

const (
	// Log is a line for the session log
	Log Kind = iota

	// Began is emitted once when a session starts, with Sets filled in
	Began

	// ProgressStart begins a bounded progress indicator for a frame set
	ProgressStart

	// ProgressUpdate advances the indicator to Value of Total
	ProgressUpdate

	// ProgressStop ends the indicator
	ProgressStop

	// Highlight marks Set as the work item in progress
	Highlight

	// StateChange reports the state machine entering the state in Text
	StateChange

	// Frame reports one measured frame
	Frame

	// Ended is emitted exactly once per session with the outcome in Text
	Ended
)

var kindNames = [...]string{"log", "began", "progress-start", "progress-update", "progress-stop", "highlight", "state", "frame", "ended"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && k >= 0 {
		return kindNames[k]
	}
	return "unknown"
}

// Level is the severity of a log event
type Level int

const (
	// Info is routine progress
	Info Level = iota

	// Notice is something the user should see, like an accepted frame
	Notice

	// Warn is a recoverable problem
	Warn

	// Error is a problem that ended the session
	Error
)

// SetInfo describes a work item when a session begins
type SetInfo struct {
	Label  string `json:"label"`
	Wanted int    `json:"wanted"`
}

// Event is one thing a session reports.  Which fields are meaningful
// depends on Kind.
type Event struct {
	Kind    Kind
	Time    time.Time
	Session string

	// Log
	Level  Level
	Indent int

	// Text is the log line, the progress label, the state name, or the outcome
	Text string

	// Set is the index of the frame set for progress, highlight and frame events
	Set int

	Value int
	Total int

	// Frame
	Exposure float64
	ADU      float64
	Accepted bool

	// Began
	Sets []SetInfo

	// Err is the error behind an aborted outcome
	Err error
}

// Reporter accepts events.  Implementations must be safe to call from any
// goroutine.
type Reporter interface {
	Report(Event)
}

// Sink consumes events delivered by a Bus, one at a time
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(Event)

// Handle calls f(e)
func (f SinkFunc) Handle(e Event) { f(e) }

// Discard is a Reporter that drops every event
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Event) {}
