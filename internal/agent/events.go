// Package agent supervises the single voice-agent worker process: it
// spawns and stops the worker, reads its output line by line, classifies
// marker lines into structured events, and fans everything out through
// history-buffered brokers.
package agent

// Role identifies the speaker of a transcript event.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Event types on the events stream.
const (
	EventTranscript = "transcript"
	EventState      = "state"
)

// StateStopped is the terminal state label; it signals end-of-stream to
// every events subscriber.
const StateStopped = "stopped"

// Event is one structured item on the events stream: either a transcript
// fragment or an agent state change.
type Event struct {
	Type  string `json:"type"`
	Role  Role   `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
	State string `json:"state,omitempty"`
}

// TranscriptEvent builds a transcript event for the given speaker.
func TranscriptEvent(role Role, text string) Event {
	return Event{Type: EventTranscript, Role: role, Text: text}
}

// StateEvent builds a state-change event.
func StateEvent(state string) Event {
	return Event{Type: EventState, State: state}
}

// IsTerminal reports whether the event ends the events stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventState && e.State == StateStopped
}

// LogLine is one item on the logs stream. End marks the sentinel published
// when the worker process exits; it carries no text of its own.
type LogLine struct {
	Text string
	End  bool
}
