package agent

import "strings"

// Marker prefixes the worker emits on stdout to carry structured events.
const (
	markerTranscriptUser  = "TRANSCRIPT_USER:"
	markerTranscriptAgent = "TRANSCRIPT_AGENT:"
	markerAgentState      = "AGENT_STATE:"
)

// ParseLine classifies one worker output line. The line must already have
// trailing whitespace stripped and be non-empty. First matching marker
// wins. The returned bool is true when the line produced a structured
// event; unmatched lines and transcript markers with an empty payload
// produce none. ParseLine never fails: anything unrecognized is simply a
// plain log line.
func ParseLine(line string) (Event, bool) {
	switch {
	case strings.HasPrefix(line, markerTranscriptUser):
		text := strings.TrimSpace(line[len(markerTranscriptUser):])
		if text == "" {
			return Event{}, false
		}
		return TranscriptEvent(RoleUser, text), true

	case strings.HasPrefix(line, markerTranscriptAgent):
		text := strings.TrimSpace(line[len(markerTranscriptAgent):])
		if text == "" {
			return Event{}, false
		}
		return TranscriptEvent(RoleAgent, text), true

	case strings.HasPrefix(line, markerAgentState):
		return StateEvent(strings.TrimSpace(line[len(markerAgentState):])), true
	}

	return Event{}, false
}
