package protocol

import "strings"

// Tag marks every envelope exchanged between the host controller and a
// runner. Messages without it are treated as foreign traffic.
const Tag = "jsplayground"

// Kind enumerates the envelope kinds on the wire.
type Kind string

const (
	KindRun   Kind = "run"   // host -> runner, carries source text
	KindReady Kind = "ready" // runner -> host, ready to receive run
	KindLog   Kind = "log"   // runner -> host, console output
	KindError Kind = "error" // runner -> host, fault or console.error
	KindAlert Kind = "alert" // runner -> host, alert() call
)

// Envelope is the wire message for the playground channel. It is
// JSON-serializable so the same shape can cross a WebSocket unchanged.
type Envelope struct {
	Tag     string   `json:"tag"`
	Kind    Kind     `json:"kind"`
	RunID   string   `json:"id,omitempty"`
	Origin  string   `json:"origin,omitempty"`
	Payload string   `json:"payload,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// Run builds the single host->runner payload envelope.
func Run(runID, origin, source string) Envelope {
	return Envelope{
		Tag:     Tag,
		Kind:    KindRun,
		RunID:   runID,
		Origin:  origin,
		Payload: source,
	}
}

// EventKind classifies one recorded output occurrence.
type EventKind string

const (
	EventLog   EventKind = "log"
	EventError EventKind = "error"
	EventAlert EventKind = "alert"
)

// OutputEvent is one console/alert/error line, typed and ordered.
type OutputEvent struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text"`
}

// Text joins the envelope's stringified call arguments with a single space,
// forming one OutputEvent's text.
func (e Envelope) Text() string {
	return strings.Join(e.Args, " ")
}
