// Package event provides the process-wide terminal event log: a bounded
// in-memory ring of structured events with an optional durable
// newline-delimited JSON mirror.
package event

import "time"

// Type classifies an event by the action that produced it.
type Type string

const (
	TypeCreate    Type = "create"
	TypeCmd       Type = "cmd"
	TypeStdout    Type = "stdout"
	TypeClear     Type = "clear"
	TypeInterrupt Type = "interrupt"
	TypeDispose   Type = "dispose"
)

// Event is one immutable record of terminal activity. Seq is assigned by the
// log at append time and increases monotonically for the process lifetime.
type Event struct {
	Seq        uint64    `json:"seq"`
	TerminalID string    `json:"terminalId"`
	Type       Type      `json:"type"`
	Text       string    `json:"text,omitempty"`
	CWD        string    `json:"cwd,omitempty"`
	ExitCode   *int      `json:"exitCode,omitempty"`
	TS         time.Time `json:"ts"`
}

// Sink receives every event appended to a Log. Consume must not block; slow
// consumers are expected to buffer or drop internally.
type Sink interface {
	Consume(Event)
}
