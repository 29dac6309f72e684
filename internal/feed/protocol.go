package feed

import "github.com/JoshuaWink/terminal-mcp-server/internal/event"

// EventMessage wraps a terminal event for delivery to feed viewers.
type EventMessage struct {
	Type  string      `json:"type"`
	Event event.Event `json:"event"`
}

// ClientMessage is what viewers send to the hub. The only supported type is
// "subscribe"; an empty terminalId resubscribes to everything.
type ClientMessage struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminalId,omitempty"`
}

// ErrorMessage reports a protocol problem back to one viewer.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
