// Package tools exposes the terminal operations as a flat dispatch surface:
// one method per tool, JSON-shaped request and result structs, no transport
// concerns. The HTTP layer and any other frontend call into this package.
package tools

import (
	"fmt"
	"regexp"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
	"github.com/JoshuaWink/terminal-mcp-server/internal/term"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

type Dispatcher struct {
	mgr *term.Manager
	log *event.Log
}

func NewDispatcher(mgr *term.Manager, log *event.Log) *Dispatcher {
	return &Dispatcher{mgr: mgr, log: log}
}

type CreateRequest struct {
	Name string `json:"name,omitempty"`
	CWD  string `json:"cwd,omitempty"`
}

type CreateResult struct {
	TerminalID string `json:"terminalId"`
	CWD        string `json:"cwd"`
}

// Create spawns a new terminal. Name and cwd are optional; defaults are a
// generated identifier and the configured working directory.
func (d *Dispatcher) Create(req CreateRequest) (CreateResult, error) {
	sess, err := d.mgr.Create(req.Name, req.CWD)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{TerminalID: sess.ID(), CWD: sess.CWD()}, nil
}

type SendRequest struct {
	TerminalID string `json:"terminalId,omitempty"`
	Text       string `json:"text"`
}

type SendResult struct {
	TerminalID string `json:"terminalId"`
	Status     string `json:"status"`
	CWD        string `json:"cwd,omitempty"`
}

// Send writes text to a terminal, appending a newline when missing. When no
// terminalId is given a fresh terminal is created first and the result status
// is "created" instead of "sent".
func (d *Dispatcher) Send(req SendRequest) (SendResult, error) {
	created := false
	var sess *term.Session
	var err error
	if req.TerminalID == "" {
		sess, err = d.mgr.Create("", "")
		if err != nil {
			return SendResult{}, err
		}
		created = true
	} else {
		sess, err = d.mgr.Get(req.TerminalID)
		if err != nil {
			return SendResult{}, err
		}
	}

	if _, err := sess.Send(req.Text); err != nil {
		return SendResult{}, err
	}

	res := SendResult{TerminalID: sess.ID(), Status: "sent"}
	if created {
		res.Status = "created"
		res.CWD = sess.CWD()
	}
	return res, nil
}

type ReadRequest struct {
	TerminalID string `json:"terminalId"`
	// StripAnsi defaults to true when absent.
	StripAnsi *bool `json:"stripAnsi,omitempty"`
	// Lines selects the trailing N lines; absent means the whole buffer.
	Lines *int `json:"lines,omitempty"`
}

type ReadResult struct {
	TerminalID string `json:"terminalId"`
	Output     string `json:"output"`
}

func (d *Dispatcher) Read(req ReadRequest) (ReadResult, error) {
	sess, err := d.mgr.Get(req.TerminalID)
	if err != nil {
		return ReadResult{}, err
	}

	strip := true
	if req.StripAnsi != nil {
		strip = *req.StripAnsi
	}
	lines := term.AllLines
	if req.Lines != nil {
		lines = *req.Lines
	}
	return ReadResult{TerminalID: sess.ID(), Output: sess.Read(lines, strip)}, nil
}

type AckResult struct {
	TerminalID string `json:"terminalId"`
	Status     string `json:"status"`
}

// Interrupt delivers Ctrl-C to the terminal's foreground process.
func (d *Dispatcher) Interrupt(terminalID string) (AckResult, error) {
	sess, err := d.mgr.Get(terminalID)
	if err != nil {
		return AckResult{}, err
	}
	if err := sess.Interrupt(); err != nil {
		return AckResult{}, err
	}
	return AckResult{TerminalID: terminalID, Status: "interrupted"}, nil
}

// Clear empties the terminal's output buffer; the process keeps running.
func (d *Dispatcher) Clear(terminalID string) (AckResult, error) {
	sess, err := d.mgr.Get(terminalID)
	if err != nil {
		return AckResult{}, err
	}
	sess.Clear()
	return AckResult{TerminalID: terminalID, Status: "cleared"}, nil
}

type DisposeResult struct {
	TerminalID string `json:"terminalId"`
	Disposed   bool   `json:"disposed"`
	ExitCode   *int   `json:"exitCode,omitempty"`
}

func (d *Dispatcher) Dispose(terminalID string) (DisposeResult, error) {
	code, err := d.mgr.Dispose(terminalID)
	if err != nil {
		return DisposeResult{}, err
	}
	return DisposeResult{TerminalID: terminalID, Disposed: true, ExitCode: code}, nil
}

// List returns a snapshot of all registered terminals, exited ones included.
func (d *Dispatcher) List() []term.Info {
	return d.mgr.List()
}

type EventsRequest struct {
	TerminalID string   `json:"terminalId,omitempty"`
	Types      []string `json:"types,omitempty"`
	// Since excludes events at or before the given RFC 3339 instant.
	Since string `json:"since,omitempty"`
	// After is an exclusive seq cursor; use the previous page's nextCursor.
	After    uint64 `json:"after,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Contains string `json:"contains,omitempty"`
	Regex    string `json:"regex,omitempty"`
}

// Events queries the retained event history with conjunctive filters and
// cursor pagination.
func (d *Dispatcher) Events(req EventsRequest) (event.Result, error) {
	q := event.Query{
		TerminalID: req.TerminalID,
		After:      req.After,
		Contains:   req.Contains,
	}

	for _, t := range req.Types {
		q.Types = append(q.Types, event.Type(t))
	}
	if req.Since != "" {
		ts, err := time.Parse(time.RFC3339Nano, req.Since)
		if err != nil {
			return event.Result{}, fmt.Errorf("invalid since timestamp %q: %w", req.Since, err)
		}
		q.Since = ts
	}
	if req.Regex != "" {
		re, err := regexp.Compile(req.Regex)
		if err != nil {
			return event.Result{}, fmt.Errorf("invalid regex %q: %w", req.Regex, err)
		}
		q.Regex = re
	}

	q.Limit = req.Limit
	if q.Limit <= 0 {
		q.Limit = defaultEventLimit
	} else if q.Limit > maxEventLimit {
		q.Limit = maxEventLimit
	}

	return d.log.Query(q), nil
}
