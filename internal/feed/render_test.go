package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

func ts(offset time.Duration) time.Time {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return base.Add(offset)
}

func TestRenderCmdLine(t *testing.T) {
	r := NewRenderer(false)

	lines := r.Render(event.Event{
		TerminalID: "brave-otter",
		Type:       event.TypeCmd,
		Text:       "echo   hello\nworld",
		CWD:        "/home/u",
		TS:         ts(0),
	})
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	want := "+0.000s brave-otter CMD (/home/u) > echo hello world"
	if lines[0] != want {
		t.Errorf("cmd line = %q, want %q", lines[0], want)
	}
}

func TestRenderDeltaBetweenEvents(t *testing.T) {
	r := NewRenderer(false)

	r.Render(event.Event{TerminalID: "a", Type: event.TypeCmd, Text: "x", TS: ts(0)})
	lines := r.Render(event.Event{TerminalID: "a", Type: event.TypeStdout, Text: "out", TS: ts(1500 * time.Millisecond)})
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "+1.500s ") {
		t.Errorf("delta line = %v", lines)
	}
}

func TestRenderDisposedNotice(t *testing.T) {
	r := NewRenderer(false)

	lines := r.Render(event.Event{TerminalID: "gone", Type: event.TypeDispose, TS: ts(0)})
	if len(lines) != 1 || !strings.Contains(lines[0], "DISPOSED") {
		t.Errorf("dispose rendering = %v", lines)
	}
}

func TestRenderSuppressesCommandEcho(t *testing.T) {
	r := NewRenderer(false)

	r.Render(event.Event{TerminalID: "a", Type: event.TypeCmd, Text: "echo hi", TS: ts(0)})
	lines := r.Render(event.Event{TerminalID: "a", Type: event.TypeStdout, Text: "echo hi\nhi\n", TS: ts(time.Second)})

	joined := strings.Join(lines, "\n")
	if strings.Count(joined, "echo hi") != 0 {
		t.Errorf("echoed command not suppressed: %v", lines)
	}
	if !strings.Contains(joined, "| hi") {
		t.Errorf("actual output missing: %v", lines)
	}

	// The suppression is one-shot: the same text later is kept.
	lines = r.Render(event.Event{TerminalID: "a", Type: event.TypeStdout, Text: "echo hi\n", TS: ts(2 * time.Second)})
	if !strings.Contains(strings.Join(lines, "\n"), "echo hi") {
		t.Errorf("unrelated output swallowed: %v", lines)
	}
}

func TestRenderCompressesBlankLines(t *testing.T) {
	r := NewRenderer(false)

	lines := r.Render(event.Event{TerminalID: "a", Type: event.TypeStdout, Text: "one\n\n\n\n%\ntwo\n", TS: ts(0)})

	blank := 0
	for _, l := range lines {
		if strings.HasSuffix(l, "| ") {
			blank++
		}
	}
	if blank != 1 {
		t.Errorf("blank lines = %d, want 1 (got %v)", blank, lines)
	}
}

func TestRenderColorIsStablePerTerminal(t *testing.T) {
	r := NewRenderer(true)

	a1 := r.Render(event.Event{TerminalID: "alpha", Type: event.TypeStdout, Text: "x\n", TS: ts(0)})
	a2 := r.Render(event.Event{TerminalID: "alpha", Type: event.TypeStdout, Text: "y\n", TS: ts(time.Second)})
	if len(a1) != 1 || len(a2) != 1 {
		t.Fatalf("unexpected line counts %d/%d", len(a1), len(a2))
	}
	if !strings.Contains(a1[0], "\x1b[38;5;") {
		t.Errorf("color output missing escape: %q", a1[0])
	}

	prefix := func(s string) string {
		i := strings.Index(s, "m")
		return s[:i+1]
	}
	if prefix(a1[0]) != prefix(a2[0]) {
		t.Errorf("terminal color not stable: %q vs %q", prefix(a1[0]), prefix(a2[0]))
	}
}
