package feed

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/ansi"
	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

// 256-color codes that stay readable on dark and light backgrounds.
var palette = []string{
	"\x1b[38;5;75m",
	"\x1b[38;5;136m",
	"\x1b[38;5;127m",
	"\x1b[38;5;81m",
}

// Lighter shades for the CMD label, visually separated from the terminal id.
var lightPalette = []string{
	"\x1b[38;5;225m",
	"\x1b[38;5;159m",
	"\x1b[38;5;189m",
	"\x1b[38;5;216m",
	"\x1b[38;5;183m",
}

const (
	reset = "\x1b[0m"
	dim   = "\x1b[2m"
	bold  = "\x1b[1m"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Renderer turns events into compact one-line feed output: per-terminal
// colors from a hash palette, +delta timestamps relative to the previous
// event, a DISPOSED notice on disposal, echoed-command suppression, and
// compression of consecutive blank output lines. It is not safe for
// concurrent use.
type Renderer struct {
	color bool

	startTS      time.Time
	prevTS       time.Time
	lastWasBlank bool
	lastCmd      map[string]string
}

func NewRenderer(color bool) *Renderer {
	return &Renderer{color: color, lastCmd: make(map[string]string)}
}

// Render returns the display lines for one event. Blank-line compression
// can yield an empty slice.
func (r *Renderer) Render(e event.Event) []string {
	delta := r.advance(e.TS)

	switch e.Type {
	case event.TypeDispose:
		r.lastWasBlank = false
		if r.color {
			c := colorFor(e.TerminalID)
			return []string{fmt.Sprintf("%s%s%s %s | %s%sDISPOSED%s", c, dim, delta, e.TerminalID, reset, bold, reset)}
		}
		return []string{fmt.Sprintf("%s %s | DISPOSED", delta, e.TerminalID)}

	case event.TypeCmd:
		text := strings.TrimSpace(whitespaceRun.ReplaceAllString(ansi.Strip(e.Text), " "))
		r.lastCmd[e.TerminalID] = text
		r.lastWasBlank = false
		if r.color {
			c := colorFor(e.TerminalID)
			light := lightColorFor(e.TerminalID)
			return []string{fmt.Sprintf("%s%s%s%s %s %sCMD (%s) > %s%s%s%s%s",
				c, dim, delta, reset+c, e.TerminalID, light, e.CWD, reset, bold, c, text, reset)}
		}
		return []string{fmt.Sprintf("%s %s CMD (%s) > %s", delta, e.TerminalID, e.CWD, text)}
	}

	return r.renderOutput(e.TerminalID, delta, e.Text)
}

func (r *Renderer) renderOutput(tid, delta, raw string) []string {
	lines := strings.Split(strings.TrimRight(ansi.Strip(raw), "\n"), "\n")

	// Suppress the PTY echo of the last submitted command: drop the first
	// non-blank line when it matches, then forget the command so unrelated
	// output is never swallowed.
	if last, ok := r.lastCmd[tid]; ok && last != "" {
		for i, l := range lines {
			if isBlankish(l) {
				continue
			}
			if strings.TrimSpace(l) == last {
				lines = append(lines[:i], lines[i+1:]...)
				delete(r.lastCmd, tid)
			}
			break
		}
	}

	var out []string
	for _, l := range lines {
		if isBlankish(l) {
			if r.lastWasBlank {
				continue
			}
			out = append(out, r.prefix(tid, delta))
			r.lastWasBlank = true
			continue
		}
		out = append(out, r.prefix(tid, delta)+l)
		r.lastWasBlank = false
	}
	return out
}

func (r *Renderer) prefix(tid, delta string) string {
	if r.color {
		return fmt.Sprintf("%s%s%s %s | %s", colorFor(tid), dim, delta, tid, reset)
	}
	return fmt.Sprintf("%s %s | ", delta, tid)
}

// advance updates the timing state and returns the formatted delta since
// the previous event.
func (r *Renderer) advance(ts time.Time) string {
	if r.startTS.IsZero() {
		r.startTS = ts
		r.prevTS = ts
		return "+0.000s"
	}
	delta := ts.Sub(r.prevTS).Seconds()
	r.prevTS = ts
	return fmt.Sprintf("%+.3fs", delta)
}

// isBlankish treats whitespace-only lines and bare shell prompt residue
// (runs of '%') as blank.
func isBlankish(l string) bool {
	s := strings.TrimSpace(l)
	return strings.Trim(s, "%") == ""
}

func colorFor(tid string) string {
	h := sha1.Sum([]byte(tid))
	return palette[int(h[0])%len(palette)]
}

func lightColorFor(tid string) string {
	h := sha1.Sum([]byte(tid))
	return lightPalette[int(h[0])%len(lightPalette)]
}
