package term

import (
	"strings"
	"sync"

	"github.com/JoshuaWink/terminal-mcp-server/internal/ansi"
)

// DefaultBufferChars is the retained-output cap per session. When the buffer
// grows past it, the oldest text is trimmed so the newest text is kept.
const DefaultBufferChars = 200_000

// AllLines asks Read for the entire buffer rather than a tail.
const AllLines = -1

// Buffer accumulates a session's captured output. The capture loop is the
// sole appender; reads are non-destructive and safe against concurrent
// appends.
type Buffer struct {
	mu       sync.Mutex
	chunks   []string
	total    int
	maxChars int
}

func NewBuffer(maxChars int) *Buffer {
	if maxChars <= 0 {
		maxChars = DefaultBufferChars
	}
	return &Buffer{maxChars: maxChars}
}

// Append adds a chunk of captured output, trimming the oldest text when the
// cap is exceeded.
func (b *Buffer) Append(chunk string) {
	if chunk == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
	b.total += len(chunk)
	if b.total > b.maxChars {
		joined := strings.Join(b.chunks, "")
		kept := joined[len(joined)-b.maxChars:]
		b.chunks = []string{kept}
		b.total = len(kept)
	}
}

// Read returns the buffered text. lines selects the trailing line count
// (AllLines for everything, 0 for nothing); stripAnsi removes escape
// sequences before the text is split into lines.
func (b *Buffer) Read(lines int, stripAnsi bool) string {
	b.mu.Lock()
	out := strings.Join(b.chunks, "")
	b.mu.Unlock()

	if stripAnsi && out != "" {
		out = ansi.Strip(out)
	}
	if lines == AllLines {
		return out
	}
	if lines <= 0 {
		return ""
	}
	parts := splitAfterLines(out)
	if lines >= len(parts) {
		return out
	}
	return strings.Join(parts[len(parts)-lines:], "")
}

// Len reports the number of buffered characters.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Clear resets the buffer to empty.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.chunks = nil
	b.total = 0
	b.mu.Unlock()
}

// splitAfterLines splits s into lines keeping the trailing newline on each,
// like bufio scanning but without dropping the final unterminated line.
func splitAfterLines(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			parts = append(parts, s)
			return parts
		}
		parts = append(parts, s[:i+1])
		s = s[i+1:]
		if s == "" {
			return parts
		}
	}
}
