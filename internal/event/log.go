package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCapacity is the number of events retained in memory before FIFO
// eviction begins.
const DefaultCapacity = 2000

// Options configures a Log.
type Options struct {
	// Capacity of the in-memory ring; DefaultCapacity when <= 0.
	Capacity int
	// MirrorPath, when non-empty, enables the durable newline-delimited
	// JSON mirror at that file path. The parent directory is created on
	// demand.
	MirrorPath string
}

// Log is the process-wide event store. Appends are safe under arbitrary
// concurrent callers; the ring is the only source for queries, and the
// durable mirror is append-only audit output.
type Log struct {
	mu     sync.Mutex
	ring   []Event
	head   int // index of the oldest entry
	size   int
	seq    uint64
	lastTS time.Time

	mirrorPath string
	mirror     *os.File

	sinkMu sync.RWMutex
	sinks  []Sink
}

// NewLog creates a Log. When a mirror path is configured the file is opened
// lazily on first append so that a missing directory at startup is not
// fatal.
func NewLog(opts Options) *Log {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		ring:       make([]Event, capacity),
		mirrorPath: opts.MirrorPath,
	}
}

// AddSink registers a consumer for every subsequently appended event.
func (l *Log) AddSink(s Sink) {
	if s == nil {
		return
	}
	l.sinkMu.Lock()
	l.sinks = append(l.sinks, s)
	l.sinkMu.Unlock()
}

// Append stores e in the ring, evicting the oldest entry if full, assigns
// its sequence number and timestamp, mirrors it durably when enabled, and
// fans it out to sinks. The returned copy carries the assigned Seq and TS.
// Mirror failures are logged and suppressed; they never drop the in-memory
// append.
func (l *Log) Append(e Event) Event {
	l.mu.Lock()
	l.seq++
	e.Seq = l.seq

	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	// Timestamps must be non-decreasing in append order even if the wall
	// clock steps backwards.
	if e.TS.Before(l.lastTS) {
		e.TS = l.lastTS
	}
	l.lastTS = e.TS

	if l.size == len(l.ring) {
		l.ring[l.head] = e
		l.head = (l.head + 1) % len(l.ring)
	} else {
		l.ring[(l.head+l.size)%len(l.ring)] = e
		l.size++
	}

	if err := l.writeMirror(e); err != nil {
		slog.Debug("event mirror write failed", "path", l.mirrorPath, "error", err)
	}
	l.mu.Unlock()

	l.sinkMu.RLock()
	sinks := l.sinks
	l.sinkMu.RUnlock()
	for _, s := range sinks {
		s.Consume(e)
	}
	return e
}

// writeMirror appends one JSON record to the durable log. Caller holds l.mu.
func (l *Log) writeMirror(e Event) error {
	if l.mirrorPath == "" {
		return nil
	}
	if l.mirror == nil {
		if err := os.MkdirAll(filepath.Dir(l.mirrorPath), 0o755); err != nil {
			return fmt.Errorf("create event log dir: %w", err)
		}
		f, err := os.OpenFile(l.mirrorPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		l.mirror = f
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = l.mirror.Write(append(data, '\n'))
	return err
}

// Snapshot returns the retained events in append order.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.ring[(l.head+i)%len(l.ring)])
	}
	return out
}

// OldestSeq reports the sequence number of the oldest retained event. The
// second return is false when the log is empty.
func (l *Log) OldestSeq() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.size == 0 {
		return 0, false
	}
	return l.ring[l.head].Seq, true
}

// Len reports the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Close flushes and closes the durable mirror, if open.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mirror == nil {
		return nil
	}
	err := l.mirror.Close()
	l.mirror = nil
	return err
}
