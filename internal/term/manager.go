package term

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

const defaultDisposeGrace = time.Second

// Config tunes a Manager. Zero values select defaults: the shell from
// $SHELL (else /bin/sh), the user home directory (else /tmp), the standard
// buffer cap, and a one-second dispose grace period.
type Config struct {
	Shell        []string
	DefaultCWD   string
	BufferChars  int
	DisposeGrace time.Duration
}

// Manager is the session registry: the id→session map and the operations
// that create, look up, list, and dispose terminals. All registry mutation
// happens under the mutex; snapshots are copied out so serialization never
// holds it.
type Manager struct {
	log          *event.Log
	shell        []string
	defaultCWD   string
	bufferChars  int
	disposeGrace time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(log *event.Log, cfg Config) *Manager {
	shell := cfg.Shell
	if len(shell) == 0 {
		if s := os.Getenv("SHELL"); s != "" {
			shell = []string{s}
		} else {
			shell = []string{"/bin/sh"}
		}
	}
	cwd := cfg.DefaultCWD
	if cwd == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cwd = home
		} else {
			cwd = "/tmp"
		}
	}
	grace := cfg.DisposeGrace
	if grace <= 0 {
		grace = defaultDisposeGrace
	}
	return &Manager{
		log:          log,
		shell:        shell,
		defaultCWD:   cwd,
		bufferChars:  cfg.BufferChars,
		disposeGrace: grace,
		sessions:     make(map[string]*Session),
	}
}

// Create spawns a new terminal. An empty name selects a generated
// adjective-animal identifier, checked for collision against the live
// registry. The create event is recorded before the capture loop starts, so
// it precedes every other event for the session. On spawn failure nothing is
// registered.
func (m *Manager) Create(name, cwd string) (*Session, error) {
	if cwd == "" {
		cwd = m.defaultCWD
	}

	m.mu.Lock()
	id := name
	if id == "" {
		id = uniqueName(func(candidate string) bool {
			_, ok := m.sessions[candidate]
			return ok
		})
	} else if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("terminal %q already exists", id)
	}

	sess, err := newSession(id, cwd, m.shell, m.bufferChars, m.log)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	m.log.Append(event.Event{TerminalID: id, Type: event.TypeCreate, CWD: cwd})
	sess.start()
	return sess, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns a point-in-time snapshot of all registered sessions,
// including ones whose process has exited but which have not been disposed.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	return infos
}

// Dispose removes the session from the registry, terminates its process
// (gracefully, then forcibly after the grace period), stops its capture
// loop, and records the dispose event carrying the exit code when one was
// obtainable. A second dispose of the same id fails with ErrNotFound.
func (m *Manager) Dispose(id string) (*int, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	sess.close(m.disposeGrace)
	code := sess.ExitCode()
	m.log.Append(event.Event{TerminalID: id, Type: event.TypeDispose, CWD: sess.cwd, ExitCode: code})
	return code, nil
}

// Close terminates all sessions without recording dispose events; used at
// process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.close(m.disposeGrace)
	}
}
