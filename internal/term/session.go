// Package term manages PTY-backed shell sessions: spawning, output capture,
// and the registry of live terminals.
package term

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	creackpty "github.com/creack/pty"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

// Status of a session's child process.
type Status string

const (
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
)

// Info is a read-only snapshot of session metadata.
type Info struct {
	ID     string `json:"terminalId"`
	CWD    string `json:"cwd"`
	Status Status `json:"status"`
}

// Session owns one shell process attached to a PTY. The capture loop is the
// sole writer into the session's output buffer; all other mutation goes
// through the exported methods.
type Session struct {
	id        string
	cwd       string // requested working directory, recorded verbatim
	createdAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	log *event.Log
	buf *Buffer

	mu       sync.Mutex
	status   Status
	exitCode *int

	closeOnce   sync.Once
	captureDone chan struct{}
	waitDone    chan struct{}
}

// newSession spawns argv inside a new PTY. The requested cwd is recorded
// even when the platform rejects it: in that case the shell is started in
// the inherited directory and the discrepancy is observable, not an error.
// Goroutines are not started here; the caller invokes start after the create
// event has been recorded.
func newSession(id, cwd string, argv []string, bufChars int, log *event.Log) (*Session, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Cols: 120, Rows: 30})
	if err != nil && cwd != "" {
		// Retry without the working-directory override.
		cmd = exec.Command(argv[0], argv[1:]...)
		cmd.Env = append(os.Environ(), "TERM=xterm-256color")
		ptmx, err = creackpty.StartWithSize(cmd, &creackpty.Winsize{Cols: 120, Rows: 30})
	}
	if err != nil {
		return nil, &SpawnError{Err: err}
	}

	return &Session{
		id:          id,
		cwd:         cwd,
		createdAt:   time.Now(),
		cmd:         cmd,
		ptmx:        ptmx,
		log:         log,
		buf:         NewBuffer(bufChars),
		status:      StatusRunning,
		captureDone: make(chan struct{}),
		waitDone:    make(chan struct{}),
	}, nil
}

func (s *Session) start() {
	go s.captureLoop()
	go s.waitExit()
}

// captureLoop drains the PTY until EOF or a read error, feeding each chunk
// to the output buffer and the event log. It is the only writer into the
// buffer for this session.
func (s *Session) captureLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			text := string(buf[:n])
			s.buf.Append(text)
			s.log.Append(event.Event{TerminalID: s.id, Type: event.TypeStdout, Text: text, CWD: s.cwd})
		}
		if err != nil {
			break
		}
	}
	close(s.captureDone)
}

// waitExit reaps the child process and records status and exit code. A
// natural exit leaves the session registered; only an explicit dispose
// removes it.
func (s *Session) waitExit() {
	err := s.cmd.Wait()

	s.mu.Lock()
	s.status = StatusExited
	if ps := s.cmd.ProcessState; ps != nil && ps.ExitCode() >= 0 {
		code := ps.ExitCode()
		s.exitCode = &code
	} else if err == nil {
		zero := 0
		s.exitCode = &zero
	}
	s.mu.Unlock()
	close(s.waitDone)
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CWD returns the working directory requested at creation.
func (s *Session) CWD() string { return s.cwd }

// Status reports whether the child process is still running.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ExitCode returns the recorded exit code, or nil when not (yet) obtainable.
func (s *Session) ExitCode() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exitCode == nil {
		return nil
	}
	code := *s.exitCode
	return &code
}

// Info returns a point-in-time metadata snapshot.
func (s *Session) Info() Info {
	return Info{ID: s.id, CWD: s.cwd, Status: s.Status()}
}

// Send writes text (newline-terminated) to the PTY input side and returns
// the byte count written. The cmd event is recorded before the write so it
// always precedes any stdout the command produces.
func (s *Session) Send(text string) (int, error) {
	s.mu.Lock()
	running := s.status == StatusRunning
	s.mu.Unlock()
	if !running {
		return 0, ErrNotRunning
	}

	s.log.Append(event.Event{TerminalID: s.id, Type: event.TypeCmd, Text: text, CWD: s.cwd})

	payload := text
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	n, err := s.ptmx.Write([]byte(payload))
	if err != nil {
		return n, &WriteError{Written: n, Err: err}
	}
	return n, nil
}

// Interrupt sends Ctrl-C to the PTY, which the line discipline delivers to
// the foreground process group as SIGINT.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	running := s.status == StatusRunning
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	s.log.Append(event.Event{TerminalID: s.id, Type: event.TypeInterrupt, CWD: s.cwd})

	if _, err := s.ptmx.Write([]byte{0x03}); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Read returns buffered output; see Buffer.Read for the lines and stripAnsi
// semantics. Non-destructive.
func (s *Session) Read(lines int, stripAnsi bool) string {
	return s.buf.Read(lines, stripAnsi)
}

// Clear empties the output buffer and records a clear event. Past events are
// unaffected.
func (s *Session) Clear() {
	s.buf.Clear()
	s.log.Append(event.Event{TerminalID: s.id, Type: event.TypeClear, CWD: s.cwd})
}

// BufferLen reports the number of buffered characters.
func (s *Session) BufferLen() int { return s.buf.Len() }

// close terminates the child and stops the capture loop: SIGTERM, a bounded
// wait for the process to exit, escalation to SIGKILL, then closing the PTY
// fd so the blocked read observes end-of-stream. Safe to call multiple
// times.
func (s *Session) close(grace time.Duration) {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Signal(syscall.SIGTERM)
		}
		select {
		case <-s.waitDone:
		case <-time.After(grace):
			if s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
		}

		_ = s.ptmx.Close()

		select {
		case <-s.captureDone:
		case <-time.After(grace):
		}
		select {
		case <-s.waitDone:
		case <-time.After(grace):
		}
	})
}
