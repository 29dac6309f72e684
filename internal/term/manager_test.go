package term

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

func newTestManager(t *testing.T) (*Manager, *event.Log) {
	t.Helper()
	log := event.NewLog(event.Options{})
	m := NewManager(log, Config{
		Shell:        []string{"/bin/sh"},
		DisposeGrace: 500 * time.Millisecond,
	})
	t.Cleanup(m.Close)
	return m, log
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

// TestCreateSendRead drives the happy path: create a shell, run echo, and
// poll the buffer until the output arrives.
func TestCreateSendRead(t *testing.T) {
	m, _ := newTestManager(t)

	dir := t.TempDir()
	sess, err := m.Create("", dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.CWD() != dir {
		t.Errorf("CWD = %q, want %q", sess.CWD(), dir)
	}

	if _, err := sess.Send("echo HELLO_PTY"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ok := waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(sess.Read(AllLines, true), "HELLO_PTY")
	})
	if !ok {
		t.Fatalf("output never contained HELLO_PTY: %q", sess.Read(AllLines, true))
	}

	// Repeated reads with no intervening send/clear are identical.
	a := sess.Read(AllLines, true)
	b := sess.Read(AllLines, true)
	if a != b {
		t.Errorf("reads differ: %q vs %q", a, b)
	}
}

// TestListSnapshot verifies list reflects registered sessions with their
// requested cwd.
func TestListSnapshot(t *testing.T) {
	m, _ := newTestManager(t)

	dir := t.TempDir()
	s1, err := m.Create("alpha", dir)
	if err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	if _, err := m.Create("beta", ""); err != nil {
		t.Fatalf("Create beta: %v", err)
	}

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	byID := make(map[string]Info)
	for _, info := range infos {
		byID[info.ID] = info
	}
	if byID["alpha"].CWD != dir {
		t.Errorf("alpha cwd = %q, want %q", byID["alpha"].CWD, dir)
	}
	if byID["alpha"].Status != StatusRunning {
		t.Errorf("alpha status = %q", byID["alpha"].Status)
	}
	_ = s1
}

// TestCreateDuplicateName rejects a caller-supplied id already in the
// registry.
func TestCreateDuplicateName(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.Create("dup", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create("dup", ""); err == nil {
		t.Fatal("expected error creating duplicate id")
	}
}

// TestClearThenRead yields empty output immediately after a clear.
func TestClearThenRead(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Create("", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sess.Send("echo BEFORE_CLEAR"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(sess.Read(AllLines, true), "BEFORE_CLEAR")
	})

	sess.Clear()
	if got := sess.Read(AllLines, true); got != "" {
		t.Errorf("read after clear = %q, want empty", got)
	}
}

// TestDisposeRemovesFromRegistry verifies the full dispose contract:
// removal from list, NotFound on reuse, and NotFound on a second dispose.
func TestDisposeRemovesFromRegistry(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Create("", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := sess.ID()

	if _, err := m.Dispose(id); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	for _, info := range m.List() {
		if info.ID == id {
			t.Errorf("disposed session %q still listed", id)
		}
	}
	if _, err := m.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after dispose: %v, want ErrNotFound", err)
	}
	if _, err := m.Dispose(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Dispose: %v, want ErrNotFound", err)
	}
}

// TestNaturalExitStaysRegistered checks that a shell exiting on its own
// transitions to exited but remains listed until disposed.
func TestNaturalExitStaysRegistered(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Create("", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sess.Send("exit 0"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if !waitFor(t, 5*time.Second, func() bool { return sess.Status() == StatusExited }) {
		t.Fatal("session never transitioned to exited")
	}

	found := false
	for _, info := range m.List() {
		if info.ID == sess.ID() {
			found = true
			if info.Status != StatusExited {
				t.Errorf("status = %q, want exited", info.Status)
			}
		}
	}
	if !found {
		t.Error("naturally exited session missing from list")
	}

	// Send and interrupt now fail with NotRunning.
	if _, err := sess.Send("echo nope"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Send after exit: %v, want ErrNotRunning", err)
	}
	if err := sess.Interrupt(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Interrupt after exit: %v, want ErrNotRunning", err)
	}

	code, err := m.Dispose(sess.ID())
	if err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if code == nil || *code != 0 {
		t.Errorf("exit code = %v, want 0", code)
	}
}

// TestEventOrdering checks the per-session ordering guarantees: create
// first, cmd before its stdout, dispose last.
func TestEventOrdering(t *testing.T) {
	m, log := newTestManager(t)

	sess, err := m.Create("", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := sess.ID()

	if _, err := sess.Send("echo ORDERED"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		res := log.Query(event.Query{TerminalID: id, Types: []event.Type{event.TypeStdout}})
		return res.Count > 0
	})

	if _, err := m.Dispose(id); err != nil {
		t.Fatalf("Dispose: %v", err)
	}

	res := log.Query(event.Query{TerminalID: id})
	if res.Count < 3 {
		t.Fatalf("expected at least create/cmd/stdout events, got %d", res.Count)
	}
	if res.Events[0].Type != event.TypeCreate {
		t.Errorf("first event %q, want create", res.Events[0].Type)
	}
	if last := res.Events[len(res.Events)-1]; last.Type != event.TypeDispose {
		t.Errorf("last event %q, want dispose", last.Type)
	}

	cmdIdx, stdoutIdx := -1, -1
	for i, e := range res.Events {
		if e.Type == event.TypeCmd && cmdIdx < 0 {
			cmdIdx = i
		}
		if e.Type == event.TypeStdout && stdoutIdx < 0 {
			stdoutIdx = i
		}
	}
	if cmdIdx < 0 || stdoutIdx < 0 || cmdIdx > stdoutIdx {
		t.Errorf("cmd at %d must precede stdout at %d", cmdIdx, stdoutIdx)
	}
}

// TestInterruptStopsSleep starts a sleep and interrupts it; the shell must
// survive and accept another command.
func TestInterruptStopsSleep(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Create("", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sess.Send("sleep 30"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if err := sess.Interrupt(); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	if _, err := sess.Send("echo AFTER_INT"); err != nil {
		t.Fatalf("Send after interrupt: %v", err)
	}
	ok := waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(sess.Read(AllLines, true), "AFTER_INT")
	})
	if !ok {
		t.Fatalf("shell did not respond after interrupt: %q", sess.Read(AllLines, true))
	}
}

// TestCwdFallback asks for a nonexistent working directory; creation still
// succeeds and the requested cwd is recorded verbatim.
func TestCwdFallback(t *testing.T) {
	m, _ := newTestManager(t)

	requested := "/nonexistent/path/for/terminal"
	sess, err := m.Create("", requested)
	if err != nil {
		t.Fatalf("Create with bad cwd: %v", err)
	}
	if sess.CWD() != requested {
		t.Errorf("CWD = %q, want requested %q", sess.CWD(), requested)
	}
	if sess.Status() != StatusRunning {
		t.Errorf("status = %q, want running", sess.Status())
	}
}
