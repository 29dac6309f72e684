package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

const archiverQueueLen = 512

// Archiver is an event.Sink that writes events to the SQLite archive from a
// dedicated goroutine, so database latency never touches the append path.
// When the queue is full events are dropped with a debug log.
type Archiver struct {
	repo  *EventRepo
	queue chan event.Event

	closeOnce sync.Once
	done      chan struct{}
}

func NewArchiver(repo *EventRepo) *Archiver {
	a := &Archiver{
		repo:  repo,
		queue: make(chan event.Event, archiverQueueLen),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Consume implements event.Sink. Never blocks.
func (a *Archiver) Consume(e event.Event) {
	select {
	case a.queue <- e:
	default:
		slog.Debug("event archive queue full, dropping event", "seq", e.Seq)
	}
}

func (a *Archiver) run() {
	defer close(a.done)
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.repo.Append(ctx, e); err != nil {
			slog.Debug("event archive write failed", "seq", e.Seq, "error", err)
		}
		cancel()
	}
}

// Close drains the queue and stops the writer goroutine.
func (a *Archiver) Close() {
	a.closeOnce.Do(func() {
		close(a.queue)
		<-a.done
	})
}
