package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoshuaWink/terminal-mcp-server/internal/api"
	"github.com/JoshuaWink/terminal-mcp-server/internal/config"
	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
	"github.com/JoshuaWink/terminal-mcp-server/internal/feed"
	"github.com/JoshuaWink/terminal-mcp-server/internal/server"
	"github.com/JoshuaWink/terminal-mcp-server/internal/store"
	"github.com/JoshuaWink/terminal-mcp-server/internal/term"
	"github.com/JoshuaWink/terminal-mcp-server/internal/tools"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventLog := event.NewLog(event.Options{MirrorPath: cfg.EventLogPath})
	defer eventLog.Close()
	if cfg.EventLogPath != "" {
		slog.Info("event log enabled", "path", cfg.EventLogPath)
	}

	if cfg.ArchiveDB != "" {
		db, err := store.Open(ctx, cfg.ArchiveDB)
		if err != nil {
			slog.Error("failed to open event archive", "path", cfg.ArchiveDB, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		archiver := store.NewArchiver(store.NewEventRepo(db.SQL()))
		defer archiver.Close()
		eventLog.AddSink(archiver)
		slog.Info("event archive enabled", "path", cfg.ArchiveDB)
	}

	hub := feed.NewHub()
	go hub.Run(ctx)
	eventLog.AddSink(hub)

	mgr := term.NewManager(eventLog, term.Config{Shell: cfg.ShellArgv})
	defer mgr.Close()

	dispatcher := tools.NewDispatcher(mgr, eventLog)
	srv := server.New(cfg, hub, api.NewRouter(dispatcher))

	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
