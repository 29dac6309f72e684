package config

import (
	"os"
	"path/filepath"
	"testing"
)

func noEnv(string) string { return "" }

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := load(nil, filepath.Join(home, "missing.yaml"), home, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8765 {
		t.Errorf("port = %d, want 8765", cfg.Port)
	}
	if cfg.ShellArgv != nil {
		t.Errorf("shell argv = %v, want nil", cfg.ShellArgv)
	}
	if !cfg.EventLogEnabled {
		t.Error("event log disabled by default")
	}
	want := filepath.Join(home, ".terminal-mcp", "events.log")
	if cfg.EventLogPath != want {
		t.Errorf("event log path = %q, want %q", cfg.EventLogPath, want)
	}
	if cfg.ArchiveDB != "" {
		t.Errorf("archive db = %q, want empty", cfg.ArchiveDB)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	yaml := "port: 9000\nshell: \"/bin/bash -l\"\neventDir: /var/log/terms\narchiveDb: /tmp/events.db\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := load(nil, path, home, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}
	if len(cfg.ShellArgv) != 2 || cfg.ShellArgv[0] != "/bin/bash" || cfg.ShellArgv[1] != "-l" {
		t.Errorf("shell argv = %v, want [/bin/bash -l]", cfg.ShellArgv)
	}
	if want := filepath.Join("/var/log/terms", "events.log"); cfg.EventLogPath != want {
		t.Errorf("event log path = %q, want %q", cfg.EventLogPath, want)
	}
	if cfg.ArchiveDB != "/tmp/events.db" {
		t.Errorf("archive db = %q", cfg.ArchiveDB)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, []byte("eventDir: /from/file\nshell: /bin/sh\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env := envMap(map[string]string{
		"TERMINAL_MCP_EVENT_LOG": "/from/env/custom.ndjson",
		"TERMINAL_MCP_SHELL":     "/usr/bin/zsh --login",
	})
	cfg, err := load(nil, path, home, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.EventLogPath != "/from/env/custom.ndjson" {
		t.Errorf("event log path = %q, want env value", cfg.EventLogPath)
	}
	if len(cfg.ShellArgv) != 2 || cfg.ShellArgv[0] != "/usr/bin/zsh" {
		t.Errorf("shell argv = %v", cfg.ShellArgv)
	}
}

func TestEventLogDisabledByEnv(t *testing.T) {
	home := t.TempDir()
	env := envMap(map[string]string{"TERMINAL_MCP_EVENT_LOG_ENABLED": "0"})
	cfg, err := load(nil, filepath.Join(home, "missing.yaml"), home, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.EventLogEnabled {
		t.Error("event log still enabled with TERMINAL_MCP_EVENT_LOG_ENABLED=0")
	}
	if cfg.EventLogPath != "" {
		t.Errorf("event log path = %q, want empty when disabled", cfg.EventLogPath)
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	home := t.TempDir()
	env := envMap(map[string]string{
		"TERMINAL_MCP_EVENT_LOG": "/from/env.ndjson",
		"TERMINAL_MCP_SHELL":     "/bin/sh",
	})
	args := []string{
		"-port", "7000",
		"-event-log", "/from/flag.ndjson",
		"-archive-db", "/from/flag.db",
		"-shell", "/bin/dash -i",
	}
	cfg, err := load(args, filepath.Join(home, "missing.yaml"), home, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Port)
	}
	if cfg.EventLogPath != "/from/flag.ndjson" {
		t.Errorf("event log path = %q, want flag value", cfg.EventLogPath)
	}
	if cfg.ArchiveDB != "/from/flag.db" {
		t.Errorf("archive db = %q, want flag value", cfg.ArchiveDB)
	}
	if len(cfg.ShellArgv) != 2 || cfg.ShellArgv[0] != "/bin/dash" {
		t.Errorf("shell argv = %v", cfg.ShellArgv)
	}
}

func TestInvalidPortRejected(t *testing.T) {
	home := t.TempDir()
	if _, err := load([]string{"-port", "0"}, filepath.Join(home, "missing.yaml"), home, noEnv); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestInvalidShellRejected(t *testing.T) {
	home := t.TempDir()
	if _, err := load([]string{"-shell", "'unterminated"}, filepath.Join(home, "missing.yaml"), home, noEnv); err == nil {
		t.Fatal("expected error for unparseable shell command")
	}
}
