package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort    = 8765
	defaultDirName = ".terminal-mcp"
	defaultLogName = "events.log"
)

// Config is the resolved runtime configuration. Precedence when loading is
// flags over environment over the YAML file over built-in defaults.
type Config struct {
	Port            int
	ShellArgv       []string
	EventLogEnabled bool
	EventLogPath    string
	ArchiveDB       string
	ConfigPath      string
}

// fileConfig mirrors ~/.config/terminal-mcp/config.yaml. EventLogEnabled is
// a pointer so an absent key does not override the default.
type fileConfig struct {
	Port            int    `yaml:"port"`
	Shell           string `yaml:"shell"`
	EventDir        string `yaml:"eventDir"`
	EventLog        string `yaml:"eventLog"`
	EventLogEnabled *bool  `yaml:"eventLogEnabled"`
	ArchiveDB       string `yaml:"archiveDb"`
}

// Load resolves configuration from the default file location, the
// TERMINAL_MCP_* environment, and the given command-line arguments.
func Load(args []string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	path := filepath.Join(home, ".config", "terminal-mcp", "config.yaml")
	return load(args, path, home, os.Getenv)
}

func load(args []string, path, home string, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:            defaultPort,
		EventLogEnabled: true,
		ConfigPath:      path,
	}
	shell := ""
	eventDir := ""
	eventLog := ""

	data, err := os.ReadFile(path)
	if err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if fc.Port != 0 {
			cfg.Port = fc.Port
		}
		if fc.Shell != "" {
			shell = fc.Shell
		}
		if fc.EventDir != "" {
			eventDir = fc.EventDir
		}
		if fc.EventLog != "" {
			eventLog = fc.EventLog
		}
		if fc.EventLogEnabled != nil {
			cfg.EventLogEnabled = *fc.EventLogEnabled
		}
		if fc.ArchiveDB != "" {
			cfg.ArchiveDB = fc.ArchiveDB
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if v := getenv("TERMINAL_MCP_EVENT_LOG_ENABLED"); v == "0" {
		cfg.EventLogEnabled = false
	} else if v != "" {
		cfg.EventLogEnabled = true
	}
	if v := getenv("TERMINAL_MCP_EVENT_DIR"); v != "" {
		eventDir = v
	}
	if v := getenv("TERMINAL_MCP_EVENT_LOG"); v != "" {
		eventLog = v
	}
	if v := getenv("TERMINAL_MCP_SHELL"); v != "" {
		shell = v
	}

	fs := flag.NewFlagSet("terminal-mcp", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "server port (1-65535)")
	fs.StringVar(&eventLog, "event-log", eventLog, "path to the NDJSON event log (empty selects the default)")
	fs.StringVar(&cfg.ArchiveDB, "archive-db", cfg.ArchiveDB, "SQLite event archive path (empty disables archiving)")
	fs.StringVar(&shell, "shell", shell, "shell command line to spawn in new terminals")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.Port)
	}

	if shell != "" {
		argv, err := shellquote.Split(shell)
		if err != nil {
			return nil, fmt.Errorf("invalid shell command %q: %w", shell, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("invalid shell command %q: empty after parsing", shell)
		}
		cfg.ShellArgv = argv
	}

	if eventLog == "" {
		if eventDir == "" {
			eventDir = filepath.Join(home, defaultDirName)
		}
		eventLog = filepath.Join(eventDir, defaultLogName)
	}
	if cfg.EventLogEnabled {
		cfg.EventLogPath = eventLog
	}

	return cfg, nil
}
