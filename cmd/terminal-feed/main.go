// terminal-feed tails the NDJSON event log and renders a compact colored
// feed of every terminal's commands and output.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
	"github.com/JoshuaWink/terminal-mcp-server/internal/feed"
)

func main() {
	defaultLog := ""
	if v := os.Getenv("TERMINAL_MCP_EVENT_LOG"); v != "" {
		defaultLog = v
	} else if home, err := os.UserHomeDir(); err == nil {
		defaultLog = filepath.Join(home, ".terminal-mcp", "events.log")
	}

	file := flag.String("file", defaultLog, "path to the NDJSON event log")
	noColor := flag.Bool("no-color", false, "disable ANSI color output")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "no event log path; pass -file")
		os.Exit(1)
	}

	color := !*noColor && isatty.IsTerminal(os.Stdout.Fd())
	renderer := feed.NewRenderer(color)

	if err := follow(*file, func(line string) {
		var e event.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// Not an event line; show it as-is.
			fmt.Println(line)
			return
		}
		for _, l := range renderer.Render(e) {
			fmt.Println(l)
		}
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// follow reads lines appended to path, starting at the current end, in the
// manner of tail -F: the file is reopened if it is rotated or truncated.
func follow(path string, emit func(string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("event log not found: %s", path)
	}
	defer func() { f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(f)
	var partial string

	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			emit(partial + line[:len(line)-1])
			partial = ""
			continue
		}
		// Keep any partial line until its newline arrives.
		partial += line

		rotated, rerr := fileRotated(f, path)
		if rerr == nil && rotated {
			nf, oerr := os.Open(path)
			if oerr == nil {
				f.Close()
				f = nf
				reader = bufio.NewReader(f)
				partial = ""
				continue
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func fileRotated(f *os.File, path string) (bool, error) {
	cur, err := f.Stat()
	if err != nil {
		return false, err
	}
	fresh, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if !os.SameFile(cur, fresh) {
		return true, nil
	}
	// Truncation: our offset is past the new end.
	off, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	return fresh.Size() < off, nil
}
