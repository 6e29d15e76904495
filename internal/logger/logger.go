// Package logger is the process-wide leveled logger.
//
// Warnings and errors print by default: they report degraded results such as
// a skipped collection or a zero-filled embedding. Debug, Info and Section
// need --verbose.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var tags = [...]struct {
	text   string
	colour lipgloss.Color
}{
	LevelDebug: {"[DEBUG]", "8"},
	LevelInfo:  {"[INFO]", "6"},
	LevelWarn:  {"[WARN]", "3"},
	LevelError: {"[ERROR]", "1"},
}

var (
	mu         sync.Mutex
	threshold  = LevelWarn
	output     io.Writer = os.Stderr
	coloured             = isTerminal(os.Stderr)
	timestamps bool
	now        = time.Now
)

// SetLevel drops everything below l.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	threshold = l
}

// SetVerbose shows debug output, or returns to the default level.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	switch {
	case v:
		threshold = LevelDebug
	case threshold < LevelWarn:
		threshold = LevelWarn
	}
}

// IsVerbose reports whether debug output is shown.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return threshold == LevelDebug
}

// SetQuiet hides warnings. Errors always print.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	switch {
	case q:
		threshold = LevelError
	case threshold == LevelError:
		threshold = LevelWarn
	}
}

// SetOutput redirects logs. Colour is used only when w is a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	coloured = isTerminal(w)
}

// SetTimestamps prefixes lines with an RFC 3339 time, for long-running servers.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }
func Info(format string, args ...any)  { logf(LevelInfo, format, args...) }
func Warn(format string, args ...any)  { logf(LevelWarn, format, args...) }
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section prints a verbose-only header.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if threshold == LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < threshold {
		return
	}
	tag := tags[l].text
	if coloured {
		tag = lipgloss.NewStyle().Foreground(tags[l].colour).Render(tag)
	}
	if timestamps {
		tag = now().Format(time.RFC3339) + " " + tag
	}
	fmt.Fprintf(output, tag+" "+format+"\n", args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
