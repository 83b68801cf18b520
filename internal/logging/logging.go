// Package logging provides level-gated, component-tagged logging for the engine: four
// ordered levels so operational messages (a parked file, a watcher error, a semantic
// embedding failure) can be filtered without recompiling, while staying just as cheap
// to no-op when quiet.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level orders log severity low to high; a Logger only emits a message at or above its
// configured threshold.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config/CLI level name to a Level, defaulting to Info for anything
// unrecognized; failing open rather than failing closed keeps a typo from suppressing
// every log line.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	level  Level     = Info
	quiet  bool      // MCP/stdio transports that can't share stdout/stderr with logs set this
)

// SetOutput redirects every Logger's output. Pass nil to restore the default (stderr).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

// SetLevel sets the minimum level that reaches the output.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetQuiet suppresses all output regardless of level, for transports (an MCP/stdio
// server, say) that cannot share stdout/stderr with free-form log lines.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

func currentLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return level
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if quiet {
		return nil
	}
	return out
}

// Logger emits component-tagged lines at or above the package-wide level.
type Logger struct {
	component string
}

// New returns a Logger tagging every line with component (e.g. "indexing", "watch").
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	if lvl < currentLevel() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s [%s] %s: %s\n",
		time.Now().Format(time.RFC3339), lvl, l.component, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(Error, format, args...) }
