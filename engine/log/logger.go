// Package log provides named, leveled loggers shared by every engine package.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

// Level is the verbosity threshold applied to all module loggers.
type Level int

const (
	// LevelDebug logs everything, including per-frame batching decisions.
	LevelDebug Level = iota
	// LevelInfo logs resource creation and configuration changes.
	LevelInfo
	// LevelNotice logs lifecycle events. This is the default.
	LevelNotice
	// LevelWarning logs recoverable misuse such as an unbalanced scissor pop.
	LevelWarning
	// LevelError logs degraded rendering such as a missing pipeline.
	LevelError
)

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var leveledBackend logging.LeveledBackend

// Logger is the leveled logger handed out by New.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a logger tagged with the given module name.
//
// Parameters:
//   - module: the module name printed with every record (e.g. "renderer")
//
// Returns:
//   - Logger: the module logger
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects all module loggers to the given writer. The current level is preserved.
//
// Parameters:
//   - sink: the destination for formatted log records
func SetSink(sink io.Writer) {
	level := logging.NOTICE
	if leveledBackend != nil {
		level = leveledBackend.GetLevel("")
	}
	backend := logging.NewLogBackend(sink, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(formatted)
	leveledBackend.SetLevel(level, "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity for all module loggers.
//
// Parameters:
//   - level: the minimum level that is written to the sink
func SetLevel(level Level) {
	var l logging.Level
	switch level {
	case LevelDebug:
		l = logging.DEBUG
	case LevelInfo:
		l = logging.INFO
	case LevelWarning:
		l = logging.WARNING
	case LevelError:
		l = logging.ERROR
	default:
		l = logging.NOTICE
	}
	leveledBackend.SetLevel(l, "")
}

// ParseLevel maps a level name from configuration to a Level. Unknown names map to LevelNotice.
//
// Parameters:
//   - name: one of "debug", "info", "notice", "warning", "error" (case insensitive)
//
// Returns:
//   - Level: the parsed level
//   - bool: false if the name was not recognised
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "notice", "":
		return LevelNotice, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	}
	return LevelNotice, false
}

func init() {
	SetSink(os.Stdout)
	SetLevel(LevelNotice)
}
