// Package logging configures the charmbracelet/log loggers used by actionsim.
//
// Log lines always go to stderr; stdout carries the simulation result so it
// can be piped into other tools. Call Setup once from the CLI before any
// component logger is created with New: child loggers copy the level and
// formatter of the default logger when they are created and do not follow
// later changes.
//
//	logging.Setup(verbose, quiet, jsonFormat)
//	engine := simulate.NewEngine(simulate.WithLogger(logging.New("simulate")))
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Levels re-exported so callers need not import charmbracelet/log.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// LevelFor maps the --verbose and --quiet flags to a level. Quiet wins when
// both are set.
func LevelFor(verbose, quiet bool) log.Level {
	switch {
	case quiet:
		return log.ErrorLevel
	case verbose:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// Setup configures the default logger: level from verbose and quiet,
// output to stderr, and the JSON formatter when jsonFormat is set.
func Setup(verbose, quiet, jsonFormat bool) {
	log.SetLevel(LevelFor(verbose, quiet))
	log.SetOutput(os.Stderr)
	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// New returns a logger prefixed with component, e.g. "simulate". An empty
// component yields a logger without a prefix.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput redirects the default logger. Tests use it to capture output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
