// Package logger configures the structured logger used across the miner.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with the handful of setup knobs the miner needs.
type Logger struct {
	*logrus.Logger
}

// Options selects the output, format and verbosity of a Logger.
type Options struct {
	// File routes output to a rotated log file instead of stderr.
	File string
	// JSON switches the format to one JSON object per line.
	JSON bool
	// Verbose enables debug-level entries.
	Verbose bool
}

// New builds a logger from the options. Log files rotate at 100 MB and keep
// three backups for four weeks.
func New(opts Options) *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if opts.Verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	if opts.File != "" {
		l.SetOutput(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	return &Logger{Logger: l}
}

// NewWriter returns a plain-text logger writing to w, mainly for tests.
func NewWriter(w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	return &Logger{Logger: l}
}
