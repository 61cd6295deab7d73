// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls verbosity and the optional rotated file sink
type Options struct {
	Silent     bool
	Verbose    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer
}

// Level maps the silent/verbose toggles onto a logrus level
func (o Options) Level() logrus.Level {
	switch {
	case o.Silent:
		return logrus.WarnLevel
	case o.Verbose:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// New creates a logger writing human-readable lines to the console and,
// when File is set, JSON lines to a size-rotated file. The returned closer
// releases the file sink and is never nil.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(console)
	l.SetLevel(opts.Level())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	if opts.File == "" {
		return l, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, err
	}

	sink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    max(1, opts.MaxSizeMB),
		MaxBackups: max(0, opts.MaxBackups),
	}

	// The file always records debug detail regardless of console verbosity.
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(io.Discard)
	l.AddHook(&writerHook{
		w:         console,
		formatter: l.Formatter,
		levels:    levelsUpTo(opts.Level()),
	})
	l.AddHook(&writerHook{
		w:         sink,
		formatter: &logrus.JSONFormatter{},
		levels:    logrus.AllLevels,
	})

	return l, sink, nil
}

// Discard returns a logger that drops everything, for tests and library use
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// writerHook sends entries at the configured levels to w
type writerHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

func levelsUpTo(limit logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, lvl := range logrus.AllLevels {
		if lvl <= limit {
			out = append(out, lvl)
		}
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
