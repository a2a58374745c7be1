package logutil

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLogFileName  = "FinalShotDebug.log"
	DefaultMaxSizeBytes = 5 * 1024 * 1024 // 5 MB
	timeFormat          = "2006-01-02 15:04:05"
)

// Options controls where diagnostic output goes.
type Options struct {
	Enabled      bool
	Path         string
	Level        string
	MaxSizeBytes int64
	// Console mirrors log lines to stderr in addition to the file.
	Console bool
}

var (
	mu     sync.Mutex
	active *RotatingWriter
)

func init() {
	log.Logger = zerolog.New(io.Discard).With().Timestamp().Logger()
}

// Setup enables file logging with timestamp-suffixed rotation.
// When disabled, logs are discarded (keeps stdout clean) unless Console is set.
func Setup(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if active != nil {
		_ = active.Close()
		active = nil
	}

	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	var sinks []io.Writer
	if opts.Enabled {
		path := opts.Path
		if path == "" {
			path = DefaultLogFileName
		}
		active = NewRotatingWriter(path, opts.MaxSizeBytes)
		sinks = append(sinks, active)
	}
	if opts.Console {
		sinks = append(sinks, os.Stderr)
	}

	var out io.Writer = io.Discard
	switch len(sinks) {
	case 0:
	case 1:
		out = sinks[0]
	default:
		out = io.MultiWriter(sinks...)
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
		NoColor:    true,
	}).With().Timestamp().Logger()
}

// Close flushes and releases the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		_ = active.Close()
		active = nil
	}
}

// ParseLevel maps a textual level to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a logger with a component field set.
func WithComponent(component string) *zerolog.Logger {
	l := log.Logger.With().Str("component", component).Logger()
	return &l
}
