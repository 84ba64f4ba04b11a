// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// Level types
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	// Format types
	FormatJSON = "json"
	FormatText = "text"
)

// Opts holds logging configuration options.
type Opts struct {
	Fields   []string `long:"log-field" env:"LOG_FIELD" env-delim:"," description:"Inject fields at the topline level, using k:v"`
	Level    string   `long:"log-level" env:"LOG_LEVEL" description:"Log level: debug, info, warn, error" default:"info"`
	Format   string   `long:"log-format" env:"LOG_FORMAT" description:"Log format: json, text" default:"text"`
	FilePath string   `long:"log-file" env:"LOG_FILE" description:"Log to file instead of stderr"`
}

// Init sets the default slog logger from opts. The returned closer releases
// the log file, if any.
func Init(opts *Opts, stderr io.Writer) (io.Closer, error) {
	logger, closer, err := NewLogger(opts, stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

// NewLogger builds a logger writing to stderr, or to opts.FilePath when set.
func NewLogger(opts *Opts, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	handler, closer, err := getHandler(opts, stderr)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(handler)
	for _, field := range opts.Fields {
		key, value, ok := strings.Cut(field, ":")
		if !ok || key == "" {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("invalid field format: %s", field)
		}
		logger = logger.With(key, value)
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func getHandler(opts *Opts, stderr io.Writer) (slog.Handler, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	writer := stderr
	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		file, err := os.OpenFile(opts.FilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer, closer = file, file
	}

	switch opts.Format {
	case FormatJSON:
		return slog.NewJSONHandler(writer, handlerOpts), closer, nil
	case FormatText, "":
		return slog.NewTextHandler(writer, handlerOpts), closer, nil
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unrecognized format: %s", opts.Format)
	}
}

var levelToSlogLevel = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

func parseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}
	if l, ok := levelToSlogLevel[strings.ToLower(level)]; ok {
		return l, nil
	}
	return slog.LevelInfo, fmt.Errorf("unrecognized level: %s", level)
}
