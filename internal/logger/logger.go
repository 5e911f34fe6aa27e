package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/history-lens/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Format selects how log lines are rendered
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Builder provides a fluent interface for building loggers
type Builder struct {
	level      zerolog.Level
	format     Format
	output     io.Writer
	filePath   string
	maxSizeMB  int
	maxBackups int
}

// NewBuilder creates a builder that logs at info level to stderr
func NewBuilder() *Builder {
	return &Builder{
		level:     zerolog.InfoLevel,
		format:    FormatConsole,
		output:    os.Stderr,
		maxSizeMB: 50,
	}
}

// WithConfig applies the log section of the configuration
func (b *Builder) WithConfig(cfg config.LogConfig) *Builder {
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		b.level = level
	}
	if cfg.Format != "" {
		b.format = Format(cfg.Format)
	}
	if cfg.File != "" {
		b.WithFile(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups)
	}
	return b
}

// WithLevel sets the minimum level
func (b *Builder) WithLevel(level zerolog.Level) *Builder {
	b.level = level
	return b
}

// WithFormat sets the console output format
func (b *Builder) WithFormat(format Format) *Builder {
	b.format = format
	return b
}

// WithOutput replaces the console writer
func (b *Builder) WithOutput(w io.Writer) *Builder {
	b.output = w
	return b
}

// WithFile adds a size-rotated JSON log file
func (b *Builder) WithFile(path string, maxSizeMB, maxBackups int) *Builder {
	b.filePath = path
	b.maxSizeMB = maxSizeMB
	b.maxBackups = maxBackups
	return b
}

// Build creates the logger and routes the standard library logger through it
func (b *Builder) Build() (zerolog.Logger, error) {
	if b.filePath != "" && b.maxSizeMB <= 0 {
		return zerolog.Nop(), fmt.Errorf("max_size_mb must be positive, got %d", b.maxSizeMB)
	}

	var writers []io.Writer
	if b.output != nil {
		writers = append(writers, b.consoleWriter())
	}
	if b.filePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   b.filePath,
			MaxSize:    b.maxSizeMB,
			MaxBackups: b.maxBackups,
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), fmt.Errorf("no log output configured")
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(b.level).
		With().
		Timestamp().
		Logger()

	stdlog.SetOutput(l)
	stdlog.SetFlags(0)

	return l, nil
}

func (b *Builder) consoleWriter() io.Writer {
	if b.format == FormatJSON {
		return b.output
	}
	return zerolog.ConsoleWriter{
		Out:        b.output,
		TimeFormat: time.RFC3339,
		NoColor:    b.output != os.Stderr && b.output != os.Stdout,
	}
}

// New builds a logger from configuration
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewBuilder().WithConfig(cfg).Build()
}
