package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Logger is a minimal printf-style logging contract. It is constructed once
// at process start and passed down through every bridge constructor, so no
// package carries hidden process-wide logging state.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

// FileLogger writes levelled lines to a single log file.
type FileLogger struct {
	out    *log.Logger
	closer io.Closer
}

// NewFileLogger opens (or creates) the log file at path in append mode.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{
		out:    log.New(f, "", log.LstdFlags),
		closer: f,
	}, nil
}

// NewWriterLogger wraps an arbitrary writer, mainly for tests.
func NewWriterLogger(w io.Writer) *FileLogger {
	return &FileLogger{out: log.New(w, "", log.LstdFlags)}
}

func (l *FileLogger) Debug(format string, args ...any) { l.out.Printf("[DEBUG] "+format, args...) }
func (l *FileLogger) Info(format string, args ...any)  { l.out.Printf("[INFO] "+format, args...) }
func (l *FileLogger) Warn(format string, args ...any)  { l.out.Printf("[WARN] "+format, args...) }
func (l *FileLogger) Error(format string, args ...any) { l.out.Printf("[ERROR] "+format, args...) }

// Close releases the underlying file, if any.
func (l *FileLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
