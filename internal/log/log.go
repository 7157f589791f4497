// Package log routes filehub's log output to stderr and an optional debug file.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
)

// sink fans log lines out to the console and, when configured, a debug file.
// Debug lines only ever reach the file.
type sink struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
}

var (
	out     = &sink{console: os.Stderr}
	console = stdlog.New(consoleWriter{out}, "", stdlog.LstdFlags)
	debug   = stdlog.New(debugWriter{out}, "debug: ", stdlog.LstdFlags|stdlog.Lmicroseconds)
)

type consoleWriter struct{ s *sink }

func (w consoleWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if w.s.file != nil {
		_, _ = w.s.file.Write(p)
	}
	if w.s.console == nil {
		return len(p), nil
	}
	return w.s.console.Write(p)
}

type debugWriter struct{ s *sink }

func (w debugWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	if w.s.file == nil {
		return len(p), nil
	}
	n, err := w.s.file.Write(p)
	_ = w.s.file.Sync()
	return n, err
}

// SetOutput replaces the console writer. A nil writer silences the console.
func SetOutput(w io.Writer) {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.console = w
}

// SetFile opens path for appending and mirrors every log line into it,
// debug lines included. An empty path closes any open file.
func SetFile(path string) error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.file != nil {
		_ = out.file.Close()
		out.file = nil
	}
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	out.file = f
	return nil
}

// Close closes the debug file if one is open.
func Close() error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.file == nil {
		return nil
	}
	err := out.file.Close()
	out.file = nil
	return err
}

// Writer returns an io.Writer feeding the console log, for gin's access log.
func Writer() io.Writer {
	return consoleWriter{out}
}

// Printf writes a formatted message to the console and debug file.
func Printf(format string, args ...any) {
	console.Printf(format, args...)
}

// Println writes a message to the console and debug file.
func Println(v ...any) {
	console.Println(v...)
}

// Fatalf logs the message and exits with status 1.
func Fatalf(format string, args ...any) {
	console.Printf(format, args...)
	_ = Close()
	os.Exit(1)
}

// Debugf writes a formatted message to the debug file only.
func Debugf(format string, args ...any) {
	debug.Printf(format, args...)
}
