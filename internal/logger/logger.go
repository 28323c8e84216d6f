// Package logger provides leveled console logging for buildboard.
// Debug, Info and Warn are printed only in verbose mode (--verbose);
// Error is always printed. Output goes to stderr by default.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(always bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(false, "[DEBUG] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	printf(false, "\n=== ", "%s ===", name)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(false, "[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(false, "[WARN] ", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	printf(true, "[ERROR] ", format, args...)
}

// Slog returns a slog.Logger that writes through this package, for
// libraries that log via log/slog. component is prefixed to every
// message.
func Slog(component string) *slog.Logger {
	return slog.New(&handler{component: component})
}

// handler is a slog.Handler that forwards records to the package
// level functions.
type handler struct {
	component string
	attrs     []slog.Attr
	group     string
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError || IsVerbose()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if h.component != "" {
		b.WriteString(h.component)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", h.qualify(a.Key), a.Value.Any())
		return true
	})

	msg := b.String()
	switch {
	case r.Level >= slog.LevelError:
		Error("%s", msg)
	case r.Level >= slog.LevelWarn:
		Warn("%s", msg)
	case r.Level >= slog.LevelInfo:
		Info("%s", msg)
	default:
		Debug("%s", msg)
	}
	return nil
}

// WithAttrs qualifies attrs with the current group when they are added.
func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &next
}

func (h *handler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *handler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}
