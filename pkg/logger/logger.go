// Package logger provides namespaced debug logging controlled by the DEBUG
// environment variable, in the style of the node debug module.
//
// Namespaces are colon-separated, e.g. "cli:release" or "order:sort". The
// DEBUG variable holds a comma-separated list of glob patterns; a leading
// '-' excludes matching namespaces:
//
//	DEBUG=*                  enable everything
//	DEBUG=cli:*              enable the cli namespace
//	DEBUG=*,-order:sort      everything except order:sort
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes debug messages for a single namespace to stderr.
// A disabled logger's methods are cheap no-ops.
type Logger struct {
	namespace string
	enabled   bool

	mu   sync.Mutex
	last time.Time
}

// New creates a logger for the given namespace. Whether it is enabled is
// decided once, from the DEBUG environment variable at creation time.
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   enabledFor(namespace, os.Getenv("DEBUG")),
	}
}

// Enabled reports whether this logger's namespace matches the DEBUG patterns.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf logs a formatted message when the logger is enabled.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.emit(fmt.Sprintf(format, args...))
}

// Print logs its arguments, concatenated like fmt.Sprint, when enabled.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.emit(fmt.Sprint(args...))
}

// Println logs its arguments, joined like fmt.Sprintln, when enabled.
func (l *Logger) Println(args ...any) {
	if !l.enabled {
		return
	}
	l.emit(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l *Logger) emit(msg string) {
	l.mu.Lock()
	now := time.Now()
	var elapsed time.Duration
	if !l.last.IsZero() {
		elapsed = now.Sub(l.last)
	}
	l.last = now
	l.mu.Unlock()

	fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, msg, elapsed)
}

// enabledFor matches a namespace against the comma-separated DEBUG patterns.
// Exclusions (patterns prefixed with '-') win over inclusions.
func enabledFor(namespace, patterns string) bool {
	if patterns == "" {
		return false
	}
	enabled := false
	for _, raw := range strings.Split(patterns, ",") {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		negate := strings.HasPrefix(pattern, "-")
		if negate {
			pattern = pattern[1:]
		}
		if !matchPattern(pattern, namespace) {
			continue
		}
		if negate {
			return false
		}
		enabled = true
	}
	return enabled
}

// matchPattern supports a single trailing '*' wildcard, which is all the
// DEBUG convention uses.
func matchPattern(pattern, namespace string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(namespace, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == namespace
}
