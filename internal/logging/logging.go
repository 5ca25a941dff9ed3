// Package logging builds the process-wide pion logger factory.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
)

// ParseLevel maps a level name to a pion log level.
func ParseLevel(name string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return logging.LogLevelInfo, nil
	case "disabled", "off", "none":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", name)
	}
}

// NewFactory returns a factory writing to w (stderr when nil) at the given
// level. Per-scope overrides use "scope=level" entries, e.g. "ice=warn".
func NewFactory(level string, w io.Writer, scopes ...string) (*logging.DefaultLoggerFactory, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	f := logging.NewDefaultLoggerFactory()
	f.Writer = w
	f.DefaultLogLevel = lvl
	for _, s := range scopes {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("scope level %q: want scope=level", s)
		}
		scopeLevel, err := ParseLevel(value)
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", name, err)
		}
		f.ScopeLevels[strings.ToLower(strings.TrimSpace(name))] = scopeLevel
	}
	return f, nil
}
