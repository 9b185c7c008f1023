package autoload

import (
	"fmt"
	"strings"
)

// Default option values for a freshly constructed Loader. The host here
// interprets Go source files, so names split on "." and resolve to .go files
// unless reconfigured.
const (
	DefaultSeparator = "."
	DefaultExtension = ".go"
)

// Mode controls how strictly Load reports failures.
type Mode int

const (
	// ModeSilent swallows every failure condition.
	ModeSilent Mode = iota
	// ModeNormal reports missing files and treats the other conditions as
	// non-fatal.
	ModeNormal
	// ModeDebug reports every failure condition, including redundant loads
	// and files that execute without declaring the expected name.
	ModeDebug
)

func (m Mode) String() string {
	switch m {
	case ModeSilent:
		return "silent"
	case ModeNormal:
		return "normal"
	case ModeDebug:
		return "debug"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return ModeSilent, nil
	case "", "normal":
		return ModeNormal, nil
	case "debug":
		return ModeDebug, nil
	default:
		return ModeNormal, fmt.Errorf("autoload: unknown mode %q", s)
	}
}

// Logger receives diagnostic lines when the loader runs in debug mode.
type Logger interface {
	Printf(format string, args ...any)
}

// Option customizes Loader construction and reconfiguration.
type Option func(*Loader)

// WithSeparator sets the token dividing namespace segments in symbolic names.
func WithSeparator(sep string) Option {
	return func(l *Loader) {
		if sep != "" {
			l.sep = sep
		}
	}
}

// WithExtension sets the suffix appended to computed file paths.
func WithExtension(ext string) Option {
	return func(l *Loader) {
		if ext != "" {
			l.ext = ext
		}
	}
}

// WithGlobalSearchPath enables a final lookup against the host's search path
// when prefixes and fallbacks miss.
func WithGlobalSearchPath(enabled bool) Option {
	return func(l *Loader) {
		l.useSearchPath = enabled
	}
}

// WithMode sets the initial operational mode.
func WithMode(m Mode) Option {
	return func(l *Loader) {
		l.mode = m
	}
}

// WithLogger installs a diagnostic logger consulted in debug mode.
func WithLogger(log Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}
