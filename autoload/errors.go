package autoload

import (
	"fmt"
	"strings"
)

// Kind discriminates the failure conditions a Load call can report.
type Kind int

const (
	// KindAlreadyLoaded means the name was live before Load ran. Reported in
	// debug mode only.
	KindAlreadyLoaded Kind = iota
	// KindNotFound means no candidate file existed for the name.
	KindNotFound
	// KindNotDeclared means the file was executed but the name still did not
	// become live. Reported in debug mode only.
	KindNotDeclared
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyLoaded:
		return "already loaded"
	case KindNotFound:
		return "not found"
	case KindNotDeclared:
		return "not declared"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error reports a Load failure. Callers can recover the discriminant with
// errors.As.
type Error struct {
	Kind Kind
	Name string
	// Tried holds every path probed while resolving Name. Only populated for
	// KindNotFound.
	Tried []string
	// Err carries the host runtime's error when execution itself failed.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadyLoaded:
		return fmt.Sprintf("autoload: %s is already declared", e.Name)
	case KindNotDeclared:
		return fmt.Sprintf("autoload: loading %s did not declare it", e.Name)
	default:
		if e.Err != nil {
			return fmt.Sprintf("autoload: load %s: %v", e.Name, e.Err)
		}
		if len(e.Tried) == 0 {
			return fmt.Sprintf("autoload: no file found for %s", e.Name)
		}
		return fmt.Sprintf("autoload: no file found for %s, tried:\n%s", e.Name, strings.Join(e.Tried, "\n"))
	}
}

func (e *Error) Unwrap() error { return e.Err }
