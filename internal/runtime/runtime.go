// Package runtime embeds a yaegi interpreter as the host the autoloader
// drives: it evaluates Go script files, answers liveness queries for the
// symbols they declare, and consults a miss-handler chain when a required
// symbol is not yet live.
package runtime

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// SearchPathEnv names the environment variable holding the global search
// path, entries separated by the platform list separator.
const SearchPathEnv = "AUTOLOAD_PATH"

// Interp wraps a yaegi interpreter. All script files share one interpreter
// instance so symbols declared by one file are visible to later ones.
type Interp struct {
	interp *interp.Interpreter
	chain  *Chain
}

// New builds an interpreter with the Go standard library available to
// scripts.
func New() *Interp {
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	return &Interp{interp: i, chain: NewChain()}
}

// Load evaluates the script file at path, making its top-level declarations
// live.
func (r *Interp) Load(path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("runtime: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return fmt.Errorf("runtime: %s is empty", path)
	}
	if _, err := r.interp.EvalPath(path); err != nil {
		return fmt.Errorf("runtime: interpret %s: %w", path, err)
	}
	return nil
}

// Declared reports whether the symbol behind name is live. The symbol for a
// namespaced name is its trailing identifier: App.Models.User resolves the
// interpreter symbol User. Resolution never consults the miss-handler chain.
func (r *Interp) Declared(name string) bool {
	sym := symbolFor(name)
	if sym == "" {
		return false
	}
	v, err := r.interp.Eval(sym)
	return err == nil && v.IsValid()
}

// SearchPath returns the global search path from the environment.
func (r *Interp) SearchPath() string {
	return os.Getenv(SearchPathEnv)
}

// Register appends or prepends a miss handler and returns its removal token.
func (r *Interp) Register(handler func(name string) error, prepend bool) int {
	return r.chain.Register(handler, prepend)
}

// Unregister removes a previously registered miss handler.
func (r *Interp) Unregister(token int) {
	r.chain.Unregister(token)
}

// Require resolves name to a live value, running the miss-handler chain once
// if the symbol is not yet declared.
func (r *Interp) Require(name string) (reflect.Value, error) {
	sym := symbolFor(name)
	if sym == "" {
		return reflect.Value{}, fmt.Errorf("runtime: %q has no symbol", name)
	}
	if v, err := r.interp.Eval(sym); err == nil && v.IsValid() {
		return v, nil
	}
	var handlerErrs []error
	for _, handler := range r.chain.Handlers() {
		if err := handler(name); err != nil {
			handlerErrs = append(handlerErrs, err)
		}
		if v, err := r.interp.Eval(sym); err == nil && v.IsValid() {
			return v, nil
		}
	}
	if len(handlerErrs) > 0 {
		return reflect.Value{}, fmt.Errorf("runtime: %s is not declared: %w", name, errors.Join(handlerErrs...))
	}
	return reflect.Value{}, fmt.Errorf("runtime: %s is not declared", name)
}

// symbolFor returns the trailing identifier of a symbolic name: the longest
// suffix of letters, digits, and underscores.
func symbolFor(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		c := rune(name[i])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			continue
		}
		return name[i+1:]
	}
	return name
}
