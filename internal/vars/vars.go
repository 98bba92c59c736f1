// Package vars provides the variable sources placeholders are resolved from.
//
// Every source is a template.LookupFunc, so the substitution engine treats the
// process environment, env files, structured value files and scripts alike.
package vars

import (
	"errors"
	"os"

	"github.com/zipkero/apply-env/internal/template"
)

var (
	// ErrEnvFile is returned when an env file cannot be read or parsed.
	ErrEnvFile = errors.New("failed to read env file")

	// ErrVarsFile is returned when a structured variables file cannot be decoded.
	ErrVarsFile = errors.New("failed to read vars file")
)

// Environ looks names up in the process environment.
func Environ() template.LookupFunc {
	return os.LookupEnv
}

// Map looks names up in a fixed mapping. The map is not copied.
func Map(m map[string]string) template.LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Chain returns a lookup that asks each source in order and stops at the
// first one that knows the name. Nil sources are skipped.
func Chain(sources ...template.LookupFunc) template.LookupFunc {
	return func(name string) (string, bool) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if v, ok := src(name); ok {
				return v, true
			}
		}
		return "", false
	}
}
