package watcher

import (
	"time"

	"github.com/zipkero/apply-env/internal/template"
)

// Result is the outcome of rendering one template.
type Result struct {
	// Path of the template, empty for standard input.
	Path       string
	Output     string
	Trace      []template.DebugEntry
	Unresolved []string
	Rewritten  bool
	Elapsed    time.Duration
	Error      error
}

// Name is the display name of the template.
func (r *Result) Name() string {
	if r.Path == "" {
		return "<stdin>"
	}
	return r.Path
}
