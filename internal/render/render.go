// Package render connects the substitution engine to files, standard
// streams and the debug trace.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/natefinch/atomic"

	"github.com/zipkero/apply-env/internal/template"
	"github.com/zipkero/apply-env/internal/watcher"
)

// ErrUnresolved is returned in strict mode when placeholders have neither a
// value nor a fallback.
var ErrUnresolved = errors.New("unresolved placeholders")

var (
	originalColor    = color.New(color.FgYellow).SprintFunc()
	replacementColor = color.New(color.FgGreen).SprintFunc()
)

// Load returns the content of path. A missing file reads as empty text and
// an empty path reads stdin.
func Load(path string, stdin io.Reader) (string, error) {
	if path == "" {
		if stdin == nil {
			return "", nil
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Renderer renders templates with a fixed policy.
type Renderer struct {
	Policy template.Policy
	// Rewrite replaces template files with their output instead of printing it.
	Rewrite bool
	Strict  bool
	// ShowTrace prints the debug trace when results are emitted.
	ShowTrace bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// RenderFile renders the template at path ("" for stdin). It matches
// watcher.JobFunc.
func (r *Renderer) RenderFile(ctx context.Context, path string) *watcher.Result {
	result := &watcher.Result{Path: path}

	content, err := Load(path, r.Stdin)
	if err != nil {
		result.Error = err
		return result
	}

	if r.Strict {
		if missing := template.Unresolved(content, r.Policy); len(missing) > 0 {
			result.Unresolved = missing
			result.Error = fmt.Errorf("%w in %s: %s", ErrUnresolved, result.Name(), strings.Join(missing, ", "))
			return result
		}
	}

	result.Output, result.Trace = template.Process(content, r.Policy)
	r.logger().Debug("rendered template", "path", result.Name(), "placeholders", len(result.Trace))

	if r.Rewrite && path != "" && result.Output != "" {
		if err := ctx.Err(); err != nil {
			result.Error = err
			return result
		}
		if err := rewrite(path, result.Output); err != nil {
			result.Error = err
			return result
		}
		result.Rewritten = true
		r.logger().Info("rewrote template", "path", path)
	}

	return result
}

// rewrite replaces path with content, ending it with a newline.
func rewrite(path, content string) error {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	return nil
}

// Emit prints the trace of result to Stderr when enabled and its output to
// Stdout unless the file was rewritten.
func (r *Renderer) Emit(result *watcher.Result) error {
	if r.ShowTrace {
		for _, e := range result.Trace {
			fmt.Fprintf(r.Stderr, "Found [%d], orig: \"%s\", apply with: \"%s\"\n",
				e.Index, originalColor(e.Original), replacementColor(e.Replacement))
		}
		if result.Rewritten {
			fmt.Fprintf(r.Stderr, " => rewritten: %s\n", replacementColor(result.Path))
		}
	}

	if result.Error != nil || result.Rewritten {
		return nil
	}
	if _, err := io.WriteString(r.Stdout, result.Output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
