// Package watcher runs template jobs over many files and re-runs them when
// the files change.
package watcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// JobFunc renders a single template. It must return a non-nil Result.
type JobFunc func(ctx context.Context, path string) *Result

type job struct {
	index int
	path  string
}

type indexedResult struct {
	index  int
	result *Result
}

// Run renders every path with fn using concurrency workers. Results are
// returned in the order of paths regardless of completion order.
func Run(ctx context.Context, paths []string, concurrency int, fn JobFunc) []*Result {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(paths) {
		concurrency = len(paths)
	}

	results := make([]*Result, len(paths))
	resultCh := make(chan indexedResult, len(paths))
	jobCh := make(chan job, len(paths))
	var wg sync.WaitGroup

	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for r := range resultCh {
			results[r.index] = r.result
		}
	}()

	for i, path := range paths {
		jobCh <- job{index: i, path: path}
	}
	close(jobCh)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker(ctx, fn, jobCh, resultCh, &wg)
	}

	wg.Wait()
	close(resultCh)
	collectWg.Wait()

	return results
}

func worker(ctx context.Context, fn JobFunc, jobCh <-chan job, resultCh chan<- indexedResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobCh {
		if err := ctx.Err(); err != nil {
			resultCh <- indexedResult{index: j.index, result: &Result{Path: j.path, Error: err}}
			continue
		}

		start := time.Now()
		result := fn(ctx, j.path)
		if result.Elapsed == 0 {
			result.Elapsed = time.Since(start)
		}
		resultCh <- indexedResult{index: j.index, result: result}
	}
}

// Stats aggregates a batch of results.
type Stats struct {
	Files        int
	Succeeded    int
	Failed       int
	Placeholders int
	Rewritten    int
	Total        time.Duration
}

// Summarize computes Stats for results.
func Summarize(results []*Result) Stats {
	var s Stats
	for _, r := range results {
		s.Files++
		if r.Error != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
		if r.Rewritten {
			s.Rewritten++
		}
		s.Placeholders += len(r.Trace)
		s.Total += r.Elapsed
	}
	return s
}

// PrintSummary writes a short human readable summary of results to w.
func PrintSummary(w io.Writer, results []*Result) {
	s := Summarize(results)

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Rewritten: %d\n", s.Rewritten)
	fmt.Fprintf(w, "Elapsed: %dms\n", s.Total.Milliseconds())
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(w, "  %s: %v\n", r.Name(), r.Error)
		}
	}
	fmt.Fprintln(w, "==================================================")
}

// WriteReport writes a markdown report of results to path. The file is
// replaced atomically.
func WriteReport(path string, results []*Result, now time.Time) error {
	var sb strings.Builder
	sb.WriteString("# apply-env report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format("2006-01-02 15:04:05")))

	sb.WriteString("| File | # | Placeholder | Replacement |\n")
	sb.WriteString("|------|---|-------------|-------------|\n")
	for _, r := range results {
		for _, e := range r.Trace {
			sb.WriteString(fmt.Sprintf("| %s | %d | `%s` | `%s` |\n",
				markdownCell(r.Name()),
				e.Index,
				markdownCell(e.Original),
				markdownCell(e.Replacement),
			))
		}
	}

	sb.WriteString("\n## Files\n\n")
	for _, r := range results {
		status := "ok"
		if r.Error != nil {
			status = "error: " + markdownCell(r.Error.Error())
		} else if r.Rewritten {
			status = "rewritten"
		}
		sb.WriteString(fmt.Sprintf("- **%s**: %s (%d placeholders, %dms)\n",
			markdownCell(r.Name()), status, len(r.Trace), r.Elapsed.Milliseconds()))
	}

	s := Summarize(results)
	sb.WriteString("\n## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Files**: %d\n", s.Files))
	sb.WriteString(fmt.Sprintf("- **Succeeded**: %d\n", s.Succeeded))
	sb.WriteString(fmt.Sprintf("- **Failed**: %d\n", s.Failed))
	sb.WriteString(fmt.Sprintf("- **Placeholders**: %d\n", s.Placeholders))

	if err := atomic.WriteFile(path, strings.NewReader(sb.String())); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\n", `\n`, "\r", `\r`, "`", "'")

func markdownCell(s string) string {
	return cellReplacer.Replace(s)
}
