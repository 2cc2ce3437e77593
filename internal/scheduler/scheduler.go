// Package scheduler compiles stale translation units concurrently.
//
// Units have no ordering dependency between them, so scheduling is pure
// fan-out/fan-in across a bounded worker pool. A failing unit never aborts
// its siblings: every in-flight compile finishes and the aggregate result set
// carries each unit's own diagnostic, so one invocation surfaces the maximal
// actionable error set.
package scheduler

import (
	"context"
	"sync"

	"github.com/cmpile/cmpile/internal/compiler"
	"github.com/cmpile/cmpile/internal/ctxlog"
	"github.com/cmpile/cmpile/internal/depgraph"
)

// Task is one pending compilation.
type Task struct {
	Unit   *depgraph.Unit
	Object string
	Cmd    compiler.ShellCommand
}

// Result is the outcome of one compilation.
type Result struct {
	Unit   *depgraph.Unit
	Object string

	// Output is the compiler's combined diagnostic output.
	Output string

	// Err is non-nil when the unit failed to compile.
	Err error
}

// Failed reports whether this unit's compilation failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Runner executes a single toolchain invocation.
type Runner interface {
	Run(ctx context.Context, cmd compiler.ShellCommand) (string, error)
}

// Pool is a bounded compile worker pool.
type Pool struct {
	Workers int
	Runner  Runner
}

// Compile runs every task and returns results in task order. All workers
// drain the queue even after failures; the caller decides whether linking may
// proceed.
func (p *Pool) Compile(ctx context.Context, tasks []Task) []Result {
	logger := ctxlog.FromContext(ctx)

	results := make([]Result, len(tasks))

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for i := range indexes {
				task := tasks[i]

				logger.Debug("compiling", "workerID", workerID, "source", task.Unit.Path)

				out, err := p.Runner.Run(ctx, task.Cmd)

				results[i] = Result{
					Unit:   task.Unit,
					Object: task.Object,
					Output: out,
					Err:    err,
				}

				if err != nil {
					logger.Error("compilation failed", "workerID", workerID, "source", task.Unit.Path, "error", err)
				}
			}
		}(w)
	}

	for i := range tasks {
		indexes <- i
	}
	close(indexes)

	wg.Wait()

	return results
}
