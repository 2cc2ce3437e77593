package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmpile/cmpile/internal/compiler"
	"github.com/cmpile/cmpile/internal/depgraph"
)

// fakeRunner fails the sources listed in fail and records every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	ran     []string
	fail    map[string]bool
	current atomic.Int32
	peak    atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, cmd compiler.ShellCommand) (string, error) {
	cur := f.current.Add(1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	defer f.current.Add(-1)

	src := cmd.Args[1] // args are "-c <src> -o <obj> ..."

	f.mu.Lock()
	f.ran = append(f.ran, src)
	f.mu.Unlock()

	if f.fail[src] {
		return "error: something broke in " + src, errors.New("exit status 1")
	}

	return "", nil
}

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		src := fmt.Sprintf("file%d.cpp", i)
		tasks[i] = Task{
			Unit:   &depgraph.Unit{Path: src},
			Object: fmt.Sprintf("file%d.o", i),
			Cmd:    compiler.ShellCommand{Path: "c++", Args: []string{"-c", src, "-o", fmt.Sprintf("file%d.o", i)}},
		}
	}

	return tasks
}

func TestPool_Compile_AllTasksRun(t *testing.T) {
	runner := &fakeRunner{}
	pool := &Pool{Workers: 4, Runner: runner}

	results := pool.Compile(context.Background(), makeTasks(10))

	require.Len(t, results, 10)
	assert.Len(t, runner.ran, 10)

	for _, res := range results {
		assert.False(t, res.Failed())
	}
}

func TestPool_Compile_ResultsInTaskOrder(t *testing.T) {
	runner := &fakeRunner{}
	pool := &Pool{Workers: 8, Runner: runner}

	tasks := makeTasks(20)
	results := pool.Compile(context.Background(), tasks)

	require.Len(t, results, 20)
	for i, res := range results {
		assert.Equal(t, tasks[i].Unit.Path, res.Unit.Path)
		assert.Equal(t, tasks[i].Object, res.Object)
	}
}

func TestPool_Compile_FailureDoesNotBlockSiblings(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"file0.cpp": true, "file3.cpp": true}}
	pool := &Pool{Workers: 2, Runner: runner}

	results := pool.Compile(context.Background(), makeTasks(6))

	require.Len(t, results, 6)
	assert.Len(t, runner.ran, 6, "every sibling compiles despite failures")

	var failed int
	for _, res := range results {
		if res.Failed() {
			failed++
			assert.Contains(t, res.Output, res.Unit.Path)
		}
	}
	assert.Equal(t, 2, failed)
}

func TestPool_Compile_WorkerClamp(t *testing.T) {
	runner := &fakeRunner{}
	pool := &Pool{Workers: 16, Runner: runner}

	pool.Compile(context.Background(), makeTasks(3))

	assert.LessOrEqual(t, runner.peak.Load(), int32(3), "workers never exceed the task count")
}

func TestPool_Compile_ZeroWorkersStillRuns(t *testing.T) {
	runner := &fakeRunner{}
	pool := &Pool{Workers: 0, Runner: runner}

	results := pool.Compile(context.Background(), makeTasks(2))

	require.Len(t, results, 2)
	assert.Len(t, runner.ran, 2)
}

func TestPool_Compile_NoTasks(t *testing.T) {
	pool := &Pool{Workers: 4, Runner: &fakeRunner{}}

	results := pool.Compile(context.Background(), nil)

	assert.Empty(t, results)
}
