// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lazy implements a minimal single-shot dataflow task graph.
//
// A Task wraps a pure function together with the tasks producing its inputs.
// Building a graph never executes anything; execution happens exactly once,
// when a Strategy resolves the graph. Results are memoized, so resolving a
// graph a second time (or resolving overlapping graphs that share tasks)
// never re-runs a thunk.
//
// The graph is a DAG by construction: a task's dependencies are fixed when
// the task is created and cannot be changed afterward, so a cycle cannot
// be expressed through this API.
package lazy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Thunk is the pure function a Task defers.
//
// It receives the resolved values of the task's dependencies, in the same
// order the dependencies were declared. Thunks must be side-effect free:
// the execution strategy is free to run independent thunks concurrently
// and in any order.
type Thunk func(ctx context.Context, deps []any) (any, error)

// Task is a deferred computation node in the dataflow graph.
//
// Description:
//
//	A Task carries a thunk, its dependency list, and a write-once result
//	slot. The result is set exactly once, on first resolution, and is
//	returned unchanged by every later resolution.
//
// Thread Safety:
//
//	Task is safe for concurrent use. Memoization is guarded by sync.Once,
//	so concurrent resolution attempts execute the thunk at most once.
type Task struct {
	key  string
	deps []*Task
	fn   Thunk

	once   sync.Once
	result any
	err    error
	done   atomic.Bool
}

// New creates a Task deferring fn over the given dependencies.
//
// Inputs:
//
//	label - Optional stable key for the task, used in logs and errors.
//	        If empty, a short random key is generated.
//	deps - Tasks producing this task's inputs. May be nil for leaves.
//	fn - The deferred function. Must not be nil.
//
// Outputs:
//
//	*Task - The constructed task.
//	error - ErrNilThunk if fn is nil, ErrNilTask if a dependency is nil.
func New(label string, deps []*Task, fn Thunk) (*Task, error) {
	if fn == nil {
		return nil, ErrNilThunk
	}
	for i, d := range deps {
		if d == nil {
			return nil, fmt.Errorf("%w: dependency %d", ErrNilTask, i)
		}
	}

	key := label
	if key == "" {
		key = uuid.NewString()[:12] // 48 bits of entropy
	}

	// Copy deps to keep the graph immutable after construction.
	var depsCopy []*Task
	if len(deps) > 0 {
		depsCopy = make([]*Task, len(deps))
		copy(depsCopy, deps)
	}

	return &Task{key: key, deps: depsCopy, fn: fn}, nil
}

// FromValue creates a leaf task that yields v without computation.
// Used to lift an already-concrete value into the graph.
func FromValue(label string, v any) *Task {
	t, _ := New(label, nil, func(_ context.Context, _ []any) (any, error) {
		return v, nil
	})
	return t
}

// Key returns the task's identifier.
func (t *Task) Key() string {
	return t.key
}

// Dependencies returns the task's dependency list.
// The returned slice must not be modified.
func (t *Task) Dependencies() []*Task {
	return t.deps
}

// Resolved reports whether the task has executed (successfully or not).
func (t *Task) Resolved() bool {
	return t.done.Load()
}

// Value returns the memoized result of the task.
//
// Outputs:
//
//	any - The resolved value.
//	error - ErrUnresolved if the task has not run, or the thunk's error.
func (t *Task) Value() (any, error) {
	if !t.done.Load() {
		return nil, NewTaskError(t.key, ErrUnresolved)
	}
	return t.result, t.err
}

// Resolve forces the task (and everything it depends on) using the given
// strategy. Passing a nil strategy resolves serially.
//
// Resolution is memoized: a second call returns the stored result without
// re-executing any thunk.
func (t *Task) Resolve(ctx context.Context, strategy Strategy) (any, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if strategy == nil {
		strategy = Serial{}
	}
	if err := strategy.Resolve(ctx, []*Task{t}); err != nil {
		return nil, err
	}
	return t.Value()
}

// execute runs the thunk exactly once. Callers must guarantee that all
// dependencies are resolved before calling.
func (t *Task) execute(ctx context.Context) error {
	t.once.Do(func() {
		args := make([]any, len(t.deps))
		for i, d := range t.deps {
			args[i] = d.result
		}
		t.result, t.err = t.fn(ctx, args)
		if t.err != nil {
			t.err = NewTaskError(t.key, t.err)
		}
		t.done.Store(true)
	})
	return t.err
}

// collect walks the graph from roots and returns every reachable task in
// deterministic discovery order (dependencies before dependents).
func collect(roots []*Task) []*Task {
	seen := make(map[*Task]bool)
	var ordered []*Task

	var visit func(t *Task)
	visit = func(t *Task) {
		if seen[t] {
			return
		}
		seen[t] = true
		for _, d := range t.deps {
			visit(d)
		}
		ordered = append(ordered, t)
	}

	for _, r := range roots {
		visit(r)
	}
	return ordered
}
