// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lazy

import (
	"errors"
	"fmt"
)

// Sentinel errors for task-graph operations.
var (
	// ErrNilContext is returned when a nil context is passed to Resolve.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilThunk is returned when a task is created without a function.
	ErrNilThunk = errors.New("task thunk must not be nil")

	// ErrNilTask is returned when a nil task appears in a dependency list
	// or is passed to a strategy.
	ErrNilTask = errors.New("task must not be nil")

	// ErrUnresolved is returned when Value is called on a task that has
	// not been resolved yet.
	ErrUnresolved = errors.New("task has not been resolved")
)

// TaskError wraps an error with the key of the task that produced it.
//
// Use errors.Is/errors.As to inspect the underlying cause:
//
//	if errors.Is(err, lazy.ErrUnresolved) { ... }
//
//	var te *lazy.TaskError
//	if errors.As(err, &te) {
//	    log.Printf("task %s failed", te.Key)
//	}
type TaskError struct {
	Key string
	Err error
}

// Error returns the formatted error message.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a TaskError for the given task key.
func NewTaskError(key string, err error) *TaskError {
	return &TaskError{Key: key, Err: err}
}
