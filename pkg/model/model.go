// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model orchestrates the evaluation of a treaty graph.
//
// A Model ties input nodes to output nodes and forces every deferred
// output in one pass. Results come back in the order the output nodes
// were supplied, regardless of the execution strategy used to resolve
// the underlying task graph.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/cession/pkg/lazy"
	"github.com/AleutianAI/cession/pkg/treaty"
)

var tracer = otel.Tracer("cession.model")

// Sentinel errors for model construction and evaluation.
var (
	// ErrNoOutputs is returned when a model is built without output nodes.
	ErrNoOutputs = errors.New("model requires at least one output node")

	// ErrDuplicateName is returned when two output nodes share a
	// non-empty name.
	ErrDuplicateName = errors.New("duplicate output node name")

	// ErrUnexpectedValue is returned when a resolved output is not a
	// loss matrix.
	ErrUnexpectedValue = errors.New("resolved output is not a loss matrix")
)

// Result is one fully resolved model output: either a bare loss matrix
// or a mapping of field names to matrices, tagged with the producing
// node's name.
type Result struct {
	Name   string
	Matrix *mat.Dense
	Fields map[treaty.Field]*mat.Dense
}

// IsMapping reports whether the result carries a field mapping.
func (r Result) IsMapping() bool {
	return r.Fields != nil
}

// Model evaluates a set of output nodes over their shared task graph.
//
// Thread Safety:
//
//	Model is safe for concurrent use; task memoization guarantees each
//	deferred transform executes at most once across Compute calls.
type Model struct {
	inputs  []*treaty.Node
	outputs []*treaty.Node
	logger  *slog.Logger
}

// ModelOption configures a Model at construction.
type ModelOption func(*Model)

// WithLogger sets the logger used for compute logs.
// If unset, slog.Default() is used.
func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		m.logger = logger
	}
}

// New constructs a Model over the given input and output nodes.
//
// Inputs:
//
//	inputs - The graph's leaves. Retained for introspection; may be nil.
//	outputs - The nodes to materialize. Must be non-empty, and non-empty
//	          names must be unique.
//
// Outputs:
//
//	*Model - The constructed model.
//	error - ErrNoOutputs, treaty.ErrNilNode, or ErrDuplicateName.
func New(inputs, outputs []*treaty.Node, opts ...ModelOption) (*Model, error) {
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	for i, n := range inputs {
		if n == nil {
			return nil, fmt.Errorf("%w: input %d", treaty.ErrNilNode, i)
		}
	}
	seen := make(map[string]bool, len(outputs))
	for i, n := range outputs {
		if n == nil {
			return nil, fmt.Errorf("%w: output %d", treaty.ErrNilNode, i)
		}
		name := n.Name()
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		seen[name] = true
	}

	m := &Model{
		inputs:  append([]*treaty.Node(nil), inputs...),
		outputs: append([]*treaty.Node(nil), outputs...),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// Inputs returns the model's input nodes. The slice must not be modified.
func (m *Model) Inputs() []*treaty.Node {
	return m.inputs
}

// Outputs returns the model's output nodes. The slice must not be
// modified.
func (m *Model) Outputs() []*treaty.Node {
	return m.outputs
}

// ComputeOption configures a single Compute call.
type ComputeOption func(*computeConfig)

type computeConfig struct {
	strategy lazy.Strategy
}

// WithStrategy selects the execution strategy for resolution. The
// strategy changes parallelism only, never results. Default: lazy.Serial.
func WithStrategy(s lazy.Strategy) ComputeOption {
	return func(c *computeConfig) {
		c.strategy = s
	}
}

// Compute forces every deferred output and returns the concrete results.
//
// Description:
//
//	Resolves the full task graph once, then materializes each output
//	node: array outputs become matrices, mapping outputs become field
//	maps resolved entry by entry. Nested deferred values are resolved
//	recursively. A second Compute returns identical results without
//	re-executing any transform (results are memoized in the tasks).
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	opts - Per-call options (e.g. WithStrategy).
//
// Outputs:
//
//	[]Result - One result per output node, in supply order.
//	error - Non-nil if any transform or projection fails; no partial
//	        results are returned.
func (m *Model) Compute(ctx context.Context, opts ...ComputeOption) ([]Result, error) {
	if ctx == nil {
		return nil, lazy.ErrNilContext
	}
	cfg := computeConfig{strategy: lazy.Serial{Logger: m.logger}}
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := uuid.NewString()[:12] // 48 bits of entropy
	ctx, span := tracer.Start(ctx, "model.Compute",
		trace.WithAttributes(
			attribute.String("model.run_id", runID),
			attribute.Int("model.output_count", len(m.outputs)),
		),
	)
	defer span.End()

	start := time.Now()
	m.logger.Debug("model compute started",
		slog.String("run_id", runID),
		slog.Int("outputs", len(m.outputs)),
	)

	if err := cfg.strategy.Resolve(ctx, m.roots()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Error("model compute failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	results := make([]Result, 0, len(m.outputs))
	for _, n := range m.outputs {
		res, err := m.materialize(ctx, cfg.strategy, n)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		results = append(results, res)
	}

	span.SetStatus(codes.Ok, "")
	m.logger.Info("model compute completed",
		slog.String("run_id", runID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("outputs", len(results)),
	)
	return results, nil
}

// roots collects the distinct root tasks of all output nodes, preserving
// output order for deterministic resolution.
func (m *Model) roots() []*lazy.Task {
	seen := make(map[*lazy.Task]bool)
	var roots []*lazy.Task
	for _, n := range m.outputs {
		for _, t := range n.Tasks() {
			if seen[t] {
				continue
			}
			seen[t] = true
			roots = append(roots, t)
		}
	}
	return roots
}

// materialize turns a resolved output node into a concrete Result.
// Mapping outputs are resolved entry by entry; entries have no
// cross-dependency at this stage.
func (m *Model) materialize(ctx context.Context, strategy lazy.Strategy, n *treaty.Node) (Result, error) {
	out := n.Output()
	if out.IsArray() {
		matrix, err := m.resolvedMatrix(ctx, strategy, out.Array())
		if err != nil {
			return Result{}, err
		}
		return Result{Name: n.Name(), Matrix: matrix}, nil
	}

	fields := make(map[treaty.Field]*mat.Dense)
	for _, f := range out.Fields() {
		t, _ := out.FieldTask(f)
		matrix, err := m.resolvedMatrix(ctx, strategy, t)
		if err != nil {
			return Result{}, fmt.Errorf("field %q: %w", f, err)
		}
		fields[f] = matrix
	}
	return Result{Name: n.Name(), Fields: fields}, nil
}

// resolvedMatrix extracts the concrete matrix from a task, resolving
// nested deferred values recursively.
func (m *Model) resolvedMatrix(ctx context.Context, strategy lazy.Strategy, t *lazy.Task) (*mat.Dense, error) {
	v, err := t.Value()
	if err != nil {
		return nil, err
	}
	for {
		switch val := v.(type) {
		case *mat.Dense:
			return val, nil
		case *lazy.Task:
			v, err = val.Resolve(ctx, strategy)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: got %T", ErrUnexpectedValue, v)
		}
	}
}
