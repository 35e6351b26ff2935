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
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/sync/errgroup"
)

var (
	tracer = otel.Tracer("cession.lazy")
	meter  = otel.Meter("cession.lazy")
)

// Strategy resolves a set of root tasks together with their transitive
// dependencies. All strategies produce identical results for the same
// graph (thunks are pure); they differ only in parallelism.
type Strategy interface {
	Resolve(ctx context.Context, roots []*Task) error
}

// Serial resolves the graph depth-first in a single goroutine.
//
// Deterministic and allocation-light; the right default for small graphs
// and for tests.
type Serial struct {
	// Logger for per-task debug logs. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Resolve executes every unresolved task reachable from roots, in
// dependency order.
func (s Serial) Resolve(ctx context.Context, roots []*Task) error {
	if ctx == nil {
		return ErrNilContext
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, r := range roots {
		if r == nil {
			return ErrNilTask
		}
	}

	for _, t := range collect(roots) {
		if t.Resolved() {
			// A previously failed task poisons the graph; surface its
			// error instead of running dependents against missing inputs.
			if _, err := t.Value(); err != nil {
				return err
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := t.execute(ctx)
		recordTask(ctx, t.key, time.Since(start), err)
		if err != nil {
			logger.Debug("task failed",
				slog.String("task", t.key),
				slog.String("error", err.Error()),
			)
			return err
		}
	}
	return nil
}

// Parallel resolves the graph in dependency waves, running the tasks of
// each wave concurrently.
//
// Description:
//
//	Parallel repeatedly finds tasks whose dependencies are all resolved
//	and executes that batch concurrently, bounded by Limit. Because
//	thunks are pure and results are memoized, the output is identical
//	to Serial resolution.
//
// Thread Safety:
//
//	Safe for concurrent use; distinct Resolve calls may share tasks.
type Parallel struct {
	// Limit bounds the number of concurrently executing thunks.
	// Zero or negative means no bound.
	Limit int

	// Logger for execution logs. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Resolve executes the graph wave by wave until every task has run or a
// thunk fails. The first failure aborts resolution.
func (p Parallel) Resolve(ctx context.Context, roots []*Task) error {
	if ctx == nil {
		return ErrNilContext
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, r := range roots {
		if r == nil {
			return ErrNilTask
		}
	}
	tasks := collect(roots)

	ctx, span := tracer.Start(ctx, "lazy.Resolve",
		trace.WithAttributes(
			attribute.Int("lazy.task_count", len(tasks)),
			attribute.Int("lazy.limit", p.Limit),
		),
	)
	defer span.End()

	start := time.Now()
	executed := 0

	// A previously failed task poisons the graph; surface its error
	// instead of running dependents against missing inputs.
	for _, t := range tasks {
		if t.Resolved() {
			if _, err := t.Value(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
		}
	}

	for {
		ready := findReady(tasks)
		if len(ready) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		if p.Limit > 0 {
			g.SetLimit(p.Limit)
		}
		for _, t := range ready {
			g.Go(func() error {
				taskStart := time.Now()
				err := t.execute(gctx)
				recordTask(gctx, t.key, time.Since(taskStart), err)
				return err
			})
		}
		executed += len(ready)

		if err := g.Wait(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Debug("resolution failed",
				slog.String("error", err.Error()),
				slog.Int("tasks_executed", executed),
			)
			return err
		}

		select {
		case <-ctx.Done():
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "context canceled")
			return ctx.Err()
		default:
		}
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug("resolution complete",
		slog.Int("tasks_executed", executed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// findReady returns unresolved tasks whose dependencies are all resolved.
func findReady(tasks []*Task) []*Task {
	var ready []*Task
	for _, t := range tasks {
		if t.Resolved() {
			continue
		}
		depsDone := true
		for _, d := range t.deps {
			if !d.Resolved() {
				depsDone = false
				break
			}
		}
		if depsDone {
			ready = append(ready, t)
		}
	}
	return ready
}

// Metrics (initialized lazily, degrade gracefully if unavailable).
var (
	metricsOnce   sync.Once
	taskLatency   metric.Float64Histogram
	taskSuccesses metric.Int64Counter
	taskFailures  metric.Int64Counter
)

func initMetrics() {
	metricsOnce.Do(func() {
		var errs []string

		var err error
		taskLatency, err = meter.Float64Histogram("lazy_task_duration_seconds",
			metric.WithDescription("Time spent executing each task thunk"),
			metric.WithUnit("s"),
		)
		if err != nil {
			errs = append(errs, "task_latency: "+err.Error())
		}

		taskSuccesses, err = meter.Int64Counter("lazy_task_success_total",
			metric.WithDescription("Number of successful task executions"),
		)
		if err != nil {
			errs = append(errs, "task_successes: "+err.Error())
		}

		taskFailures, err = meter.Int64Counter("lazy_task_failure_total",
			metric.WithDescription("Number of failed task executions"),
		)
		if err != nil {
			errs = append(errs, "task_failures: "+err.Error())
		}

		if len(errs) > 0 {
			slog.Default().Error("failed to initialize some task metrics (observability degraded)",
				slog.Int("failed_count", len(errs)),
				slog.Any("errors", errs),
			)
		}
	})
}

// recordTask records latency and outcome for one task execution.
func recordTask(ctx context.Context, key string, d time.Duration, err error) {
	initMetrics()

	attrs := metric.WithAttributes(attribute.String("task", key))
	if taskLatency != nil {
		taskLatency.Record(ctx, d.Seconds(), attrs)
	}
	if err != nil {
		if taskFailures != nil {
			taskFailures.Add(ctx, 1, attrs)
		}
		return
	}
	if taskSuccesses != nil {
		taskSuccesses.Add(ctx, 1, attrs)
	}
}
