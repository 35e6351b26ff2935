// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matutil provides the array primitives the treaty kernels consume.
//
// Matrices are gonum mat.Dense values laid out as (trials, periods):
// rows are independent simulation trials, columns are ordered sub-periods.
// Cumulative operations run along rows (the period axis); row order carries
// no meaning.
//
// Division follows IEEE-754 semantics: zero denominators produce Inf/NaN
// values that propagate as data, never as errors.
package matutil

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sentinel errors for matrix operations.
var (
	// ErrNilMatrix is returned when an operand is nil.
	ErrNilMatrix = errors.New("matrix must not be nil")

	// ErrShapeMismatch is returned when binary operands have different
	// dimensions.
	ErrShapeMismatch = errors.New("matrix shape mismatch")
)

// SameDims verifies two matrices share dimensions.
func SameDims(a, b *mat.Dense) error {
	if a == nil || b == nil {
		return ErrNilMatrix
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("%w: (%d,%d) vs (%d,%d)", ErrShapeMismatch, ar, ac, br, bc)
	}
	return nil
}

// ElemAdd returns a + b elementwise.
func ElemAdd(a, b *mat.Dense) (*mat.Dense, error) {
	if err := SameDims(a, b); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Add(a, b)
	return &out, nil
}

// ElemSub returns a - b elementwise.
func ElemSub(a, b *mat.Dense) (*mat.Dense, error) {
	if err := SameDims(a, b); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Sub(a, b)
	return &out, nil
}

// ElemMul returns a * b elementwise (Hadamard product).
func ElemMul(a, b *mat.Dense) (*mat.Dense, error) {
	if err := SameDims(a, b); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.MulElem(a, b)
	return &out, nil
}

// ElemDiv returns a / b elementwise. Zero denominators yield Inf/NaN,
// matching the pass-through semantics of the array engine.
func ElemDiv(a, b *mat.Dense) (*mat.Dense, error) {
	if err := SameDims(a, b); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.DivElem(a, b)
	return &out, nil
}

// Scale returns k * x elementwise.
func Scale(x *mat.Dense, k float64) *mat.Dense {
	var out mat.Dense
	out.Scale(k, x)
	return &out
}

// LayerExcess returns min(width, max(0, x - attachment)) elementwise:
// the per-period loss to an excess layer before any capacity accounting.
func LayerExcess(x *mat.Dense, attachment, width float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Min(width, math.Max(0, v-attachment))
	}, x)
	return &out
}

// CumSumRows returns the cumulative sum of x along each row.
func CumSumRows(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		floats.CumSum(out.RawRowView(i), x.RawRowView(i))
	}
	return out
}

// Clip clamps every element of x to [lo, hi].
func Clip(x *mat.Dense, lo, hi float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Min(hi, math.Max(lo, v))
	}, x)
	return &out
}

// DiffRows returns the adjacent difference of x along each row, with the
// first column measured against baseline. Applied to a cumulative series
// it recovers the per-period increments.
func DiffRows(x *mat.Dense, baseline float64) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		prev := baseline
		for j := 0; j < c; j++ {
			v := x.At(i, j)
			out.Set(i, j, v-prev)
			prev = v
		}
	}
	return out
}
