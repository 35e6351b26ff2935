// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matutil

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func matEqual(t *testing.T, got *mat.Dense, want []float64, r, c int) {
	t.Helper()
	gr, gc := got.Dims()
	if gr != r || gc != c {
		t.Fatalf("dims = (%d,%d), want (%d,%d)", gr, gc, r, c)
	}
	expected := mat.NewDense(r, c, want)
	if !mat.EqualApprox(got, expected, 1e-12) {
		t.Fatalf("got:\n%v\nwant:\n%v", mat.Formatted(got), mat.Formatted(expected))
	}
}

func TestElemAdd(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{10, 20, 30, 40})

	got, err := ElemAdd(a, b)
	if err != nil {
		t.Fatalf("ElemAdd: %v", err)
	}
	matEqual(t, got, []float64{11, 22, 33, 44}, 2, 2)
}

func TestElemAdd_ShapeMismatch(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewDense(2, 3, nil)

	_, err := ElemAdd(a, b)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got: %v", err)
	}
}

func TestElemAdd_NilOperand(t *testing.T) {
	_, err := ElemAdd(nil, mat.NewDense(1, 1, nil))
	if !errors.Is(err, ErrNilMatrix) {
		t.Fatalf("expected ErrNilMatrix, got: %v", err)
	}
}

func TestElemDiv_ZeroDenominatorPassesThrough(t *testing.T) {
	a := mat.NewDense(1, 3, []float64{1, 0, -1})
	b := mat.NewDense(1, 3, []float64{0, 0, 0})

	got, err := ElemDiv(a, b)
	if err != nil {
		t.Fatalf("ElemDiv: %v", err)
	}
	if !math.IsInf(got.At(0, 0), 1) {
		t.Errorf("1/0 = %v, want +Inf", got.At(0, 0))
	}
	if !math.IsNaN(got.At(0, 1)) {
		t.Errorf("0/0 = %v, want NaN", got.At(0, 1))
	}
	if !math.IsInf(got.At(0, 2), -1) {
		t.Errorf("-1/0 = %v, want -Inf", got.At(0, 2))
	}
}

func TestLayerExcess(t *testing.T) {
	x := mat.NewDense(1, 5, []float64{0, 5, 8, 13, 100})
	got := LayerExcess(x, 5, 5)
	matEqual(t, got, []float64{0, 0, 3, 5, 5}, 1, 5)
}

func TestCumSumRows(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		0, 0.5, 0,
	})
	got := CumSumRows(x)
	matEqual(t, got, []float64{
		1, 3, 6,
		0, 0.5, 0.5,
	}, 2, 3)
}

func TestClip(t *testing.T) {
	x := mat.NewDense(1, 4, []float64{-1, 0.5, 2, 3})
	got := Clip(x, 0, 2)
	matEqual(t, got, []float64{0, 0.5, 2, 2}, 1, 4)
}

func TestDiffRows(t *testing.T) {
	tests := []struct {
		name     string
		in       []float64
		baseline float64
		want     []float64
	}{
		{"zero baseline", []float64{0, 0.5, 2, 2}, 0, []float64{0, 0.5, 1.5, 0}},
		{"nonzero baseline", []float64{1, 1, 2, 2}, 1, []float64{0, 0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffRows(mat.NewDense(1, 4, tt.in), tt.baseline)
			matEqual(t, got, tt.want, 1, 4)
		})
	}
}

func TestDiffRows_InvertsCumSumRows(t *testing.T) {
	x := mat.NewDense(2, 4, []float64{
		0.25, 0, 1, 0.5,
		1, 1, 0, 1,
	})
	got := DiffRows(CumSumRows(x), 0)
	if !mat.EqualApprox(got, x, 1e-12) {
		t.Fatalf("diff(cumsum(x)) != x:\n%v", mat.Formatted(got))
	}
}

func TestScale(t *testing.T) {
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	got := Scale(x, 2.5)
	matEqual(t, got, []float64{2.5, 5, 7.5}, 1, 3)
}
