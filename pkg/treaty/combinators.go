// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package treaty

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/cession/pkg/lazy"
	"github.com/AleutianAI/cession/pkg/matutil"
)

// Arithmetic combinators build a new anonymous node whose output applies
// the elementwise operation to the two upstream loss matrices. Operands
// must produce bare arrays; mapping-typed outputs (treaty kernels) have to
// be projected through an extractor first.
//
// Shape mismatches between the operands surface at resolution time, when
// the concrete matrices exist. Division by zero follows IEEE-754: Inf/NaN
// propagate as data, never as errors.

// Add returns a node computing a + b elementwise.
func Add(a, b *Node) (*Node, error) {
	return combine("add", a, b, matutil.ElemAdd)
}

// Sub returns a node computing a - b elementwise.
func Sub(a, b *Node) (*Node, error) {
	return combine("sub", a, b, matutil.ElemSub)
}

// Mul returns a node computing a * b elementwise.
func Mul(a, b *Node) (*Node, error) {
	return combine("mul", a, b, matutil.ElemMul)
}

// Div returns a node computing a / b elementwise.
func Div(a, b *Node) (*Node, error) {
	return combine("div", a, b, matutil.ElemDiv)
}

func combine(op string, a, b *Node, fn func(a, b *mat.Dense) (*mat.Dense, error)) (*Node, error) {
	ta, err := arrayTask(a)
	if err != nil {
		return nil, fmt.Errorf("%s: left operand: %w", op, err)
	}
	tb, err := arrayTask(b)
	if err != nil {
		return nil, fmt.Errorf("%s: right operand: %w", op, err)
	}

	task, err := lazy.New("", []*lazy.Task{ta, tb}, func(_ context.Context, deps []any) (any, error) {
		ma, err := asMatrix(deps[0])
		if err != nil {
			return nil, fmt.Errorf("%s: left operand: %w", op, err)
		}
		mb, err := asMatrix(deps[1])
		if err != nil {
			return nil, fmt.Errorf("%s: right operand: %w", op, err)
		}
		out, err := fn(ma, mb)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &Node{out: Output{array: task}}, nil
}

// asMatrix casts a resolved dependency value to a loss matrix.
func asMatrix(v any) (*mat.Dense, error) {
	m, ok := v.(*mat.Dense)
	if !ok {
		return nil, fmt.Errorf("unexpected upstream value type %T", v)
	}
	return m, nil
}
