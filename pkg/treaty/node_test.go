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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/cession/pkg/matutil"
)

// mustInput builds an input leaf from row-major data.
func mustInput(t *testing.T, data [][]float64) *Node {
	t.Helper()
	rows, cols := len(data), len(data[0])
	flat := make([]float64, 0, rows*cols)
	for _, row := range data {
		flat = append(flat, row...)
	}
	n, err := Input(mat.NewDense(rows, cols, flat))
	require.NoError(t, err)
	return n
}

// resolveArray forces an array-typed node to its concrete matrix.
func resolveArray(t *testing.T, n *Node) *mat.Dense {
	t.Helper()
	require.True(t, n.Output().IsArray())
	v, err := n.Output().Array().Resolve(context.Background(), nil)
	require.NoError(t, err)
	m, ok := v.(*mat.Dense)
	require.True(t, ok, "resolved value is %T, want *mat.Dense", v)
	return m
}

// resolveField forces one field of a mapping-typed node.
func resolveField(t *testing.T, n *Node, f Field) *mat.Dense {
	t.Helper()
	task, ok := n.Output().FieldTask(f)
	require.True(t, ok, "field %q not populated", f)
	v, err := task.Resolve(context.Background(), nil)
	require.NoError(t, err)
	m, ok := v.(*mat.Dense)
	require.True(t, ok, "resolved value is %T, want *mat.Dense", v)
	return m
}

func TestInputNilMatrix(t *testing.T) {
	_, err := Input(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, matutil.ErrNilMatrix)
}

func TestAddComputesElementwise(t *testing.T) {
	a := mustInput(t, [][]float64{{1, 2}, {3, 4}})
	b := mustInput(t, [][]float64{{10, 20}, {30, 40}})

	sum, err := Add(a, b)
	require.NoError(t, err)

	got := resolveArray(t, sum)
	want := mat.NewDense(2, 2, []float64{11, 22, 33, 44})
	assert.True(t, mat.Equal(want, got), "got %v", mat.Formatted(got))
}

func TestSubNettingIdentity(t *testing.T) {
	gross := mustInput(t, [][]float64{{8, 16, 4}})
	qs, err := NewQuotaShare(QuotaShareParams{Cession: 0.25})
	require.NoError(t, err)

	applied, err := qs.Apply(gross)
	require.NoError(t, err)
	recovered, err := Recovery(applied)
	require.NoError(t, err)
	net, err := Sub(gross, recovered)
	require.NoError(t, err)

	got := resolveArray(t, net)
	want := mat.NewDense(1, 3, []float64{6, 12, 3})
	assert.True(t, mat.Equal(want, got), "got %v", mat.Formatted(got))
}

func TestDivByZeroPropagatesAsData(t *testing.T) {
	num := mustInput(t, [][]float64{{1, 0, -1}})
	den := mustInput(t, [][]float64{{0, 0, 0}})

	quot, err := Div(num, den)
	require.NoError(t, err)

	got := resolveArray(t, quot)
	assert.True(t, math.IsInf(got.At(0, 0), 1))
	assert.True(t, math.IsNaN(got.At(0, 1)))
	assert.True(t, math.IsInf(got.At(0, 2), -1))
}

func TestCombinatorShapeMismatchAtResolution(t *testing.T) {
	a := mustInput(t, [][]float64{{1, 2}})
	b := mustInput(t, [][]float64{{1, 2, 3}})

	// Construction records the transform without touching shapes.
	sum, err := Mul(a, b)
	require.NoError(t, err)

	_, err = sum.Output().Array().Resolve(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, matutil.ErrShapeMismatch)
}

func TestCombinatorRejectsMappingOperand(t *testing.T) {
	gross := mustInput(t, [][]float64{{1, 2}})
	qs, err := NewQuotaShare(QuotaShareParams{Cession: 0.5})
	require.NoError(t, err)
	applied, err := qs.Apply(gross)
	require.NoError(t, err)

	_, err = Add(applied, gross)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArrayRequired)
	assert.Contains(t, err.Error(), "left operand")

	_, err = Add(gross, applied)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArrayRequired)
	assert.Contains(t, err.Error(), "right operand")
}

func TestCombinatorNilOperand(t *testing.T) {
	a := mustInput(t, [][]float64{{1}})
	_, err := Add(a, nil)
	assert.ErrorIs(t, err, ErrNilNode)
	_, err = Add(nil, a)
	assert.ErrorIs(t, err, ErrNilNode)
}

func TestExtractorRejectsArrayOutput(t *testing.T) {
	a := mustInput(t, [][]float64{{1}})
	_, err := Recovery(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotMapping)
}

func TestExtractorNilNode(t *testing.T) {
	_, err := Gross(nil)
	assert.ErrorIs(t, err, ErrNilNode)
}

func TestCommissionMissingOnExcessOfLoss(t *testing.T) {
	gross := mustInput(t, [][]float64{{10}})
	xol, err := NewExcessOfLoss(ExcessOfLossParams{
		Attachment: 5, Width: 5, Reinstatements: 1,
	})
	require.NoError(t, err)
	applied, err := xol.Apply(gross)
	require.NoError(t, err)

	// Excess-of-loss outputs carry no commission field; the projection
	// fails at wiring time, before any computation runs.
	_, err = Commission(applied)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldMissing)
}

func TestGrossProjectionSharesUpstreamMatrix(t *testing.T) {
	x := mat.NewDense(1, 2, []float64{3, 4})
	in, err := Input(x)
	require.NoError(t, err)

	qs, err := NewQuotaShare(QuotaShareParams{Cession: 0.5})
	require.NoError(t, err)
	applied, err := qs.Apply(in)
	require.NoError(t, err)

	grossNode, err := Gross(applied)
	require.NoError(t, err)

	// gross passes the upstream through: same backing matrix, no copy.
	assert.Same(t, x, resolveArray(t, grossNode))
}

func TestBaseLayerApplyUnimplemented(t *testing.T) {
	var l BaseLayer
	_, err := l.Apply(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnimplementedTransform)
}

func TestWithNameReturnsCopy(t *testing.T) {
	a := mustInput(t, [][]float64{{1, 2}})
	sum, err := Add(a, a)
	require.NoError(t, err)

	named := sum.WithName("doubled")
	assert.Equal(t, "", sum.Name())
	assert.Equal(t, "doubled", named.Name())
	assert.Same(t, sum.Output().Array(), named.Output().Array())
}

func TestFieldsCanonicalOrder(t *testing.T) {
	gross := mustInput(t, [][]float64{{1}})
	qs, err := NewQuotaShare(QuotaShareParams{Cession: 0.5, Commission: 0.1})
	require.NoError(t, err)
	applied, err := qs.Apply(gross)
	require.NoError(t, err)

	assert.Equal(t, []Field{FieldGross, FieldRecovery, FieldCommission},
		applied.Output().Fields())
	assert.Len(t, applied.Tasks(), 3)
}
