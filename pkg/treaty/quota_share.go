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

	"github.com/AleutianAI/cession/pkg/lazy"
	"github.com/AleutianAI/cession/pkg/matutil"
)

// QuotaShareParams configures a proportional quota-share treaty.
//
// Cession is the fraction of loss ceded to the reinsurer; Commission is
// the ceding commission rate. Both must lie in [0, 1].
type QuotaShareParams struct {
	Cession    float64 `validate:"gte=0,lte=1"`
	Commission float64 `validate:"gte=0,lte=1"`
}

// Validate checks the parameters against their configuration invariants.
func (p QuotaShareParams) Validate() error {
	if err := paramValidate.Struct(p); err != nil {
		return fmt.Errorf("%w: quota share: %v", ErrInvalidParams, err)
	}
	return nil
}

// QuotaShare is a proportional treaty layer.
//
// Applied to a loss matrix x it produces the mapping
//
//	gross      = x
//	recovery   = x * cession
//	commission = x * commission
//
// All transforms are elementwise with no cross-period dependency.
type QuotaShare struct {
	BaseLayer
	params QuotaShareParams
}

// NewQuotaShare constructs a quota-share layer, rejecting parameters that
// violate their invariants.
func NewQuotaShare(params QuotaShareParams, opts ...Option) (*QuotaShare, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	l := &QuotaShare{params: params}
	for _, opt := range opts {
		opt(&l.BaseLayer)
	}
	return l, nil
}

// Params returns the layer's configuration.
func (l *QuotaShare) Params() QuotaShareParams {
	return l.params
}

// Apply wires the quota-share transforms onto an upstream loss array and
// returns the node carrying the {gross, recovery, commission} mapping.
func (l *QuotaShare) Apply(upstream *Node) (*Node, error) {
	x, err := arrayTask(upstream)
	if err != nil {
		return nil, fmt.Errorf("quota share: %w", err)
	}

	recovery, err := scaleTask(taskLabel(l.LayerName, "recovery"), x, l.params.Cession)
	if err != nil {
		return nil, err
	}
	commission, err := scaleTask(taskLabel(l.LayerName, "commission"), x, l.params.Commission)
	if err != nil {
		return nil, err
	}

	return &Node{
		name: l.LayerName,
		out: Output{fields: map[Field]*lazy.Task{
			FieldGross:      x, // gross passes the upstream through untouched
			FieldRecovery:   recovery,
			FieldCommission: commission,
		}},
	}, nil
}

// scaleTask defers an elementwise scalar multiply of an upstream matrix.
func scaleTask(label string, x *lazy.Task, k float64) (*lazy.Task, error) {
	return lazy.New(label, []*lazy.Task{x}, func(_ context.Context, deps []any) (any, error) {
		m, err := asMatrix(deps[0])
		if err != nil {
			return nil, err
		}
		return matutil.Scale(m, k), nil
	})
}
