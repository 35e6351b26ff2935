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

// ExcessOfLossParams configures a non-proportional excess-of-loss treaty.
//
// The layer attaches at Attachment and covers Width of loss per
// occurrence. Deductible is the fraction of recovery retained by the
// cedant. Reinstatements is the total number of reinstatements available;
// the leading FreeReinstatements of them cost no premium, the rest accrue
// premium at RateOnLine of the layer width per reinstatement.
type ExcessOfLossParams struct {
	Attachment         float64 `validate:"gte=0"`
	Width              float64 `validate:"gt=0"`
	Deductible         float64 `validate:"gte=0,lte=1"`
	RateOnLine         float64 `validate:"gte=0"`
	Reinstatements     int     `validate:"gte=0"`
	FreeReinstatements int     `validate:"gte=0,ltecsfield=Reinstatements"`
}

// Validate checks the parameters against their configuration invariants,
// including the cross-field rule FreeReinstatements <= Reinstatements.
func (p ExcessOfLossParams) Validate() error {
	if err := paramValidate.Struct(p); err != nil {
		return fmt.Errorf("%w: excess of loss: %v", ErrInvalidParams, err)
	}
	return nil
}

// ExcessOfLoss is a non-proportional treaty layer with a reinstatement
// program.
//
// Applied to a loss matrix x it produces the mapping
//
//	gross                 = x
//	recovery              = burn(x) * width * (1 - deductible)
//	reinstatement_premium = premium-bearing reinstatement usage * rate_on_line * width
//
// where burn(x) is the per-period fraction of one layer width actually
// payable after cumulative program capacity (original limit plus
// reinstatements) is accounted for across the periods of each trial.
type ExcessOfLoss struct {
	BaseLayer
	params ExcessOfLossParams
}

// NewExcessOfLoss constructs an excess-of-loss layer, rejecting
// parameters that violate their invariants.
func NewExcessOfLoss(params ExcessOfLossParams, opts ...Option) (*ExcessOfLoss, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	l := &ExcessOfLoss{params: params}
	for _, opt := range opts {
		opt(&l.BaseLayer)
	}
	return l, nil
}

// Params returns the layer's configuration.
func (l *ExcessOfLoss) Params() ExcessOfLossParams {
	return l.params
}

// Apply wires the excess-of-loss transforms onto an upstream loss array
// and returns the node carrying the {gross, recovery,
// reinstatement_premium} mapping.
func (l *ExcessOfLoss) Apply(upstream *Node) (*Node, error) {
	x, err := arrayTask(upstream)
	if err != nil {
		return nil, fmt.Errorf("excess of loss: %w", err)
	}

	recovery, err := lazy.New(taskLabel(l.LayerName, "recovery"), []*lazy.Task{x},
		func(_ context.Context, deps []any) (any, error) {
			m, err := asMatrix(deps[0])
			if err != nil {
				return nil, err
			}
			return l.recovery(m), nil
		})
	if err != nil {
		return nil, err
	}

	premium, err := lazy.New(taskLabel(l.LayerName, "reinstatement_premium"), []*lazy.Task{x},
		func(_ context.Context, deps []any) (any, error) {
			m, err := asMatrix(deps[0])
			if err != nil {
				return nil, err
			}
			return l.reinstatementPremium(m), nil
		})
	if err != nil {
		return nil, err
	}

	return &Node{
		name: l.LayerName,
		out: Output{fields: map[Field]*lazy.Task{
			FieldGross:                x,
			FieldRecovery:             recovery,
			FieldReinstatementPremium: premium,
		}},
	}, nil
}

// burn computes the per-period incremental burn fraction: the share of
// that period's layer width that is payable once cumulative usage across
// the trial is capped at total program capacity.
//
// Total capacity is reinstatements+1 layer widths: the original limit
// counts as one unit on top of the reinstatement count. Periods after the
// cap is reached contribute zero even if their raw excess is nonzero.
func (l *ExcessOfLoss) burn(x *mat.Dense) *mat.Dense {
	p := l.params
	raw := matutil.LayerExcess(x, p.Attachment, p.Width)
	used := matutil.CumSumRows(matutil.Scale(raw, 1/p.Width))
	capped := matutil.Clip(used, 0, float64(p.Reinstatements)+1)
	return matutil.DiffRows(capped, 0)
}

// recovery is the cedant's net recoverable per period: the burn fraction
// restored to currency and reduced by the deductible haircut.
func (l *ExcessOfLoss) recovery(x *mat.Dense) *mat.Dense {
	p := l.params
	return matutil.Scale(l.burn(x), p.Width*(1-p.Deductible))
}

// reinstatementPremium prices the premium-bearing slice of reinstatement
// usage per period.
//
// Cumulative burn is clipped to [free, total] so that no premium accrues
// until usage exceeds the free tranche and none accrues past program
// exhaustion. Differencing against a baseline of free (not zero) anchors
// the first increment while usage is still inside the free tranche.
// Fractional usage of a reinstatement yields proportional premium.
func (l *ExcessOfLoss) reinstatementPremium(x *mat.Dense) *mat.Dense {
	p := l.params
	free := float64(p.FreeReinstatements)
	total := float64(p.Reinstatements)

	used := matutil.CumSumRows(l.burn(x))
	billable := matutil.DiffRows(matutil.Clip(used, free, total), free)
	return matutil.Scale(billable, p.RateOnLine*p.Width)
}
