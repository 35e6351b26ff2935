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
	"fmt"
)

// Extractor nodes project a single field out of a mapping-typed upstream
// output, turning it back into a bare array usable by combinators and
// further layers.
//
// Because the populated fields of an output are known when the upstream
// node is built, projecting a field the kernel never populates fails
// immediately at construction (e.g. Commission over an excess-of-loss
// output, which only carries gross, recovery, and reinstatement_premium).

// Gross projects the gross loss array from a treaty kernel output.
func Gross(n *Node) (*Node, error) {
	return project(FieldGross, n)
}

// Recovery projects the ceded recovery array from a treaty kernel output.
func Recovery(n *Node) (*Node, error) {
	return project(FieldRecovery, n)
}

// Commission projects the ceding commission array from a quota-share
// output.
func Commission(n *Node) (*Node, error) {
	return project(FieldCommission, n)
}

// ReinstatementPremium projects the reinstatement premium array from an
// excess-of-loss output.
func ReinstatementPremium(n *Node) (*Node, error) {
	return project(FieldReinstatementPremium, n)
}

func project(f Field, n *Node) (*Node, error) {
	if n == nil {
		return nil, ErrNilNode
	}
	if !n.out.IsMapping() {
		return nil, fmt.Errorf("project %q: %w", f, ErrNotMapping)
	}
	t, ok := n.out.FieldTask(f)
	if !ok {
		return nil, fmt.Errorf("project %q: %w (upstream populates %v)", f, ErrFieldMissing, n.out.Fields())
	}
	// The field's deferred matrix already exists; the projection re-roots
	// it as an array-typed node without adding a thunk.
	return &Node{out: Output{array: t}}, nil
}
