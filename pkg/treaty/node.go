// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package treaty models reinsurance contract structures as a composable
// graph of array-transforming nodes.
//
// Client code wraps simulated-loss matrices with Input, wires them through
// arithmetic combinators and treaty layers (QuotaShare, ExcessOfLoss), and
// hands the resulting nodes to the model package for deferred evaluation.
// Graph construction never executes any array math; every node only records
// lazy tasks over its upstream outputs.
//
// A node's output is either a single deferred loss matrix or a mapping from
// a closed set of field names to deferred matrices, depending on whether it
// was produced by an arithmetic operation or a treaty kernel.
package treaty

import (
	"github.com/AleutianAI/cession/pkg/lazy"
)

// Field names a component of a treaty kernel's mapping output.
type Field string

// The closed vocabulary of mapping fields. QuotaShare populates gross,
// recovery, and commission; ExcessOfLoss populates gross, recovery, and
// reinstatement_premium. No kernel populates all four.
const (
	FieldGross                Field = "gross"
	FieldRecovery             Field = "recovery"
	FieldCommission           Field = "commission"
	FieldReinstatementPremium Field = "reinstatement_premium"
)

// fieldOrder fixes a canonical iteration order over mapping outputs, so
// task collection and result assembly are deterministic.
var fieldOrder = []Field{
	FieldGross,
	FieldRecovery,
	FieldCommission,
	FieldReinstatementPremium,
}

// Output is the tagged variant a node produces: exactly one of a bare
// array task or a mapping of field tasks is set.
type Output struct {
	array  *lazy.Task
	fields map[Field]*lazy.Task
}

// IsArray reports whether the output is a single deferred matrix.
func (o Output) IsArray() bool {
	return o.array != nil
}

// IsMapping reports whether the output is a mapping of named deferred
// matrices.
func (o Output) IsMapping() bool {
	return o.fields != nil
}

// Array returns the deferred matrix of an array-typed output, or nil for
// a mapping-typed one.
func (o Output) Array() *lazy.Task {
	return o.array
}

// FieldTask returns the deferred matrix stored under f, if populated.
func (o Output) FieldTask(f Field) (*lazy.Task, bool) {
	t, ok := o.fields[f]
	return t, ok
}

// Fields returns the populated field names in canonical order.
func (o Output) Fields() []Field {
	var populated []Field
	for _, f := range fieldOrder {
		if _, ok := o.fields[f]; ok {
			populated = append(populated, f)
		}
	}
	return populated
}

// Node is a vertex of the contract graph.
//
// A node's output is set exactly once, at construction, and never mutated
// afterward. Re-applying a layer or combinator always yields a new node.
// The optional name tags the produced value for result identification;
// names used for output indexing must be unique within a model.
type Node struct {
	name string
	out  Output
}

// Name returns the node's identifier, or "" for anonymous nodes.
func (n *Node) Name() string {
	return n.name
}

// Output returns the node's produced value.
func (n *Node) Output() Output {
	return n.out
}

// WithName returns a copy of the node carrying the given name. The
// underlying deferred output is shared; the original node is unchanged.
func (n *Node) WithName(name string) *Node {
	return &Node{name: name, out: n.out}
}

// Tasks returns the root tasks a resolver must force to materialize this
// node's output, in deterministic order.
func (n *Node) Tasks() []*lazy.Task {
	if n.out.IsArray() {
		return []*lazy.Task{n.out.array}
	}
	var tasks []*lazy.Task
	for _, f := range n.out.Fields() {
		tasks = append(tasks, n.out.fields[f])
	}
	return tasks
}

// arrayTask returns the array task of an array-typed node, rejecting nil
// nodes and mapping-typed outputs.
func arrayTask(n *Node) (*lazy.Task, error) {
	if n == nil {
		return nil, ErrNilNode
	}
	if !n.out.IsArray() {
		return nil, ErrArrayRequired
	}
	return n.out.array, nil
}

// taskLabel derives a stable task key from a node name, or "" to request
// a generated key.
func taskLabel(name, suffix string) string {
	if name == "" {
		return ""
	}
	return name + "." + suffix
}
