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

	"github.com/go-playground/validator/v10"
)

// paramValidate validates treaty parameter structs. Shared across kernels.
var paramValidate = validator.New()

// Layer is a treaty structure that can be applied to an upstream node
// producing a loss array.
//
// Applying a layer records deferred transforms only; no array math runs
// until the model is computed. Layers are immutable after construction
// and may be applied to any number of upstreams, each application
// yielding a new node.
type Layer interface {
	// Name returns the layer's optional identifier, used to tag the
	// produced node and its tasks.
	Name() string

	// Apply wires the layer onto an upstream node and returns the node
	// carrying the layer's mapping output.
	Apply(upstream *Node) (*Node, error)
}

// BaseLayer provides the common parts of Layer (naming). Embed it in
// concrete layers and override Apply.
type BaseLayer struct {
	LayerName string
}

// Name returns the layer's identifier, or "" if unnamed.
func (l *BaseLayer) Name() string {
	return l.LayerName
}

// Apply returns an error if called directly.
// Concrete layers must override this method.
func (l *BaseLayer) Apply(_ *Node) (*Node, error) {
	return nil, fmt.Errorf("%w: BaseLayer.Apply must be overridden by a concrete layer", ErrUnimplementedTransform)
}

// Option configures a layer at construction.
type Option func(*BaseLayer)

// WithName sets the layer's name. Named layers tag their node and tasks,
// which labels results and makes logs legible.
func WithName(name string) Option {
	return func(l *BaseLayer) {
		l.LayerName = name
	}
}
