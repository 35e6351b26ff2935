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

import "errors"

// Sentinel errors for graph construction and treaty configuration.
var (
	// ErrNilNode is returned when a nil node is passed to a combinator,
	// extractor, or layer.
	ErrNilNode = errors.New("node must not be nil")

	// ErrArrayRequired is returned when an operation that consumes a bare
	// loss array receives a mapping-typed upstream output. Project the
	// wanted field first (Gross, Recovery, Commission,
	// ReinstatementPremium).
	ErrArrayRequired = errors.New("operation requires an array-typed upstream output")

	// ErrNotMapping is returned when an extractor is applied to an
	// array-typed upstream output.
	ErrNotMapping = errors.New("extractor requires a mapping-typed upstream output")

	// ErrFieldMissing is returned when an extractor projects a field the
	// upstream kernel never populates (e.g. commission from an
	// excess-of-loss output).
	ErrFieldMissing = errors.New("field not present in upstream output")

	// ErrInvalidParams is returned when treaty parameters violate their
	// configuration invariants.
	ErrInvalidParams = errors.New("invalid treaty parameters")

	// ErrUnimplementedTransform is returned when BaseLayer.Apply is
	// invoked directly instead of through a concrete layer.
	ErrUnimplementedTransform = errors.New("transform not implemented")
)
