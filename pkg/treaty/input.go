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

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/cession/pkg/lazy"
	"github.com/AleutianAI/cession/pkg/matutil"
)

// Input wraps a simulated-loss matrix as an anonymous graph leaf.
//
// The matrix is shaped (trials, periods): rows are independent simulation
// trials, columns are ordered sub-periods of ground-up loss. Values are
// expected to be >= 0 but are not validated; negative losses pass through
// arithmetic unchanged.
func Input(x *mat.Dense) (*Node, error) {
	return NamedInput("", x)
}

// NamedInput wraps a loss matrix as a graph leaf tagged with a name for
// downstream result labeling.
func NamedInput(name string, x *mat.Dense) (*Node, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: input loss matrix", matutil.ErrNilMatrix)
	}
	return &Node{
		name: name,
		out:  Output{array: lazy.FromValue(name, x)},
	}, nil
}
