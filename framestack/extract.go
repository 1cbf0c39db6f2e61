// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package framestack

import "slices"

// Extract walks the frame chain starting at the innermost frame and returns
// the frames that pass the filter, ordered outermost first.
//
// The walk visits each frame exactly once, applying the filter's checks in a
// fixed order: an upper match stops before the frame is included, an ignore
// match suppresses the frame but continues to its caller, and a top match
// stops after the frame has been included. Upper therefore wins over top when
// a frame matches both.
//
// A nil start yields a nil result. Extraction is read-only; the caller must
// keep the chain stable for the duration of the call.
func Extract(start *Frame, filter *ExtractFilter) []*Frame {
	var stack []*Frame
	for frame := start; frame != nil; frame = frame.Back {
		if filter.IsUpper(frame) {
			break
		}
		if !filter.IsIgnored(frame) {
			stack = append(stack, frame)
		}
		if filter.IsTop(frame) {
			break
		}
	}
	slices.Reverse(stack)
	return stack
}

// ExtractAll returns the complete frame chain, outermost first.
func ExtractAll(start *Frame) []*Frame {
	return Extract(start, nil)
}
