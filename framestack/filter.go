// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package framestack

// ExtractFilter configures which frames Extract keeps and where the walk
// stops. All sets default to empty; the zero value and a nil pointer both
// mean "keep the whole chain".
//
// Each predicate matches by frame identity first and falls back to the
// frame's code identity, so a policy can either pin a single live frame or
// cover every activation of a callable (recursion included) with one entry.
type ExtractFilter struct {
	// TopFrames and TopCodes stop the walk after the matching frame has been
	// included. The matching frame becomes the outermost element of the
	// result.
	TopFrames FrameSet
	TopCodes  CodeSet

	// UpperFrames and UpperCodes stop the walk before the matching frame is
	// included. The matching frame and all its callers are excluded.
	UpperFrames FrameSet
	UpperCodes  CodeSet

	// IgnoredFrames and IgnoredCodes suppress individual frames without
	// stopping the walk.
	IgnoredFrames FrameSet
	IgnoredCodes  CodeSet
}

// IsUpper reports whether frame terminates the walk exclusively.
func (f *ExtractFilter) IsUpper(frame *Frame) bool {
	if f == nil {
		return false
	}
	return f.UpperFrames.Contains(frame) || f.UpperCodes.Contains(frame.Code)
}

// IsTop reports whether frame terminates the walk inclusively.
func (f *ExtractFilter) IsTop(frame *Frame) bool {
	if f == nil {
		return false
	}
	return f.TopFrames.Contains(frame) || f.TopCodes.Contains(frame.Code)
}

// IsIgnored reports whether frame is suppressed from results.
func (f *ExtractFilter) IsIgnored(frame *Frame) bool {
	if f == nil {
		return false
	}
	return f.IgnoredFrames.Contains(frame) || f.IgnoredCodes.Contains(frame.Code)
}
