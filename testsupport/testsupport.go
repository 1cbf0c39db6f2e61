// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package testsupport builds synthetic frame chains for tests and demos.
package testsupport

import "github.com/profilekit/framestack/framestack"

// MockCode makes a code descriptor for a built-in callable.
func MockCode(name string) *framestack.Code {
	return &framestack.Code{Name: name, FileName: "<builtin>"}
}

// MockCodeAt makes a code descriptor with an explicit source location.
func MockCodeAt(name, file string, line uint32) *framestack.Code {
	return &framestack.Code{Name: name, FileName: file, StartLine: line}
}

// MockFrame makes a frame executing code on top of back.
func MockFrame(code *framestack.Code, back *framestack.Frame) *framestack.Frame {
	return &framestack.Frame{Code: code, Back: back, Line: code.StartLine}
}

// MockStack builds a frame chain from the given codes, outermost first, and
// returns the innermost frame. An empty call returns nil.
func MockStack(codes ...*framestack.Code) *framestack.Frame {
	var frame *framestack.Frame
	for _, code := range codes {
		frame = MockFrame(code, frame)
	}
	return frame
}
