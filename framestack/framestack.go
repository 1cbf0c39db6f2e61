// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package framestack provides the frame-chain model and the stack extraction
// primitive of the profiler.
//
// A live stack is a singly-linked chain of Frames. Each Frame references its
// caller through Back and a shared, immutable Code descriptor. The host
// execution engine owns both; this package only reads them.
package framestack

// Void allows using maps as sets without memory allocation for the values.
type Void struct{}

// Set is a convenience alias for a map with a Void value.
type Set[T comparable] map[T]Void

// NewSet creates a Set holding the given items.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = Void{}
	}
	return s
}

// Add inserts item into the set.
func (s Set[T]) Add(item T) {
	s[item] = Void{}
}

// Contains reports whether item is in the set. It is safe on a nil set.
func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

// Code is the immutable descriptor of a callable unit of the host engine.
// Many frames may reference the same Code (recursion, repeated calls).
// Identity is pointer identity; Code values are never compared by content.
type Code struct {
	// Name is the name of the callable.
	Name string
	// FileName is the source file defining the callable.
	FileName string
	// StartLine is the first source line of the callable's body.
	StartLine uint32
}

// Frame is one activation record of the host engine. Identity is pointer
// identity. The engine creates and destroys frames; extraction only reads
// them. Code must be non-nil on every frame handed to this package.
type Frame struct {
	// Code describes the callable this frame executes.
	Code *Code
	// Back is the non-owning link to the caller frame. It is nil on the
	// outermost frame.
	Back *Frame
	// Line is the source line the frame is currently executing.
	Line uint32
}

// FrameSet is a set of frames, matched by frame identity.
type FrameSet = Set[*Frame]

// CodeSet is a set of code objects, matched by code identity.
type CodeSet = Set[*Code]
