// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package stats aggregates extracted stacks into a call tree keyed by code
// object and produces frozen, serializable snapshots of it.
package stats

import (
	"sync"
	"time"

	"github.com/profilekit/framestack/framestack"
)

// Entry is one node of the aggregation tree. All samples accounted below an
// entry share the code path from the root down to it.
type Entry struct {
	// Code describes the callable of this node. It is nil on the root.
	Code *framestack.Code
	// OwnSamples counts the samples where this node's code was innermost.
	OwnSamples uint64

	children map[*framestack.Code]*Entry
}

// EnsureChild returns the child entry for code, creating it on first use.
func (e *Entry) EnsureChild(code *framestack.Code) *Entry {
	if child, ok := e.children[code]; ok {
		return child
	}
	if e.children == nil {
		e.children = make(map[*framestack.Code]*Entry)
	}
	child := &Entry{Code: code}
	e.children[code] = child
	return child
}

// DeepSamples returns the entry's own samples plus those of all descendants.
func (e *Entry) DeepSamples() uint64 {
	deep := e.OwnSamples
	for _, child := range e.children {
		deep += child.DeepSamples()
	}
	return deep
}

// Tree is the mutex-guarded root of the aggregation tree.
type Tree struct {
	mu      sync.Mutex
	root    Entry
	samples uint64
	started time.Time
}

// NewTree creates an empty aggregation tree.
func NewTree() *Tree {
	return &Tree{started: time.Now()}
}

// Record adds one extracted stack, ordered outermost first. The innermost
// frame receives the own-sample increment; its callers contribute only to
// deep counts. An empty stack is a no-op.
func (t *Tree) Record(stack []*framestack.Frame) {
	if len(stack) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordLocked(stack)
}

// Samples returns the number of stacks recorded since the last reset.
func (t *Tree) Samples() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// Reset drops all recorded samples and restarts the measurement window.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tree) recordLocked(stack []*framestack.Frame) *Entry {
	entry := &t.root
	for _, frame := range stack {
		entry = entry.EnsureChild(frame.Code)
	}
	entry.OwnSamples++
	t.samples++
	return entry
}

func (t *Tree) resetLocked() {
	t.root = Entry{}
	t.samples = 0
	t.started = time.Now()
}
