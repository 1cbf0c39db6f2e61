// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"cmp"
	"slices"
	"time"
)

// Snapshot is a frozen, serializable copy of an aggregation tree. It carries
// resolved code locations instead of live handles, so it stays valid after
// the host engine has discarded the frames and codes it was built from.
type Snapshot struct {
	// TakenAt is the time the snapshot was taken.
	TakenAt time.Time `json:"taken_at"`
	// Duration is the length of the measurement window.
	Duration time.Duration `json:"duration"`
	// Samples is the total number of recorded stacks.
	Samples uint64 `json:"samples"`
	// Roots are the outermost entries, sorted by deep samples descending.
	Roots []*SnapshotEntry `json:"roots,omitempty"`
}

// SnapshotEntry is one frozen node of the call tree.
type SnapshotEntry struct {
	Name        string           `json:"name"`
	FileName    string           `json:"file_name,omitempty"`
	StartLine   uint32           `json:"start_line,omitempty"`
	OwnSamples  uint64           `json:"own_samples"`
	DeepSamples uint64           `json:"deep_samples"`
	Children    []*SnapshotEntry `json:"children,omitempty"`
}

// Snapshot freezes the current state of the tree. The tree remains usable
// and keeps accumulating afterwards.
func (t *Tree) Snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	return &Snapshot{
		TakenAt:  now,
		Duration: now.Sub(t.started),
		Samples:  t.samples,
		Roots:    freezeChildren(&t.root),
	}
}

func freezeChildren(e *Entry) []*SnapshotEntry {
	if len(e.children) == 0 {
		return nil
	}
	frozen := make([]*SnapshotEntry, 0, len(e.children))
	for _, child := range e.children {
		frozen = append(frozen, freeze(child))
	}
	slices.SortFunc(frozen, func(a, b *SnapshotEntry) int {
		if a.DeepSamples != b.DeepSamples {
			return cmp.Compare(b.DeepSamples, a.DeepSamples)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return frozen
}

func freeze(e *Entry) *SnapshotEntry {
	return &SnapshotEntry{
		Name:        e.Code.Name,
		FileName:    e.Code.FileName,
		StartLine:   e.Code.StartLine,
		OwnSamples:  e.OwnSamples,
		DeepSamples: e.DeepSamples(),
		Children:    freezeChildren(e),
	}
}
