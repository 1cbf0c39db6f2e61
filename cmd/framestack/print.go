// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/profilekit/framestack/stats"
)

// printSnapshot renders the call tree as an indented table, deepest-sampled
// entries first. maxDepth 0 prints the whole tree.
func printSnapshot(w io.Writer, snapshot *stats.Snapshot, maxDepth int) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tOWN\tDEEP\tDEEP%")

	var walk func(entries []*stats.SnapshotEntry, depth int)
	walk = func(entries []*stats.SnapshotEntry, depth int) {
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, entry := range entries {
			percent := 0.0
			if snapshot.Samples > 0 {
				percent = float64(entry.DeepSamples) / float64(snapshot.Samples) * 100
			}
			fmt.Fprintf(tw, "%s%s (%s:%d)\t%d\t%d\t%.1f\n",
				strings.Repeat("  ", depth), entry.Name,
				entry.FileName, entry.StartLine,
				entry.OwnSamples, entry.DeepSamples, percent)
			walk(entry.Children, depth+1)
		}
	}
	walk(snapshot.Roots, 0)
	tw.Flush()

	fmt.Fprintf(w, "%d samples over %v\n\n",
		snapshot.Samples, snapshot.Duration.Round(time.Millisecond))
}
