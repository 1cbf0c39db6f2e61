// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package periodiccaller allows periodic calls of functions.
package periodiccaller

import (
	"context"
	"math/rand"
	"time"
)

// Start starts a timer that calls callback every interval until ctx is
// canceled. The returned function stops the timer early.
func Start(ctx context.Context, interval time.Duration, callback func()) func() {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				callback()
			case <-ctx.Done():
				return
			}
		}
	}()

	return ticker.Stop
}

// StartWithJitter starts a timer that calls callback every baseDuration with
// +/- jitter (jitter in [0..1]) applied anew at every iteration, until ctx is
// canceled.
func StartWithJitter(ctx context.Context, baseDuration time.Duration, jitter float64,
	callback func()) func() {
	ticker := time.NewTicker(addJitter(baseDuration, jitter))
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				callback()
			case <-ctx.Done():
				return
			}
			ticker.Reset(addJitter(baseDuration, jitter))
		}
	}()

	return ticker.Stop
}

// addJitter stretches baseDuration by +/- jitter. Out-of-range jitter values
// leave the duration unchanged.
func addJitter(baseDuration time.Duration, jitter float64) time.Duration {
	if jitter < 0.0 || jitter > 1.0 {
		return baseDuration
	}
	return time.Duration((1 + jitter - 2*jitter*rand.Float64()) * float64(baseDuration))
}
