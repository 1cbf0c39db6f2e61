// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package sampler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ItimerSampler samples on SIGPROF delivered by ITIMER_PROF, so the pace
// follows CPU time consumed by the process rather than wall time. Threads
// that are blocked and burn no CPU are sampled less, which matches what a
// statistical CPU profile should show.
//
// The process-wide profiling itimer is shared state; run at most one
// ItimerSampler per process. The previous itimer is restored on stop.
type ItimerSampler struct {
	// Interval is the CPU-time sampling interval. Zero selects
	// DefaultInterval.
	Interval time.Duration
}

var _ Sampler = (*ItimerSampler)(nil)

// Start implements Sampler.
func (s *ItimerSampler) Start(ctx context.Context, src FrameSource,
	handler Handler) (func(), error) {
	interval, err := effectiveInterval(s.Interval)
	if err != nil {
		return nil, err
	}

	sigs := make(chan os.Signal, 16)
	signal.Notify(sigs, unix.SIGPROF)
	prev, err := unix.Setitimer(unix.ITIMER_PROF, itimerval(interval))
	if err != nil {
		signal.Stop(sigs)
		return nil, fmt.Errorf("arming ITIMER_PROF: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-sigs:
				sample(src, handler)
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			signal.Stop(sigs)
			if _, err := unix.Setitimer(unix.ITIMER_PROF, prev); err != nil {
				log.Errorf("Restoring previous ITIMER_PROF: %v", err)
			}
		})
	}, nil
}

func itimerval(interval time.Duration) unix.Itimerval {
	tv := unix.NsecToTimeval(interval.Nanoseconds())
	return unix.Itimerval{Interval: tv, Value: tv}
}
