// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/sampler"
)

// scriptEngine is a synthetic interpreter used as the profiling target. It
// "interprets" a fixed recursive script on a configurable number of engine
// threads and keeps one live frame chain per thread.
//
// Frames are immutable once published; a call publishes a new innermost
// frame and a return republishes its caller. The per-thread head swap under
// the mutex is what makes concurrent extraction safe.
type scriptEngine struct {
	schedulerCode *framestack.Code
	mainCode      *framestack.Code
	parseCode     *framestack.Code
	evaluateCode  *framestack.Code
	fibCode       *framestack.Code

	iterations atomic.Uint64

	mu      sync.Mutex
	current map[sampler.ThreadID]*framestack.Frame
}

func newScriptEngine() *scriptEngine {
	const file = "<demo>"
	return &scriptEngine{
		schedulerCode: &framestack.Code{Name: "scheduler", FileName: file, StartLine: 1},
		mainCode:      &framestack.Code{Name: "main", FileName: file, StartLine: 10},
		parseCode:     &framestack.Code{Name: "parse", FileName: file, StartLine: 20},
		evaluateCode:  &framestack.Code{Name: "evaluate", FileName: file, StartLine: 30},
		fibCode:       &framestack.Code{Name: "fib", FileName: file, StartLine: 40},
		current:       make(map[sampler.ThreadID]*framestack.Frame),
	}
}

// CurrentFrames implements sampler.FrameSource.
func (e *scriptEngine) CurrentFrames() map[sampler.ThreadID]*framestack.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.current)
}

// LookupCode resolves a demo code object by name for the filter flags.
func (e *scriptEngine) LookupCode(name string) (*framestack.Code, bool) {
	for _, code := range e.codes() {
		if code.Name == name {
			return code, true
		}
	}
	return nil, false
}

func (e *scriptEngine) codes() []*framestack.Code {
	return []*framestack.Code{
		e.schedulerCode, e.mainCode, e.parseCode, e.evaluateCode, e.fibCode,
	}
}

// Iterations returns the number of completed script runs across all threads.
func (e *scriptEngine) Iterations() uint64 {
	return e.iterations.Load()
}

// Run interprets the demo script on the given number of engine threads until
// ctx is canceled.
func (e *scriptEngine) Run(ctx context.Context, threads int) {
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(tid sampler.ThreadID) {
			defer wg.Done()
			e.runThread(ctx, tid)
		}(sampler.ThreadID(i + 1))
	}
	wg.Wait()
}

func (e *scriptEngine) runThread(ctx context.Context, tid sampler.ThreadID) {
	defer e.clear(tid)

	scheduler := e.push(tid, nil, e.schedulerCode)
	for ctx.Err() == nil {
		e.call(tid, scheduler, e.mainCode, func(main *framestack.Frame) {
			e.call(tid, main, e.parseCode, func(*framestack.Frame) {
				spin(2000)
			})
			e.call(tid, main, e.evaluateCode, func(eval *framestack.Frame) {
				e.fib(tid, eval, 10)
			})
		})
		e.iterations.Add(1)
	}
}

// call pushes a frame for code, runs body and pops the frame again.
func (e *scriptEngine) call(tid sampler.ThreadID, back *framestack.Frame,
	code *framestack.Code, body func(*framestack.Frame)) {
	frame := e.push(tid, back, code)
	body(frame)
	e.publish(tid, back)
}

func (e *scriptEngine) fib(tid sampler.ThreadID, back *framestack.Frame, n int) uint64 {
	var result uint64
	e.call(tid, back, e.fibCode, func(frame *framestack.Frame) {
		if n < 2 {
			spin(50)
			result = uint64(n)
			return
		}
		result = e.fib(tid, frame, n-1) + e.fib(tid, frame, n-2)
	})
	return result
}

func (e *scriptEngine) push(tid sampler.ThreadID, back *framestack.Frame,
	code *framestack.Code) *framestack.Frame {
	frame := &framestack.Frame{Code: code, Back: back, Line: code.StartLine}
	e.publish(tid, frame)
	return frame
}

func (e *scriptEngine) publish(tid sampler.ThreadID, frame *framestack.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current[tid] = frame
}

func (e *scriptEngine) clear(tid sampler.ThreadID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.current, tid)
}

//go:noinline
func spin(n int) {
	acc := uint64(7)
	for i := 0; i < n; i++ {
		acc = acc*31 + uint64(i)
	}
	sink.Store(acc)
}

// sink keeps the busy work from being optimized away.
var sink atomic.Uint64
