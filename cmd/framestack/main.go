// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// framestack is a demo front-end for the profiling toolkit: it runs a small
// synthetic interpreter, profiles it and prints or serves the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/periodiccaller"
	"github.com/profilekit/framestack/profiler"
	"github.com/profilekit/framestack/remote"
	"github.com/profilekit/framestack/sampler"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Exit code on flag parse errors, following the 'flag' package.
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	args, err := parseArgs()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		fmt.Fprintf(os.Stderr, "Failure to parse arguments: %v\n", err)
		return exitParseError
	}

	if args.verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		unix.SIGINT, unix.SIGTERM)
	defer stop()

	if args.viewAddr != "" {
		return viewMode(ctx, args)
	}

	engine := newScriptEngine()
	filter, err := buildFilter(engine, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitParseError
	}

	p, err := profiler.New(engine,
		profiler.WithSampler(&sampler.TickerSampler{Interval: args.interval}),
		profiler.WithFilter(filter),
		profiler.WithCacheSize(uint32(args.cacheSize)))
	if err != nil {
		log.Errorf("Failed to create profiler: %v", err)
		return exitFailure
	}

	if args.serveAddr != "" {
		return serveMode(ctx, args, engine, p)
	}
	return profileMode(ctx, args, engine, p)
}

// profileMode runs the demo workload for the configured duration and prints
// a summary table.
func profileMode(ctx context.Context, args *arguments, engine *scriptEngine,
	p *profiler.SamplingProfiler) exitCode {
	ctx, cancel := context.WithTimeout(ctx, args.duration)
	defer cancel()

	if err := p.Start(ctx); err != nil {
		log.Errorf("Failed to start profiler: %v", err)
		return exitFailure
	}

	progressInterval := max(args.duration/4, 100*time.Millisecond)
	stopProgress := periodiccaller.StartWithJitter(ctx, progressInterval, 0.1, func() {
		log.Debugf("Demo engine completed %d script runs", engine.Iterations())
	})
	defer stopProgress()

	engine.Run(ctx, args.threads)
	if err := p.Stop(); err != nil {
		log.Errorf("Failed to stop profiler: %v", err)
		return exitFailure
	}

	printSnapshot(os.Stdout, p.Result(), args.printDepth)
	hits, misses := p.CacheStats()
	log.Debugf("Stack hash cache: %d hits, %d misses", hits, misses)
	return exitSuccess
}

// serveMode runs the demo workload and serves profiling clients.
func serveMode(ctx context.Context, args *arguments, engine *scriptEngine,
	p *profiler.SamplingProfiler) exitCode {
	ln, err := net.Listen("tcp", args.serveAddr)
	if err != nil {
		log.Errorf("Failed to listen on %s: %v", args.serveAddr, err)
		return exitFailure
	}

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(ctx, args.threads)
	}()

	server := &remote.Server{Profiler: p, Interval: args.remoteInterval}
	err = server.Serve(ctx, ln)
	<-engineDone
	if err != nil {
		log.Errorf("Profiling server failed: %v", err)
		return exitFailure
	}
	return exitSuccess
}

// viewMode connects to a profiling server and prints incoming snapshots.
func viewMode(ctx context.Context, args *arguments) exitCode {
	client, err := remote.Dial(args.viewAddr)
	if err != nil {
		log.Errorf("Failed to connect: %v", err)
		return exitFailure
	}
	defer client.Close()
	go func() {
		<-ctx.Done()
		client.Close()
	}()

	log.Infof("Connected to %s", args.viewAddr)
	for {
		snapshot, err := client.Receive()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return exitSuccess
			}
			log.Errorf("Receiving snapshot: %v", err)
			return exitFailure
		}
		printSnapshot(os.Stdout, snapshot, args.printDepth)
	}
}

// buildFilter resolves the code-name flags against the demo engine's code
// objects.
func buildFilter(engine *scriptEngine, args *arguments) (*framestack.ExtractFilter, error) {
	filter := &framestack.ExtractFilter{
		TopCodes:     framestack.NewSet[*framestack.Code](),
		UpperCodes:   framestack.NewSet[*framestack.Code](),
		IgnoredCodes: framestack.NewSet[*framestack.Code](),
	}
	for flagName, binding := range map[string]struct {
		names string
		set   framestack.CodeSet
	}{
		"top-codes":    {args.topCodes, filter.TopCodes},
		"upper-codes":  {args.upperCodes, filter.UpperCodes},
		"ignore-codes": {args.ignoreCodes, filter.IgnoredCodes},
	} {
		for _, name := range strings.Split(binding.names, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			code, ok := engine.LookupCode(name)
			if !ok {
				return nil, fmt.Errorf("-%s: unknown demo code %q", flagName, name)
			}
			binding.set.Add(code)
		}
	}
	return filter, nil
}
