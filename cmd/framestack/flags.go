// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/profilekit/framestack/remote"
	"github.com/profilekit/framestack/sampler"
	"github.com/profilekit/framestack/stats"
)

const (
	defaultArgDuration = 5 * time.Second
	defaultArgThreads  = 2
	defaultArgDepth    = 0
)

// Help strings for command line arguments
var (
	durationHelp = "How long to profile the demo workload before printing the summary."
	intervalHelp = "Sampling interval."
	remoteIntervalHelp = "Interval between snapshot broadcasts to connected clients " +
		"(serve mode)."
	threadsHelp   = "Number of demo engine threads to run."
	serveHelp     = "Listen address (e.g. localhost:8912) to serve profiling clients on."
	viewHelp      = "Address of a profiling server to connect to and print snapshots from."
	cacheSizeHelp = "Capacity of the stack hash cache."
	topCodeHelp = "Comma-separated demo code names that stop extraction inclusively " +
		"(the matching frame is kept, its callers are cut)."
	upperCodeHelp = "Comma-separated demo code names that stop extraction exclusively " +
		"(the matching frame and its callers are cut)."
	ignoreCodeHelp = "Comma-separated demo code names whose frames are dropped from " +
		"extracted stacks without stopping the walk."
	depthHelp   = "Maximum call-tree depth printed in the summary, 0 for unlimited."
	verboseHelp = "Enable verbose logging."
)

type arguments struct {
	duration       time.Duration
	interval       time.Duration
	remoteInterval time.Duration
	threads        int
	serveAddr      string
	viewAddr       string
	cacheSize      uint
	topCodes       string
	upperCodes     string
	ignoreCodes    string
	printDepth     int
	verbose        bool
}

func parseArgs() (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("framestack", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.UintVar(&args.cacheSize, "cache-size", stats.DefaultCacheSize, cacheSizeHelp)
	fs.IntVar(&args.printDepth, "depth", defaultArgDepth, depthHelp)
	fs.DurationVar(&args.duration, "duration", defaultArgDuration, durationHelp)
	fs.StringVar(&args.ignoreCodes, "ignore-codes", "", ignoreCodeHelp)
	fs.DurationVar(&args.interval, "interval", sampler.DefaultInterval, intervalHelp)
	fs.DurationVar(&args.remoteInterval, "remote-interval", remote.DefaultInterval,
		remoteIntervalHelp)
	fs.StringVar(&args.serveAddr, "serve", "", serveHelp)
	fs.IntVar(&args.threads, "threads", defaultArgThreads, threadsHelp)
	fs.StringVar(&args.topCodes, "top-codes", "", topCodeHelp)
	fs.StringVar(&args.upperCodes, "upper-codes", "", upperCodeHelp)
	fs.BoolVar(&args.verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.verbose, "verbose", false, verboseHelp)
	fs.StringVar(&args.viewAddr, "view", "", viewHelp)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage of framestack:\n")
		fs.PrintDefaults()
	}

	err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FRAMESTACK"))
	if err != nil {
		return nil, err
	}

	if args.serveAddr != "" && args.viewAddr != "" {
		return nil, fmt.Errorf("-serve and -view are mutually exclusive")
	}
	if args.threads < 1 {
		return nil, fmt.Errorf("invalid thread count %d", args.threads)
	}
	return &args, nil
}
