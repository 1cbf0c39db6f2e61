// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics registers the module's internal counters on the global
// OpenTelemetry meter. Without a configured meter provider the counters are
// no-ops, so instrumented code never has to check for one.
package metrics

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ID identifies one internal counter.
type ID int

const (
	// IDSamplesTaken counts frame chains handed to the profiler.
	IDSamplesTaken ID = iota
	// IDStacksRecorded counts extracted stacks that survived filtering.
	IDStacksRecorded
	// IDStackCacheHit counts stack hashes resolved from the aggregation cache.
	IDStackCacheHit
	// IDStackCacheMiss counts stack hashes that required a tree walk.
	IDStackCacheMiss
	// IDRemotePayloadBytes counts bytes of broadcast snapshot payloads.
	IDRemotePayloadBytes
	// IDRemoteClients counts client connections to the profiling server.
	IDRemoteClients

	idMax
)

type definition struct {
	name        string
	description string
	unit        string
}

var definitions = [idMax]definition{
	IDSamplesTaken: {"framestack.samples.taken",
		"Number of frame chains handed to the profiler.", "1"},
	IDStacksRecorded: {"framestack.stacks.recorded",
		"Number of extracted stacks recorded into statistics.", "1"},
	IDStackCacheHit: {"framestack.stack_cache.hit",
		"Number of stack hashes served from the aggregation cache.", "1"},
	IDStackCacheMiss: {"framestack.stack_cache.miss",
		"Number of stack hashes that required an aggregation tree walk.", "1"},
	IDRemotePayloadBytes: {"framestack.remote.payload.bytes",
		"Bytes of snapshot payloads broadcast to remote clients.", "By"},
	IDRemoteClients: {"framestack.remote.clients",
		"Number of accepted remote client connections.", "1"},
}

var counters [idMax]metric.Int64Counter

func init() {
	meter := otel.Meter("github.com/profilekit/framestack/framestack")
	for id, def := range definitions {
		counter, err := meter.Int64Counter(def.name,
			metric.WithDescription(def.description),
			metric.WithUnit(def.unit))
		if err != nil {
			log.Errorf("Creating counter %s: %v", def.name, err)
			continue
		}
		counters[id] = counter
	}
}

// Add increments the counter behind id by n.
func Add(id ID, n int64) {
	if counter := counters[id]; counter != nil {
		counter.Add(context.Background(), n)
	}
}
