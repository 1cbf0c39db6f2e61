// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/profilekit/framestack/metrics"
	"github.com/profilekit/framestack/periodiccaller"
	"github.com/profilekit/framestack/profiler"
)

// DefaultInterval is the default broadcast interval.
const DefaultInterval = 5 * time.Second

// Server broadcasts profiler snapshots to connected clients. The profiler
// only runs while at least one client is connected, so an idle server adds
// no sampling overhead to the host engine.
type Server struct {
	// Profiler supplies the snapshots. Required.
	Profiler *profiler.SamplingProfiler
	// Interval is the broadcast interval. Zero selects DefaultInterval.
	Interval time.Duration

	ctx     context.Context
	mu      sync.Mutex
	clients map[string]net.Conn
}

// Serve accepts clients on ln and broadcasts snapshots until ctx is
// canceled. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.Profiler == nil {
		return errors.New("no profiler configured")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.mu.Lock()
	s.clients = make(map[string]net.Conn)
	s.mu.Unlock()

	log.Infof("Serving profiling clients on %s", ln.Addr())
	stopBroadcast := periodiccaller.Start(ctx, interval, func() {
		s.broadcast(interval)
	})
	defer stopBroadcast()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accepting client: %w", err)
			}
			s.addClient(conn, interval)
		}
	})

	err := g.Wait()
	s.shutdown()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) addClient(conn net.Conn, interval time.Duration) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[id] = conn
	total := len(s.clients)
	log.Infof("Connected from %s (total: %d)", conn.RemoteAddr(), total)
	metrics.Add(metrics.IDRemoteClients, 1)

	if !s.Profiler.IsRunning() {
		if err := s.Profiler.Start(s.ctx); err != nil {
			log.Errorf("Starting profiler: %v", err)
			return
		}
		log.Infof("Profiling every %v...", interval)
	}
}

// broadcast sends the current snapshot to every client, dropping clients
// whose connection failed. The profiler is stopped when the last client is
// gone.
func (s *Server) broadcast(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}

	framed, err := frameSnapshot(s.Profiler.Result())
	if err != nil {
		log.Errorf("Building snapshot broadcast: %v", err)
		return
	}
	metrics.Add(metrics.IDRemotePayloadBytes, int64(len(framed)))

	for id, conn := range s.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(interval))
		if _, err := conn.Write(framed); err != nil {
			conn.Close()
			delete(s.clients, id)
			log.Infof("Disconnected from %s (total: %d)",
				conn.RemoteAddr(), len(s.clients))
		}
	}

	if len(s.clients) == 0 {
		s.stopProfilerLocked()
	}
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.clients {
		conn.Close()
		delete(s.clients, id)
	}
	s.stopProfilerLocked()
}

func (s *Server) stopProfilerLocked() {
	if !s.Profiler.IsRunning() {
		return
	}
	if err := s.Profiler.Stop(); err != nil {
		log.Errorf("Stopping profiler: %v", err)
		return
	}
	log.Info("Profiler stopped")
}
