// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"fmt"
	"net"

	"github.com/profilekit/framestack/stats"
)

// Client receives the snapshot stream from a profiling server.
type Client struct {
	conn net.Conn
}

// Dial connects to a profiling server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to profiling server: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection to a profiling server.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Receive blocks until the next snapshot arrives. It returns io.EOF when the
// server closed the stream.
func (c *Client) Receive() (*stats.Snapshot, error) {
	return ReadSnapshot(c.conn)
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
