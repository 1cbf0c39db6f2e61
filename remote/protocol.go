// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote implements the profiling broadcast protocol: a server runs
// a profiler and periodically pushes frozen statistics to every connected
// client.
//
// Wire format, per snapshot: a network-order uint32 payload size followed by
// the gzip-compressed JSON encoding of a stats.Snapshot.
package remote

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/profilekit/framestack/stats"
)

// sizeHeaderLen is the length of the payload size header.
const sizeHeaderLen = 4

// MaxPayloadSize caps the compressed payload size a reader accepts, guarding
// against garbage headers from a non-protocol peer.
const MaxPayloadSize = 64 << 20

// WriteSnapshot writes one framed snapshot to w.
func WriteSnapshot(w io.Writer, s *stats.Snapshot) error {
	framed, err := frameSnapshot(s)
	if err != nil {
		return err
	}
	if _, err := w.Write(framed); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reads one framed snapshot from r. It returns io.EOF unchanged
// when the stream ends cleanly between snapshots.
func ReadSnapshot(r io.Reader) (*stats.Snapshot, error) {
	var header [sizeHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	payloadSize := binary.BigEndian.Uint32(header[:])
	if payloadSize > MaxPayloadSize {
		return nil, fmt.Errorf("snapshot payload of %d bytes exceeds the %d byte limit",
			payloadSize, MaxPayloadSize)
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading snapshot payload: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	defer zr.Close()

	var snapshot stats.Snapshot
	if err := json.NewDecoder(zr).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}

// frameSnapshot encodes s into a single wire frame, header included, so a
// broadcast can write the same buffer to every client.
func frameSnapshot(s *stats.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(make([]byte, sizeHeaderLen))
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(s); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	framed := buf.Bytes()
	binary.BigEndian.PutUint32(framed[:sizeHeaderLen],
		uint32(len(framed)-sizeHeaderLen))
	return framed, nil
}
