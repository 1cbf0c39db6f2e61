// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/profilekit/framestack/framestack"
)

// StackHash is the 64-bit content hash of an extracted stack.
type StackHash uint64

// Hash32 returns a 32-bit version of the hash for LRU bucketing.
func (h StackHash) Hash32() uint32 {
	return uint32(h)
}

// HashStack hashes the code path of an extracted stack. Only each frame's
// code descriptor contributes, not the frame identity or current line, so two
// samples of the same code path hash equal even though the live frame objects
// differ between samples.
func HashStack(stack []*framestack.Frame) StackHash {
	var lineBuf [4]byte
	h := xxh3.New()
	for _, frame := range stack {
		code := frame.Code
		_, _ = h.WriteString(code.Name)
		_, _ = h.WriteString(code.FileName)
		binary.LittleEndian.PutUint32(lineBuf[:], code.StartLine)
		_, _ = h.Write(lineBuf[:])
	}
	return StackHash(h.Sum64())
}
