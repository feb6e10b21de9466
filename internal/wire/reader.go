/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package wire provides bounds-checked cursor primitives for reading and
// writing the big-endian integers, length-prefixed strings and bit-packed
// prefixes that make up HTTP/2 frames and HPACK header blocks.
package wire

import "encoding/binary"

// Reader is a sequential, bounds-checked cursor over an immutable byte
// slice. Every read is checked against the remaining bytes before any
// access. A failed read poisons the cursor: the remaining capacity is
// forced to zero so that every subsequent read fails immediately without
// re-checking the original cause. Reader never copies; substring reads
// return views into the underlying slice.
type Reader struct {
	data   []byte
	pos    int
	failed bool
}

// NewReader returns a Reader positioned at the start of data. The Reader
// does not take ownership of data; the caller must not mutate it while
// the Reader is in use.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes, or zero if the cursor has
// been poisoned by a failed read.
func (r *Reader) Remaining() int {
	if r.failed {
		return 0
	}
	return len(r.data) - r.pos
}

// IsExhausted reports whether no further bytes can be read, either because
// the cursor reached the end of the data or because a read failed.
func (r *Reader) IsExhausted() bool {
	return r.Remaining() == 0
}

// BytesConsumed returns the number of bytes successfully consumed so far.
func (r *Reader) BytesConsumed() int {
	return r.pos
}

// Rewind resets the cursor to the start of the underlying slice and clears
// the poisoned state, for re-parsing the same bytes.
func (r *Reader) Rewind() {
	r.pos = 0
	r.failed = false
}

func (r *Reader) fail() {
	r.failed = true
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, bool) {
	if r.Remaining() < 1 {
		r.fail()
		return 0, false
	}
	v := r.data[r.pos]
	r.pos++
	return v, true
}

// ReadUint16 reads a big-endian 16-bit integer.
func (r *Reader) ReadUint16() (uint16, bool) {
	if r.Remaining() < 2 {
		r.fail()
		return 0, false
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, true
}

// ReadUint24 reads a big-endian 24-bit integer into the low bits of a
// uint32.
func (r *Reader) ReadUint24() (uint32, bool) {
	if r.Remaining() < 3 {
		r.fail()
		return 0, false
	}
	d := r.data[r.pos:]
	v := uint32(d[0])<<16 | uint32(d[1])<<8 | uint32(d[2])
	r.pos += 3
	return v, true
}

// ReadUint32 reads a big-endian 32-bit integer.
func (r *Reader) ReadUint32() (uint32, bool) {
	if r.Remaining() < 4 {
		r.fail()
		return 0, false
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, true
}

// ReadUint64 reads a big-endian 64-bit integer.
func (r *Reader) ReadUint64() (uint64, bool) {
	if r.Remaining() < 8 {
		r.fail()
		return 0, false
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, true
}

// ReadUint31 reads a big-endian 32-bit integer and clears the reserved
// high bit, as HTTP/2 stream identifiers are read.
func (r *Reader) ReadUint31() (uint32, bool) {
	v, ok := r.ReadUint32()
	return v & 0x7fffffff, ok
}

// ReadBytes returns a view of the next n bytes without copying.
func (r *Reader) ReadBytes(n int) ([]byte, bool) {
	if n < 0 || r.Remaining() < n {
		r.fail()
		return nil, false
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, true
}

// ReadLengthPrefixed16 reads a 16-bit length prefix followed by that many
// bytes, returned as a zero-copy view. It fails if the declared length
// exceeds the remaining bytes.
func (r *Reader) ReadLengthPrefixed16() ([]byte, bool) {
	n, ok := r.ReadUint16()
	if !ok {
		return nil, false
	}
	return r.ReadBytes(int(n))
}

// ReadLengthPrefixed32 reads a 32-bit length prefix followed by that many
// bytes, returned as a zero-copy view.
func (r *Reader) ReadLengthPrefixed32() ([]byte, bool) {
	n, ok := r.ReadUint32()
	if !ok {
		return nil, false
	}
	return r.ReadBytes(int(n))
}

// Skip advances the cursor past n bytes without returning them.
func (r *Reader) Skip(n int) bool {
	_, ok := r.ReadBytes(n)
	return ok
}
