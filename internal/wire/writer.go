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

package wire

// Writer is a sequential big-endian writer into a growable buffer,
// optionally bounded by a fixed capacity. A bounded Writer rejects any
// operation that would exceed the capacity without writing partial data.
//
// Writer also supports sub-byte bit-packed writes for HPACK integer
// prefixes. Partial-byte state is tracked explicitly: the first WriteBits
// after a byte boundary lays its bits left-aligned in a fresh byte, later
// bit writes OR into that byte, and writes that straddle a boundary are
// split across two bytes.
type Writer struct {
	buf []byte
	// capacity is the maximum buffer length in bytes, or 0 for unbounded.
	capacity int
	// partialBits counts the bits already occupied in the last buffer
	// byte, 0 through 7. Zero means the writer is byte aligned.
	partialBits uint
}

// NewWriter returns an unbounded Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterCapacity returns a Writer that fails any write which would grow
// the buffer beyond capacity bytes.
func NewWriterCapacity(capacity int) *Writer {
	return &Writer{capacity: capacity}
}

// Len returns the number of whole bytes written, counting a partially
// filled trailing byte as written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns a view of the written bytes. The view is invalidated by
// further writes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Take returns the written bytes and resets the Writer for reuse. The
// returned slice is owned by the caller.
func (w *Writer) Take() []byte {
	b := w.buf
	w.buf = nil
	w.partialBits = 0
	return b
}

// TakeFirst removes and returns the first n written bytes, leaving the
// remainder in place. It is used to peel a leading frame's worth of bytes
// off an encoding that continues in CONTINUATION frames. If fewer than n
// bytes have been written, all of them are returned.
func (w *Writer) TakeFirst(n int) []byte {
	if n >= len(w.buf) {
		return w.Take()
	}
	head := make([]byte, n)
	copy(head, w.buf)
	w.buf = append(w.buf[:0], w.buf[n:]...)
	return head
}

// fits reports whether n more bytes can be written.
func (w *Writer) fits(n int) bool {
	return w.capacity == 0 || len(w.buf)+n <= w.capacity
}

// WriteUint8 appends one byte. Byte-oriented writes require the writer to
// be byte aligned.
func (w *Writer) WriteUint8(v uint8) bool {
	if !w.fits(1) {
		return false
	}
	w.buf = append(w.buf, v)
	w.partialBits = 0
	return true
}

// WriteUint16 appends a big-endian 16-bit integer.
func (w *Writer) WriteUint16(v uint16) bool {
	if !w.fits(2) {
		return false
	}
	w.buf = append(w.buf, byte(v>>8), byte(v))
	w.partialBits = 0
	return true
}

// WriteUint24 appends the low 24 bits of v, big-endian.
func (w *Writer) WriteUint24(v uint32) bool {
	if !w.fits(3) {
		return false
	}
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
	w.partialBits = 0
	return true
}

// WriteUint32 appends a big-endian 32-bit integer.
func (w *Writer) WriteUint32(v uint32) bool {
	if !w.fits(4) {
		return false
	}
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	w.partialBits = 0
	return true
}

// WriteUint31 appends v with the reserved high bit cleared, as HTTP/2
// stream identifiers are written.
func (w *Writer) WriteUint31(v uint32) bool {
	return w.WriteUint32(v & 0x7fffffff)
}

// WriteUint64 appends a big-endian 64-bit integer.
func (w *Writer) WriteUint64(v uint64) bool {
	if !w.fits(8) {
		return false
	}
	w.buf = append(w.buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	w.partialBits = 0
	return true
}

// WriteBytes appends p verbatim.
func (w *Writer) WriteBytes(p []byte) bool {
	if !w.fits(len(p)) {
		return false
	}
	w.buf = append(w.buf, p...)
	w.partialBits = 0
	return true
}

// WriteBits appends the low width bits of v after any previously written
// bits. Bits fill each byte from the most significant end. The whole
// write is rejected up front if it would exceed a bounded capacity.
func (w *Writer) WriteBits(v uint32, width uint) bool {
	if width == 0 || width > 32 {
		return false
	}
	need := int(w.partialBits+width+7)/8 - 1
	if w.partialBits == 0 {
		need++
	}
	if !w.fits(need) {
		return false
	}
	for width > 0 {
		if w.partialBits == 0 {
			w.buf = append(w.buf, 0)
		}
		free := 8 - w.partialBits
		take := width
		if take > free {
			take = free
		}
		chunk := byte((v >> (width - take)) & ((1 << take) - 1))
		w.buf[len(w.buf)-1] |= chunk << (free - take)
		w.partialBits = (w.partialBits + take) % 8
		width -= take
	}
	return true
}
