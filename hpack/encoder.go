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

package hpack

import (
	"strings"

	huffman "golang.org/x/net/http2/hpack"

	"github.com/klzgrad/h2codec/internal/wire"
)

// Encoder encodes header lists into HPACK blocks, maintaining the
// encoder-side dynamic table exactly as the peer's decoder will. An Encoder
// belongs to one outbound direction of one connection.
type Encoder struct {
	table dynamicTable

	// Pending table size updates, emitted at the start of the next block.
	// If the limit was lowered and then raised again between blocks, both
	// the minimum and the final value must be signaled.
	updatePending  bool
	pendingMin     uint32
	pendingLimit   uint32
	compressionOff bool
}

// NewEncoder returns an Encoder with the given negotiated maximum dynamic
// table size. Zero selects the protocol default of 4096.
func NewEncoder(maxTableSize uint32) *Encoder {
	if maxTableSize == 0 {
		maxTableSize = DefaultTableSize
	}
	return &Encoder{table: newDynamicTable(maxTableSize)}
}

// SetMaxTableSize schedules a dynamic table size change. The update
// representation is written at the start of the next encoded block, before
// any header representations.
func (e *Encoder) SetMaxTableSize(max uint32) {
	if !e.updatePending {
		e.updatePending = true
		e.pendingMin = max
	} else if max < e.pendingMin {
		e.pendingMin = max
	}
	e.pendingLimit = max
}

// DisableCompression switches the encoder to emit every field as a literal
// without indexing, with no Huffman coding and no dynamic table use. The
// output is maximally interoperable and leaks no cross-request state.
func (e *Encoder) DisableCompression() {
	e.compressionOff = true
}

// DynamicTableSize returns the current byte size of the dynamic table.
func (e *Encoder) DynamicTableSize() uint32 {
	return e.table.currentSize()
}

// EncodeHeaderList encodes fields into a single HPACK block and returns
// the owned encoding.
func (e *Encoder) EncodeHeaderList(fields []HeaderField) []byte {
	w := wire.NewWriter()

	if e.updatePending {
		if e.pendingMin < e.pendingLimit {
			appendVarint(w, 0x1, 3, uint64(e.pendingMin), 5)
			e.table.sizeLimit = e.pendingMin
			e.table.evictTo(e.pendingMin)
		}
		appendVarint(w, 0x1, 3, uint64(e.pendingLimit), 5)
		e.table.maxSizeLimit = e.pendingLimit
		e.table.sizeLimit = e.pendingLimit
		e.table.evictTo(e.pendingLimit)
		e.updatePending = false
	}

	for _, f := range fields {
		if f.Name == "cookie" && !e.compressionOff {
			for _, crumb := range cookieCrumbs(f.Value) {
				e.appendField(w, HeaderField{Name: f.Name, Value: crumb, Sensitive: f.Sensitive})
			}
			continue
		}
		e.appendField(w, f)
	}
	return w.Take()
}

// appendField writes the most compact legal representation of f: indexed if
// an exact match exists in either table, literal with an indexed name if
// only the name matches, literal with a literal name otherwise.
func (e *Encoder) appendField(w *wire.Writer, f HeaderField) {
	if e.compressionOff {
		// Literal without indexing, literal name, no Huffman.
		appendVarint(w, 0x0, 4, 0, 4)
		appendRawString(w, f.Name)
		appendRawString(w, f.Value)
		return
	}

	idx, exact := e.search(f)
	if exact && !f.Sensitive {
		appendVarint(w, 0x1, 1, idx, 7)
		return
	}

	if f.Sensitive {
		// Literal never indexed, 4-bit name index prefix.
		appendVarint(w, 0x1, 4, idx, 4)
	} else {
		// Literal with incremental indexing, 6-bit name index prefix.
		appendVarint(w, 0x1, 2, idx, 6)
		e.table.insert(f)
	}
	if idx == 0 {
		e.appendString(w, f.Name)
	}
	e.appendString(w, f.Value)
}

// search finds the lowest combined-address index usable for f. It returns
// the index of an exact (name, value) match with exact set, the index of a
// name-only match with exact clear, or zero if nothing matches.
func (e *Encoder) search(f HeaderField) (idx uint64, exact bool) {
	if i, ok := staticByNameValue[nameValueKey{f.Name, f.Value}]; ok {
		return i, true
	}
	// The dynamic table is scanned newest-first so repeated fields keep
	// hitting the cheapest index.
	var nameIdx uint64
	for i := uint64(1); i <= uint64(e.table.length()); i++ {
		ent, _ := e.table.at(i)
		if ent.Name != f.Name {
			continue
		}
		if ent.Value == f.Value {
			return uint64(len(staticTable)) + i, true
		}
		if nameIdx == 0 {
			nameIdx = uint64(len(staticTable)) + i
		}
	}
	if i, ok := staticByName[f.Name]; ok {
		return i, false
	}
	return nameIdx, false
}

// appendString writes a string literal, Huffman-coded when that is
// shorter.
func (e *Encoder) appendString(w *wire.Writer, s string) {
	if hl := huffman.HuffmanEncodeLength(s); hl < uint64(len(s)) {
		appendVarint(w, 0x1, 1, hl, 7)
		w.WriteBytes(huffman.AppendHuffmanString(nil, s))
		return
	}
	appendRawString(w, s)
}

func appendRawString(w *wire.Writer, s string) {
	appendVarint(w, 0x0, 1, uint64(len(s)), 7)
	w.WriteBytes([]byte(s))
}

// appendVarint writes flagBits in the top flagWidth bits of a fresh byte
// followed by v in an HPACK prefix-bit integer (RFC 7541 §5.1). flagWidth
// plus prefix always totals eight, so the writer stays byte aligned.
func appendVarint(w *wire.Writer, flagBits uint32, flagWidth uint, v uint64, prefix uint) {
	w.WriteBits(flagBits, flagWidth)
	max := uint64(1)<<prefix - 1
	if v < max {
		w.WriteBits(uint32(v), prefix)
		return
	}
	w.WriteBits(uint32(max), prefix)
	v -= max
	for v >= 0x80 {
		w.WriteUint8(byte(v&0x7f) | 0x80)
		v >>= 7
	}
	w.WriteUint8(byte(v))
}

// cookieCrumbs splits a logical cookie value at "; " boundaries so each
// crumb is independently indexable, which lets repeated cookies compress
// across requests. Decoding reverses this by concatenation.
func cookieCrumbs(value string) []string {
	parts := strings.Split(value, ";")
	crumbs := parts[:0]
	for _, p := range parts {
		crumbs = append(crumbs, strings.TrimLeft(p, " "))
	}
	return crumbs
}
