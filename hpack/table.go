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

// Package hpack implements the HPACK header compression format of RFC 7541:
// static and dynamic header tables, a block-oriented decoder and a
// compressing encoder. Huffman string coding is delegated to
// golang.org/x/net/http2/hpack.
package hpack

// HeaderField is a single name-value pair of a header list. Name and value
// are opaque octet sequences; storing them as strings gives each table entry
// its own copy, so entries stay valid after the input buffer that produced
// them is gone.
type HeaderField struct {
	Name, Value string
	// Sensitive marks a field that must never be indexed (RFC 7541 §6.2.3),
	// e.g. short authorization credentials.
	Sensitive bool
}

// entryOverhead is the fixed per-entry size overhead mandated by
// RFC 7541 §4.1.
const entryOverhead = 32

// Size returns the table size contribution of f.
func (f HeaderField) Size() uint32 {
	return uint32(len(f.Name) + len(f.Value) + entryOverhead)
}

// DefaultTableSize is the initial dynamic table size of both endpoints
// before any SETTINGS_HEADER_TABLE_SIZE exchange.
const DefaultTableSize = 4096

// dynamicTable is the insertion-ordered, size-bounded cache of recently
// used header fields. Entries are appended at the end; index 1 addresses
// the newest entry. The invariant size <= sizeLimit holds after every
// insertion and limit change.
type dynamicTable struct {
	ents []HeaderField
	size uint32
	// sizeLimit is the current maximum table size, mutable via dynamic
	// table size updates.
	sizeLimit uint32
	// maxSizeLimit is the negotiated ceiling for sizeLimit
	// (SETTINGS_HEADER_TABLE_SIZE). A size update above it is an error.
	maxSizeLimit uint32
}

func newDynamicTable(maxSize uint32) dynamicTable {
	return dynamicTable{sizeLimit: maxSize, maxSizeLimit: maxSize}
}

func (t *dynamicTable) length() int {
	return len(t.ents)
}

func (t *dynamicTable) currentSize() uint32 {
	return t.size
}

// evictTo drops entries from the oldest end until the table size is at
// most limit.
func (t *dynamicTable) evictTo(limit uint32) {
	var n int
	for n < len(t.ents) && t.size > limit {
		t.size -= t.ents[n].Size()
		n++
	}
	t.ents = t.ents[n:]
}

// setSizeLimit applies a dynamic table size update, evicting immediately.
// It reports false if limit exceeds the negotiated maximum.
func (t *dynamicTable) setSizeLimit(limit uint32) bool {
	if limit > t.maxSizeLimit {
		return false
	}
	t.sizeLimit = limit
	t.evictTo(limit)
	return true
}

// insert adds f at the newest end, evicting oldest entries first to make
// room. If f cannot fit even in an empty table, the table is left empty
// and f is not added; per RFC 7541 §4.4 that is a legal, lossy outcome,
// not an error.
func (t *dynamicTable) insert(f HeaderField) {
	sz := f.Size()
	if sz > t.sizeLimit {
		t.ents = t.ents[:0]
		t.size = 0
		return
	}
	t.evictTo(t.sizeLimit - sz)
	t.ents = append(t.ents, f)
	t.size += sz
}

// at returns the entry with 1-based dynamic index i, counting from the
// newest entry.
func (t *dynamicTable) at(i uint64) (HeaderField, bool) {
	if i == 0 || i > uint64(len(t.ents)) {
		return HeaderField{}, false
	}
	return t.ents[uint64(len(t.ents))-i], true
}

// lookup resolves a combined-address index: 1..len(staticTable) addresses
// the static table, larger indices address the dynamic table counting from
// its newest entry. Index zero and indices beyond both tables fail.
func (t *dynamicTable) lookup(index uint64) (HeaderField, bool) {
	if index == 0 {
		return HeaderField{}, false
	}
	if index <= uint64(len(staticTable)) {
		return staticTable[index-1], true
	}
	return t.at(index - uint64(len(staticTable)))
}
