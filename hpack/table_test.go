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
	"fmt"
	"testing"
)

func TestStaticTable_WellKnownEntries(t *testing.T) {
	if got := len(staticTable); got != 61 {
		t.Fatalf("len(staticTable) = %d, want 61", got)
	}
	tests := []struct {
		index uint64
		want  HeaderField
	}{
		{1, HeaderField{Name: ":authority"}},
		{2, HeaderField{Name: ":method", Value: "GET"}},
		{32, HeaderField{Name: "cookie"}},
		{61, HeaderField{Name: "www-authenticate"}},
	}
	tab := newDynamicTable(DefaultTableSize)
	for _, test := range tests {
		f, ok := tab.lookup(test.index)
		if !ok || f != test.want {
			t.Errorf("lookup(%d) = %+v, %v, want %+v, true", test.index, f, ok, test.want)
		}
	}
}

func TestDynamicTable_InsertAndAddressing(t *testing.T) {
	tab := newDynamicTable(DefaultTableSize)
	tab.insert(HeaderField{Name: "a", Value: "1"})
	tab.insert(HeaderField{Name: "b", Value: "2"})

	// Index 62 is the newest dynamic entry, 63 the one before it.
	if f, ok := tab.lookup(62); !ok || f.Name != "b" {
		t.Errorf("lookup(62) = %+v, %v, want newest entry b", f, ok)
	}
	if f, ok := tab.lookup(63); !ok || f.Name != "a" {
		t.Errorf("lookup(63) = %+v, %v, want oldest entry a", f, ok)
	}
	if _, ok := tab.lookup(64); ok {
		t.Errorf("lookup(64) succeeded, want failure beyond both tables")
	}
	if _, ok := tab.lookup(0); ok {
		t.Errorf("lookup(0) succeeded, want failure")
	}
}

// After every insertion currentSize() <= sizeLimit must hold, with oldest
// entries evicted first.
func TestDynamicTable_SizeInvariant(t *testing.T) {
	tab := newDynamicTable(100)
	for i := 0; i < 20; i++ {
		tab.insert(HeaderField{Name: fmt.Sprintf("name-%02d", i), Value: "v"})
		if tab.currentSize() > 100 {
			t.Fatalf("after insert %d: size %d exceeds limit 100", i, tab.currentSize())
		}
	}
	// Each entry is 7+1+32=40 bytes, so only two fit under 100.
	if got := tab.length(); got != 2 {
		t.Errorf("length() = %d, want 2", got)
	}
	if f, _ := tab.at(1); f.Name != "name-19" {
		t.Errorf("newest entry = %q, want name-19", f.Name)
	}
}

// An entry that cannot fit even in an empty table empties the table and is
// not inserted; that is a legal, lossy outcome.
func TestDynamicTable_OversizeEntryEmptiesTable(t *testing.T) {
	tab := newDynamicTable(64)
	tab.insert(HeaderField{Name: "a", Value: "1"})
	tab.insert(HeaderField{Name: "huge", Value: string(make([]byte, 128))})
	if tab.length() != 0 || tab.currentSize() != 0 {
		t.Errorf("table after oversize insert: length=%d size=%d, want empty", tab.length(), tab.currentSize())
	}
}

func TestDynamicTable_SetSizeLimit(t *testing.T) {
	tab := newDynamicTable(4096)
	tab.insert(HeaderField{Name: "a", Value: "1"})
	tab.insert(HeaderField{Name: "b", Value: "2"})

	if !tab.setSizeLimit(34) {
		t.Fatalf("setSizeLimit(34) under the negotiated maximum failed")
	}
	if got := tab.length(); got != 1 {
		t.Errorf("entries after shrink = %d, want 1 (oldest evicted)", got)
	}
	if tab.setSizeLimit(8192) {
		t.Errorf("setSizeLimit(8192) above the negotiated maximum succeeded")
	}
}
