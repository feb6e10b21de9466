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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func roundTrip(t *testing.T, enc *Encoder, dec *Decoder, fields HeaderList) HeaderList {
	t.Helper()
	block := enc.EncodeHeaderList(fields)
	var got HeaderList
	dec.SetEmitFunc(func(f HeaderField) { got = append(got, f) })
	if err := dec.StartBlock(); err != nil {
		t.Fatalf("StartBlock: %v", err)
	}
	if err := dec.DecodeFragment(block); err != nil {
		t.Fatalf("DecodeFragment: %v", err)
	}
	if err := dec.EndBlock(); err != nil {
		t.Fatalf("EndBlock: %v", err)
	}
	return got
}

func TestEncoder_StaticTableIndexed(t *testing.T) {
	enc := NewEncoder(0)
	block := enc.EncodeHeaderList([]HeaderField{{Name: ":method", Value: "GET"}})
	want := []byte{0x82}
	if diff := cmp.Diff(block, want); diff != "" {
		t.Errorf("encoding (-got, +want): %s", diff)
	}
}

func TestEncoder_CompressionDisabledLiteralBytes(t *testing.T) {
	enc := NewEncoder(0)
	enc.DisableCompression()
	block := enc.EncodeHeaderList([]HeaderField{{Name: ":method", Value: "GET"}})

	want := []byte{0x00, 0x07}
	want = append(want, ":method"...)
	want = append(want, 0x03)
	want = append(want, "GET"...)
	if diff := cmp.Diff(block, want); diff != "" {
		t.Errorf("encoding (-got, +want): %s", diff)
	}
	if got := enc.DynamicTableSize(); got != 0 {
		t.Errorf("DynamicTableSize() = %d, want 0 with compression disabled", got)
	}
}

func TestEncoder_RoundTrip(t *testing.T) {
	fields := HeaderList{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "https"},
		{Name: ":path", Value: "/some/where?q=1"},
		{Name: ":authority", Value: "www.example.com"},
		{Name: "user-agent", Value: "h2codec-test/1.0"},
		{Name: "x-custom", Value: "custom value with spaces"},
		{Name: "authorization", Value: "Bearer tok", Sensitive: true},
	}
	enc := NewEncoder(0)
	dec := NewDecoder(DecoderOptions{}, nil)
	got := roundTrip(t, enc, dec, fields)
	if diff := cmp.Diff(got, fields); diff != "" {
		t.Errorf("round trip (-got, +want): %s", diff)
	}
}

// A second encoding of the same list must come out smaller and still
// round-trip, exercising the dynamic table on both sides.
func TestEncoder_CrossRequestCompression(t *testing.T) {
	fields := HeaderList{
		{Name: ":authority", Value: "www.example.com"},
		{Name: "x-trace-id", Value: "abc123"},
	}
	enc := NewEncoder(0)
	dec := NewDecoder(DecoderOptions{}, nil)

	first := enc.EncodeHeaderList(fields)
	got1 := HeaderList{}
	dec.SetEmitFunc(func(f HeaderField) { got1 = append(got1, f) })
	decodeOne(t, dec, first)

	second := enc.EncodeHeaderList(fields)
	got2 := HeaderList{}
	dec.SetEmitFunc(func(f HeaderField) { got2 = append(got2, f) })
	decodeOne(t, dec, second)

	if len(second) >= len(first) {
		t.Errorf("second encoding %d bytes, want smaller than first %d", len(second), len(first))
	}
	if diff := cmp.Diff(got2, fields); diff != "" {
		t.Errorf("second round trip (-got, +want): %s", diff)
	}
}

func decodeOne(t *testing.T, dec *Decoder, block []byte) {
	t.Helper()
	if err := dec.StartBlock(); err != nil {
		t.Fatalf("StartBlock: %v", err)
	}
	if err := dec.DecodeFragment(block); err != nil {
		t.Fatalf("DecodeFragment: %v", err)
	}
	if err := dec.EndBlock(); err != nil {
		t.Fatalf("EndBlock: %v", err)
	}
}

// Cookie values are crumbed at "; " boundaries into independently
// indexable fields; coalescing the decoded list restores the original.
func TestEncoder_CookieCrumbing(t *testing.T) {
	const cookie = "a=b; c=d; theme=dark"
	fields := HeaderList{{Name: "cookie", Value: cookie}}

	enc := NewEncoder(0)
	dec := NewDecoder(DecoderOptions{}, nil)
	got := roundTrip(t, enc, dec, fields)

	if len(got) != 3 {
		t.Fatalf("decoded %d fields, want 3 crumbs", len(got))
	}
	joined := got.Coalesced()
	want := HeaderList{{Name: "cookie", Value: cookie}}
	if diff := cmp.Diff(joined, want); diff != "" {
		t.Errorf("coalesced cookie (-got, +want): %s", diff)
	}
}

func TestHeaderList_CoalescedRepeatedHeaders(t *testing.T) {
	l := HeaderList{
		{Name: "accept", Value: "text/html"},
		{Name: "x-tag", Value: "one"},
		{Name: "x-tag", Value: "two"},
	}
	want := HeaderList{
		{Name: "accept", Value: "text/html"},
		{Name: "x-tag", Value: "one\x00two"},
	}
	if diff := cmp.Diff(l.Coalesced(), want); diff != "" {
		t.Errorf("Coalesced() (-got, +want): %s", diff)
	}
}

// Changing the table size must be signaled at the start of the next block
// and mirrored by the decoder; lower-then-raise emits both updates.
func TestEncoder_TableSizeUpdateEmission(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(DecoderOptions{}, nil)

	// Warm the tables.
	fields := HeaderList{{Name: "x-warm", Value: "yes"}}
	roundTrip(t, enc, dec, fields)

	enc.SetMaxTableSize(0)
	enc.SetMaxTableSize(1024)
	block := enc.EncodeHeaderList(fields)

	// Block must open with updates to 0 then 1024.
	if block[0] != 0x20 {
		t.Fatalf("block[0] = %#x, want size update to 0 (0x20)", block[0])
	}
	dec.SetMaxTableSize(1024)
	var got HeaderList
	dec.SetEmitFunc(func(f HeaderField) { got = append(got, f) })
	decodeOne(t, dec, block)
	if diff := cmp.Diff(got, fields); diff != "" {
		t.Errorf("round trip after resize (-got, +want): %s", diff)
	}
	if enc.DynamicTableSize() != dec.DynamicTableSize() {
		t.Errorf("encoder table size %d != decoder table size %d",
			enc.DynamicTableSize(), dec.DynamicTableSize())
	}
}

func TestEncoder_HuffmanLiteralShorter(t *testing.T) {
	// Lowercase alphabetic values compress well under Huffman; the literal
	// must carry the H bit and still round-trip.
	fields := HeaderList{{Name: "x-words", Value: "aaaaaaaaaaaaaaaaaaaaaaaa"}}
	enc := NewEncoder(0)
	dec := NewDecoder(DecoderOptions{}, nil)
	got := roundTrip(t, enc, dec, fields)
	if diff := cmp.Diff(got, fields); diff != "" {
		t.Errorf("huffman round trip (-got, +want): %s", diff)
	}
}
