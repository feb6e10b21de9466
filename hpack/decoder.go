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
	"errors"

	huffman "golang.org/x/net/http2/hpack"
)

// Defaults applied by NewDecoder for zero-valued options.
const (
	// DefaultMaxDecodeBufferSize caps the size of a single fragment
	// handed to DecodeFragment.
	DefaultMaxDecodeBufferSize = 32 << 10
	// DefaultMaxStringLength caps a single decoded name or value.
	DefaultMaxStringLength = 16 << 20
)

// errNeedMore is an internal signal that a representation continues in a
// later fragment. It is never returned to the caller.
var errNeedMore = errors.New("hpack: need more data")

// errVarintOverflow is an internal signal mapped to the per-context varint
// error codes.
var errVarintOverflow = errors.New("hpack: varint beyond implementation limit")

// Misuse errors, distinct from wire-level DecodingErrors.
var (
	ErrBlockInProgress   = errors.New("hpack: header block already in progress")
	ErrNoBlockInProgress = errors.New("hpack: no header block in progress")
)

type blockState int

const (
	blockNotStarted blockState = iota
	blockInProgress
	blockEnded
)

// DecoderOptions configures a Decoder. Zero values select defaults.
type DecoderOptions struct {
	// MaxTableSize is the negotiated ceiling for the dynamic table size
	// (SETTINGS_HEADER_TABLE_SIZE). Defaults to 4096.
	MaxTableSize uint32
	// MaxDecodeBufferSize caps a single input fragment.
	MaxDecodeBufferSize uint32
	// MaxHeaderBlockBytes caps the cumulative compressed bytes across all
	// fragments of one block. Zero means unlimited.
	MaxHeaderBlockBytes uint64
	// MaxStringLength caps a single decoded name or value.
	MaxStringLength uint32
}

// Decoder decodes HPACK header blocks fed as one or more fragments,
// maintaining the decoder-side mirror of the dynamic table across blocks.
// Decoded fields are emitted to the caller in wire order. A Decoder belongs
// to exactly one inbound direction of one connection and must not be shared.
type Decoder struct {
	emit  func(HeaderField)
	table dynamicTable

	maxDecodeBufferSize uint32
	maxHeaderBlockBytes uint64
	maxStringLength     uint32

	state blockState
	// buf holds the unparsed tail of the current block, at most one
	// partial representation plus whatever the last fragment appended.
	buf        []byte
	blockBytes uint64

	sizeUpdateCount    int
	sawNonUpdate       bool
	sizeUpdateRequired bool

	err error
}

// NewDecoder returns a Decoder that calls emit for each decoded field.
func NewDecoder(opts DecoderOptions, emit func(HeaderField)) *Decoder {
	if opts.MaxTableSize == 0 {
		opts.MaxTableSize = DefaultTableSize
	}
	if opts.MaxDecodeBufferSize == 0 {
		opts.MaxDecodeBufferSize = DefaultMaxDecodeBufferSize
	}
	if opts.MaxStringLength == 0 {
		opts.MaxStringLength = DefaultMaxStringLength
	}
	return &Decoder{
		emit:                emit,
		table:               newDynamicTable(opts.MaxTableSize),
		maxDecodeBufferSize: opts.MaxDecodeBufferSize,
		maxHeaderBlockBytes: opts.MaxHeaderBlockBytes,
		maxStringLength:     opts.MaxStringLength,
	}
}

// SetEmitFunc replaces the emit callback, e.g. to collect into a fresh
// header list per block.
func (d *Decoder) SetEmitFunc(emit func(HeaderField)) {
	d.emit = emit
}

// SetMaxTableSize applies a new negotiated table size ceiling. Lowering it
// below the current size limit obliges the peer to open its next header
// block with a conforming dynamic table size update.
func (d *Decoder) SetMaxTableSize(max uint32) {
	if max < d.table.sizeLimit {
		d.sizeUpdateRequired = true
	}
	d.table.maxSizeLimit = max
}

// DynamicTableSize returns the current byte size of the dynamic table.
func (d *Decoder) DynamicTableSize() uint32 {
	return d.table.currentSize()
}

// Err returns the terminal decoding error, if any.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) fail(code ErrorCode) error {
	d.err = DecodingError{Code: code}
	return d.err
}

// StartBlock begins a new header block. It fails if a block is already in
// progress or a previous block ended in a decoding error.
func (d *Decoder) StartBlock() error {
	if d.err != nil {
		return d.err
	}
	if d.state == blockInProgress {
		return ErrBlockInProgress
	}
	d.state = blockInProgress
	d.buf = d.buf[:0]
	d.blockBytes = 0
	d.sizeUpdateCount = 0
	d.sawNonUpdate = false
	return nil
}

// DecodeFragment consumes one fragment of the current block, emitting every
// representation that completes. A representation split across fragments is
// buffered until its remainder arrives.
func (d *Decoder) DecodeFragment(p []byte) error {
	if d.err != nil {
		return d.err
	}
	if d.state != blockInProgress {
		return ErrNoBlockInProgress
	}
	if uint32(len(p)) > d.maxDecodeBufferSize {
		return d.fail(ErrCodeFragmentTooLong)
	}
	d.blockBytes += uint64(len(p))
	if d.maxHeaderBlockBytes != 0 && d.blockBytes > d.maxHeaderBlockBytes {
		return d.fail(ErrCodeCompressedHeaderSizeExceedsLimit)
	}
	d.buf = append(d.buf, p...)
	for len(d.buf) > 0 {
		n, err := d.parseRepresentation(d.buf)
		if err == errNeedMore {
			break
		}
		if err != nil {
			return err
		}
		d.buf = d.buf[n:]
	}
	return nil
}

// EndBlock finishes the current block. It fails with TRUNCATED_BLOCK if the
// block ended mid-representation.
func (d *Decoder) EndBlock() error {
	if d.err != nil {
		return d.err
	}
	if d.state != blockInProgress {
		return ErrNoBlockInProgress
	}
	if len(d.buf) > 0 {
		return d.fail(ErrCodeTruncatedBlock)
	}
	if d.sizeUpdateRequired && d.sizeUpdateCount == 0 {
		return d.fail(ErrCodeMissingDynamicTableSizeUpdate)
	}
	d.state = blockEnded
	return nil
}

// noteNonUpdate records that a non-size-update representation was decoded,
// enforcing the required-size-update rule on the first one.
func (d *Decoder) noteNonUpdate() error {
	if d.sizeUpdateRequired && d.sizeUpdateCount == 0 {
		return d.fail(ErrCodeMissingDynamicTableSizeUpdate)
	}
	d.sawNonUpdate = true
	return nil
}

// parseRepresentation decodes the representation at the front of b,
// returning the number of bytes it occupied. errNeedMore means b holds only
// a prefix of the representation.
func (d *Decoder) parseRepresentation(b []byte) (int, error) {
	switch b0 := b[0]; {
	case b0&0x80 != 0:
		// Indexed header field, 7-bit prefix.
		idx, n, err := readVarint(b, 7)
		if err != nil {
			return 0, d.varintErr(err, ErrCodeIndexVarintError)
		}
		f, ok := d.table.lookup(idx)
		if !ok {
			return 0, d.fail(ErrCodeInvalidIndex)
		}
		if err := d.noteNonUpdate(); err != nil {
			return 0, err
		}
		d.emit(HeaderField{Name: f.Name, Value: f.Value})
		return n, nil
	case b0&0xc0 == 0x40:
		// Literal with incremental indexing, 6-bit name index prefix.
		return d.parseLiteral(b, 6, true, false)
	case b0&0xe0 == 0x20:
		// Dynamic table size update, 5-bit prefix. Legal only as the
		// first one or two representations of a block.
		v, n, err := readVarint(b, 5)
		if err != nil {
			return 0, d.varintErr(err, ErrCodeIndexVarintError)
		}
		if d.sawNonUpdate || d.sizeUpdateCount >= 2 {
			return 0, d.fail(ErrCodeTableSizeUpdateNotAllowed)
		}
		if v > uint64(d.table.maxSizeLimit) || !d.table.setSizeLimit(uint32(v)) {
			return 0, d.fail(ErrCodeTableSizeUpdateAboveMaximum)
		}
		d.sizeUpdateCount++
		d.sizeUpdateRequired = false
		return n, nil
	case b0&0xf0 == 0x10:
		// Literal never indexed, 4-bit name index prefix.
		return d.parseLiteral(b, 4, false, true)
	default:
		// Literal without indexing, 4-bit name index prefix.
		return d.parseLiteral(b, 4, false, false)
	}
}

func (d *Decoder) parseLiteral(b []byte, prefix uint, incremental, sensitive bool) (int, error) {
	nameIdx, n, err := readVarint(b, prefix)
	if err != nil {
		return 0, d.varintErr(err, ErrCodeIndexVarintError)
	}

	var name string
	if nameIdx == 0 {
		s, m, err := d.readString(b[n:], true)
		if err != nil {
			return 0, err
		}
		name = s
		n += m
	} else {
		f, ok := d.table.lookup(nameIdx)
		if !ok {
			return 0, d.fail(ErrCodeInvalidNameIndex)
		}
		name = f.Name
	}

	value, m, err := d.readString(b[n:], false)
	if err != nil {
		return 0, err
	}
	n += m

	if err := d.noteNonUpdate(); err != nil {
		return 0, err
	}
	f := HeaderField{Name: name, Value: value, Sensitive: sensitive}
	if incremental {
		d.table.insert(f)
	}
	d.emit(f)
	return n, nil
}

// readString decodes a length-prefixed, possibly Huffman-coded string
// literal. isName selects which side of the error taxonomy applies.
func (d *Decoder) readString(b []byte, isName bool) (string, int, error) {
	if len(b) == 0 {
		return "", 0, errNeedMore
	}
	huffed := b[0]&0x80 != 0
	length, n, err := readVarint(b, 7)
	if err != nil {
		if isName {
			return "", 0, d.varintErr(err, ErrCodeNameLengthVarintError)
		}
		return "", 0, d.varintErr(err, ErrCodeValueLengthVarintError)
	}
	if length > uint64(d.maxStringLength) {
		if isName {
			return "", 0, d.fail(ErrCodeNameTooLong)
		}
		return "", 0, d.fail(ErrCodeValueTooLong)
	}
	if uint64(len(b)-n) < length {
		return "", 0, errNeedMore
	}
	raw := b[n : n+int(length)]
	if !huffed {
		return string(raw), n + int(length), nil
	}
	s, err := huffman.HuffmanDecodeToString(raw)
	if err != nil {
		if isName {
			return "", 0, d.fail(ErrCodeNameHuffmanError)
		}
		return "", 0, d.fail(ErrCodeValueHuffmanError)
	}
	return s, n + int(length), nil
}

func (d *Decoder) varintErr(err error, code ErrorCode) error {
	if err == errNeedMore {
		return err
	}
	return d.fail(code)
}

// readVarint decodes the HPACK integer at the front of b: a prefix-bit
// value holding the integer directly if it fits, else the prefix maximum
// followed by 7-bit continuation bytes (RFC 7541 §5.1).
func readVarint(b []byte, prefix uint) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errNeedMore
	}
	max := uint64(1)<<prefix - 1
	v := uint64(b[0]) & max
	if v < max {
		return v, 1, nil
	}
	var shift uint
	for n := 1; n < len(b); n++ {
		c := b[n]
		v += uint64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			return v, n + 1, nil
		}
		if shift > 56 {
			return 0, 0, errVarintOverflow
		}
	}
	return 0, 0, errNeedMore
}
