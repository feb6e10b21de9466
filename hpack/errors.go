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

import "fmt"

// ErrorCode identifies the reason a header block failed to decode. Any of
// these is terminal for the current block: the decoder must not be fed
// further data for that block.
type ErrorCode int

const (
	// ErrCodeInvalidIndex means an indexed representation used index zero
	// or an index beyond both tables.
	ErrCodeInvalidIndex ErrorCode = iota
	// ErrCodeInvalidNameIndex means a literal representation's name index
	// addressed neither table.
	ErrCodeInvalidNameIndex
	ErrCodeIndexVarintError
	ErrCodeNameLengthVarintError
	ErrCodeValueLengthVarintError
	ErrCodeNameTooLong
	ErrCodeValueTooLong
	ErrCodeNameHuffmanError
	ErrCodeValueHuffmanError
	// ErrCodeMissingDynamicTableSizeUpdate means the peer lowered the
	// table size via settings but the next block did not open with a
	// conforming size update.
	ErrCodeMissingDynamicTableSizeUpdate
	// ErrCodeTableSizeUpdateNotAllowed means a size update appeared after
	// a non-update representation, or a third consecutive update was seen.
	ErrCodeTableSizeUpdateNotAllowed
	// ErrCodeTableSizeUpdateAboveMaximum means a size update exceeded the
	// negotiated maximum table size.
	ErrCodeTableSizeUpdateAboveMaximum
	// ErrCodeTruncatedBlock means the block ended mid-representation.
	ErrCodeTruncatedBlock
	// ErrCodeFragmentTooLong means a single input fragment exceeded the
	// configured maximum decode buffer size.
	ErrCodeFragmentTooLong
	// ErrCodeCompressedHeaderSizeExceedsLimit means the cumulative
	// compressed bytes across all fragments of one block exceeded the
	// configured cap.
	ErrCodeCompressedHeaderSizeExceedsLimit
)

var errorCodeNames = map[ErrorCode]string{
	ErrCodeInvalidIndex:                     "INVALID_INDEX",
	ErrCodeInvalidNameIndex:                 "INVALID_NAME_INDEX",
	ErrCodeIndexVarintError:                 "INDEX_VARINT_ERROR",
	ErrCodeNameLengthVarintError:            "NAME_LENGTH_VARINT_ERROR",
	ErrCodeValueLengthVarintError:           "VALUE_LENGTH_VARINT_ERROR",
	ErrCodeNameTooLong:                      "NAME_TOO_LONG",
	ErrCodeValueTooLong:                     "VALUE_TOO_LONG",
	ErrCodeNameHuffmanError:                 "NAME_HUFFMAN_ERROR",
	ErrCodeValueHuffmanError:                "VALUE_HUFFMAN_ERROR",
	ErrCodeMissingDynamicTableSizeUpdate:    "MISSING_DYNAMIC_TABLE_SIZE_UPDATE",
	ErrCodeTableSizeUpdateNotAllowed:        "DYNAMIC_TABLE_SIZE_UPDATE_NOT_ALLOWED",
	ErrCodeTableSizeUpdateAboveMaximum:      "DYNAMIC_TABLE_SIZE_UPDATE_ABOVE_MAXIMUM",
	ErrCodeTruncatedBlock:                   "TRUNCATED_BLOCK",
	ErrCodeFragmentTooLong:                  "FRAGMENT_TOO_LONG",
	ErrCodeCompressedHeaderSizeExceedsLimit: "COMPRESSED_HEADER_SIZE_EXCEEDS_LIMIT",
}

func (c ErrorCode) String() string {
	if v, ok := errorCodeNames[c]; ok {
		return v
	}
	return fmt.Sprintf("unknown hpack error code %d", int(c))
}

// DecodingError is the terminal error of one header block.
type DecodingError struct {
	Code ErrorCode
}

func (e DecodingError) Error() string {
	return fmt.Sprintf("hpack: decoding error %v", e.Code)
}
