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

package framing

import (
	"google.golang.org/grpc/mem"

	"github.com/klzgrad/h2codec/hpack"
)

// Visitor receives decoded frames and header fields from a Decoder. The
// decoder invokes exactly one frame callback per complete frame, in wire
// order, regardless of how the input bytes were chunked.
//
// Header lists arrive field by field: OnHeaderBlockStart once per HEADERS or
// PUSH_PROMISE frame, OnHeader per decoded field across the whole block
// (CONTINUATION frames included), OnHeaderBlockEnd exactly once when the
// END_HEADERS fragment has been decoded.
type Visitor interface {
	// OnData is called for each DATA frame with its padding stripped. The
	// buffer is freed when the callback returns; call Ref to retain it.
	OnData(streamID uint32, data mem.Buffer, endStream bool)
	// OnHeaders is called when a HEADERS frame header and its fixed fields
	// have been read, before any of the block's header fields are emitted.
	// priority is non-nil iff the PRIORITY flag was set.
	OnHeaders(streamID uint32, endStream bool, priority *PriorityParam)
	// OnPriority is called for each PRIORITY frame.
	OnPriority(streamID uint32, priority PriorityParam)
	// OnRSTStream is called for each RST_STREAM frame.
	OnRSTStream(streamID uint32, code ErrCode)
	// OnSettings is called for each SETTINGS frame. Unknown setting ids
	// are forwarded unfiltered. settings is nil for an ACK.
	OnSettings(ack bool, settings []Setting)
	// OnPushPromise is called when a PUSH_PROMISE frame header and its
	// promised stream id have been read, before the block's header fields.
	OnPushPromise(streamID, promisedStreamID uint32)
	// OnPing is called for each PING frame.
	OnPing(ack bool, data [8]byte)
	// OnGoAway is called for each GOAWAY frame. The debug data is only
	// valid for the duration of the call.
	OnGoAway(lastStreamID uint32, code ErrCode, debugData []byte)
	// OnWindowUpdate is called for each WINDOW_UPDATE frame. The increment
	// is always nonzero; a zero increment is a decode error.
	OnWindowUpdate(streamID, increment uint32)
	// OnContinuation is called when a CONTINUATION frame header has been
	// read. The fragment's header fields are emitted through OnHeader.
	OnContinuation(streamID uint32, endHeaders bool)
	// OnAltSvc is called for each ALTSVC frame. The field value is the raw
	// Alt-Svc string; this package does not parse its grammar.
	OnAltSvc(streamID uint32, origin, fieldValue string)
	// OnHeaderBlockStart marks the beginning of a header block.
	OnHeaderBlockStart(streamID uint32)
	// OnHeader is called once per decoded header field, in wire order.
	OnHeader(f hpack.HeaderField)
	// OnHeaderBlockEnd marks the end of a header block. It is called
	// exactly once per block, after the END_HEADERS fragment decodes.
	OnHeaderBlockEnd(streamID uint32)
	// OnError is called once when the decoder enters its terminal error
	// state. err is a FramerError or an hpack.DecodingError.
	OnError(err error)
}

// UnknownFrameHandler is offered frames of types this package does not
// interpret. Returning true marks the frame as handled; either way the
// payload is consumed and decoding continues. The payload is only valid for
// the duration of the call.
type UnknownFrameHandler func(hdr FrameHeader, payload []byte) bool

// NopVisitor is a Visitor that ignores everything. Embed it to implement
// only the callbacks of interest.
type NopVisitor struct{}

var _ Visitor = NopVisitor{}

func (NopVisitor) OnData(uint32, mem.Buffer, bool)        {}
func (NopVisitor) OnHeaders(uint32, bool, *PriorityParam) {}
func (NopVisitor) OnPriority(uint32, PriorityParam)       {}
func (NopVisitor) OnRSTStream(uint32, ErrCode)            {}
func (NopVisitor) OnSettings(bool, []Setting)             {}
func (NopVisitor) OnPushPromise(uint32, uint32)           {}
func (NopVisitor) OnPing(bool, [8]byte)                   {}
func (NopVisitor) OnGoAway(uint32, ErrCode, []byte)       {}
func (NopVisitor) OnWindowUpdate(uint32, uint32)          {}
func (NopVisitor) OnContinuation(uint32, bool)            {}
func (NopVisitor) OnAltSvc(uint32, string, string)        {}
func (NopVisitor) OnHeaderBlockStart(uint32)              {}
func (NopVisitor) OnHeader(hpack.HeaderField)             {}
func (NopVisitor) OnHeaderBlockEnd(uint32)                {}
func (NopVisitor) OnError(error)                          {}
