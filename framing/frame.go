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

// Package framing implements HTTP/2 frame serialization and an incremental
// frame decoder with visitor-style callbacks.
package framing

import "github.com/klzgrad/h2codec/hpack"

const (
	// FrameHeaderLen is the length of the fixed header preceding every
	// HTTP/2 frame payload.
	FrameHeaderLen = 9

	// ClientPreface is the connection preface sent by HTTP/2 clients.
	ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

	defaultMaxFramePayloadSize = 16384
	maxAllowedFramePayloadSize = 1<<24 - 1
)

// FrameType represents the type of an HTTP/2 Frame.
// See [Frame Type].
//
// [Frame Type]: https://httpwg.org/specs/rfc7540.html#FrameType
type FrameType uint8

// Frame types defined in the HTTP/2 Spec, plus ALTSVC from RFC 7838.
const (
	FrameTypeData         FrameType = 0x0
	FrameTypeHeaders      FrameType = 0x1
	FrameTypePriority     FrameType = 0x2
	FrameTypeRSTStream    FrameType = 0x3
	FrameTypeSettings     FrameType = 0x4
	FrameTypePushPromise  FrameType = 0x5
	FrameTypePing         FrameType = 0x6
	FrameTypeGoAway       FrameType = 0x7
	FrameTypeWindowUpdate FrameType = 0x8
	FrameTypeContinuation FrameType = 0x9
	FrameTypeAltSvc       FrameType = 0xa
)

var frameTypeNames = map[FrameType]string{
	FrameTypeData:         "DATA",
	FrameTypeHeaders:      "HEADERS",
	FrameTypePriority:     "PRIORITY",
	FrameTypeRSTStream:    "RST_STREAM",
	FrameTypeSettings:     "SETTINGS",
	FrameTypePushPromise:  "PUSH_PROMISE",
	FrameTypePing:         "PING",
	FrameTypeGoAway:       "GOAWAY",
	FrameTypeWindowUpdate: "WINDOW_UPDATE",
	FrameTypeContinuation: "CONTINUATION",
	FrameTypeAltSvc:       "ALTSVC",
}

func (t FrameType) String() string {
	if v, ok := frameTypeNames[t]; ok {
		return v
	}
	return "UNKNOWN"
}

// Flag represents one or more flags set on an HTTP/2 Frame.
type Flag uint8

// Flags defined in the HTTP/2 Spec.
const (
	FlagDataEndStream          Flag = 0x1
	FlagDataPadded             Flag = 0x8
	FlagHeadersEndStream       Flag = 0x1
	FlagHeadersEndHeaders      Flag = 0x4
	FlagHeadersPadded          Flag = 0x8
	FlagHeadersPriority        Flag = 0x20
	FlagSettingsAck            Flag = 0x1
	FlagPushPromiseEndHeaders  Flag = 0x4
	FlagPushPromisePadded      Flag = 0x8
	FlagPingAck                Flag = 0x1
	FlagContinuationEndHeaders Flag = 0x4
)

// IsSet returns a boolean indicating whether the passed flag is set on this
// flag instance.
func (f Flag) IsSet(flag Flag) bool {
	return f&flag != 0
}

// Setting represents the id and value pair of an HTTP/2 setting.
// See [Setting Format].
//
// [Setting Format]: https://httpwg.org/specs/rfc7540.html#SettingFormat
type Setting struct {
	ID    SettingID
	Value uint32
}

// SettingID represents the id of an HTTP/2 setting.
// See [Setting Values].
//
// [Setting Values]: https://httpwg.org/specs/rfc7540.html#SettingValues
type SettingID uint16

// Setting IDs defined in the HTTP/2 Spec.
const (
	SettingsHeaderTableSize      SettingID = 0x1
	SettingsEnablePush           SettingID = 0x2
	SettingsMaxConcurrentStreams SettingID = 0x3
	SettingsInitialWindowSize    SettingID = 0x4
	SettingsMaxFrameSize         SettingID = 0x5
	SettingsMaxHeaderListSize    SettingID = 0x6
)

// FrameHeader is the 9 byte header of any HTTP/2 Frame.
// See [Frame Header].
//
// [Frame Header]: https://httpwg.org/specs/rfc7540.html#FrameHeader
type FrameHeader struct {
	// Length is the size of the frame's payload without the 9 header
	// bytes. As per the HTTP/2 spec, length can be up to 3 bytes, but only
	// frames up to 16KB can be processed without agreement.
	Length uint32
	// Type is a byte that represents the Frame Type.
	Type FrameType
	// Flags is a byte representing the flags set on this Frame.
	Flags Flag
	// StreamID is the ID for the stream which this frame is for. If the
	// frame is connection specific instead of stream specific, the
	// streamID is 0.
	StreamID uint32
}

// PriorityParam carries the stream prioritization fields of a HEADERS or
// PRIORITY frame. Weight is the logical value in 1..256; it is serialized
// as Weight-1 on the wire.
type PriorityParam struct {
	StreamDependency uint32
	Weight           uint16
	Exclusive        bool
}

// Frame represents an HTTP/2 Frame to be serialized. Each concrete Frame
// type defined below implements the Frame interface. The read path does not
// use this type; decoded frames are delivered through Visitor callbacks.
type Frame interface {
	// Type returns the HTTP/2 frame type that this frame serializes as.
	Type() FrameType
}

// DataFrame is the representation of a [DATA frame]. DATA frames convey
// arbitrary, variable-length sequences of octets associated with a stream.
//
// [DATA frame]: https://httpwg.org/specs/rfc7540.html#DATA
type DataFrame struct {
	StreamID  uint32
	EndStream bool
	Data      []byte
	// PadLength pads the payload with that many zero bytes and sets the
	// PADDED flag when nonzero.
	PadLength uint8
}

// Type returns the HTTP/2 frame type for this frame.
func (*DataFrame) Type() FrameType { return FrameTypeData }

// HeadersFrame is the representation of a [HEADERS Frame]. The HEADERS frame
// is used to open a stream; its header list is HPACK-encoded at serialization
// time and split across CONTINUATION frames when it exceeds the maximum frame
// payload size.
//
// [HEADERS Frame]: https://httpwg.org/specs/rfc7540.html#HEADERS
type HeadersFrame struct {
	StreamID  uint32
	EndStream bool
	Headers   []hpack.HeaderField
	// Priority, when HasPriority is set, adds the stream dependency fields
	// and the PRIORITY flag to the leading frame.
	HasPriority bool
	Priority    PriorityParam
	PadLength   uint8
}

// Type returns the HTTP/2 frame type for this frame.
func (*HeadersFrame) Type() FrameType { return FrameTypeHeaders }

// PriorityFrame is the representation of a [PRIORITY Frame]. The PRIORITY
// frame specifies the sender-advised priority of a stream.
//
// [PRIORITY Frame]: https://httpwg.org/specs/rfc7540.html#PRIORITY
type PriorityFrame struct {
	StreamID uint32
	Priority PriorityParam
}

// Type returns the HTTP/2 frame type for this frame.
func (*PriorityFrame) Type() FrameType { return FrameTypePriority }

// RSTStreamFrame is the representation of a [RST_STREAM Frame]. The
// RST_STREAM frame allows for immediate termination of a stream.
//
// [RST_STREAM Frame]: https://httpwg.org/specs/rfc7540.html#RST_STREAM
type RSTStreamFrame struct {
	StreamID uint32
	ErrCode  ErrCode
}

// Type returns the HTTP/2 frame type for this frame.
func (*RSTStreamFrame) Type() FrameType { return FrameTypeRSTStream }

// SettingsFrame is the representation of a [SETTINGS Frame]. The SETTINGS
// frame conveys configuration parameters that affect how endpoints
// communicate, such as preferences and constraints on peer behavior.
//
// [SETTINGS Frame]: https://httpwg.org/specs/rfc7540.html#SETTINGS
type SettingsFrame struct {
	Ack      bool
	Settings []Setting
}

// Type returns the HTTP/2 frame type for this frame.
func (*SettingsFrame) Type() FrameType { return FrameTypeSettings }

// PushPromiseFrame is the representation of a [PUSH_PROMISE Frame]. The
// PUSH_PROMISE frame is used to notify the peer endpoint in advance of
// streams the sender intends to initiate.
//
// [PUSH_PROMISE Frame]: https://httpwg.org/specs/rfc7540.html#PUSH_PROMISE
type PushPromiseFrame struct {
	StreamID         uint32
	PromisedStreamID uint32
	Headers          []hpack.HeaderField
	PadLength        uint8
}

// Type returns the HTTP/2 frame type for this frame.
func (*PushPromiseFrame) Type() FrameType { return FrameTypePushPromise }

// PingFrame is the representation of a [PING Frame]. The PING frame is a
// mechanism for measuring a minimal round-trip time from the sender, as well
// as determining whether an idle connection is still functional.
//
// [PING Frame]: https://httpwg.org/specs/rfc7540.html#PING
type PingFrame struct {
	Ack  bool
	Data [8]byte
}

// Type returns the HTTP/2 frame type for this frame.
func (*PingFrame) Type() FrameType { return FrameTypePing }

// GoAwayFrame is the representation of a [GOAWAY Frame]. The GOAWAY frame is
// used to initiate shutdown of a connection or to signal serious error
// conditions.
//
// [GOAWAY Frame]: https://httpwg.org/specs/rfc7540.html#GOAWAY
type GoAwayFrame struct {
	LastStreamID uint32
	ErrCode      ErrCode
	DebugData    []byte
}

// Type returns the HTTP/2 frame type for this frame.
func (*GoAwayFrame) Type() FrameType { return FrameTypeGoAway }

// WindowUpdateFrame is the representation of a [WINDOW_UPDATE Frame]. The
// WINDOW_UPDATE frame is used to implement flow control.
//
// [WINDOW_UPDATE Frame]: https://httpwg.org/specs/rfc7540.html#WINDOW_UPDATE
type WindowUpdateFrame struct {
	StreamID  uint32
	Increment uint32
}

// Type returns the HTTP/2 frame type for this frame.
func (*WindowUpdateFrame) Type() FrameType { return FrameTypeWindowUpdate }

// ContinuationFrame is the representation of a [CONTINUATION Frame]. The
// CONTINUATION frame is used to continue a sequence of header block
// fragments. The serializer emits these itself when splitting an oversized
// header block; this type exists for callers that manage splitting manually.
//
// [CONTINUATION Frame]: https://httpwg.org/specs/rfc7540.html#CONTINUATION
type ContinuationFrame struct {
	StreamID   uint32
	EndHeaders bool
	Fragment   []byte
}

// Type returns the HTTP/2 frame type for this frame.
func (*ContinuationFrame) Type() FrameType { return FrameTypeContinuation }

// AltSvcFrame is the representation of an [ALTSVC Frame]. The ALTSVC frame
// advertises the availability of an alternative service to the peer. The
// field value is carried as an opaque string; parsing the Alt-Svc grammar is
// up to the caller.
//
// [ALTSVC Frame]: https://httpwg.org/specs/rfc7838.html#alt-svc-frame
type AltSvcFrame struct {
	StreamID   uint32
	Origin     string
	FieldValue string
}

// Type returns the HTTP/2 frame type for this frame.
func (*AltSvcFrame) Type() FrameType { return FrameTypeAltSvc }

// UnknownFrame is an extension frame of a type this package does not
// interpret. Its payload is serialized verbatim.
type UnknownFrame struct {
	FrameType FrameType
	Flags     Flag
	StreamID  uint32
	Payload   []byte
}

// Type returns the HTTP/2 frame type for this frame.
func (f *UnknownFrame) Type() FrameType { return f.FrameType }
