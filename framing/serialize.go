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
	"github.com/klzgrad/h2codec/hpack"
	"github.com/klzgrad/h2codec/internal/wire"
)

// Serializer turns Frame values into wire bytes. It owns the connection's
// HPACK encoder, so HEADERS and PUSH_PROMISE frames must be serialized in
// the order they will be sent. Header blocks longer than the maximum frame
// payload are split across CONTINUATION frames automatically.
//
// A Serializer is not safe for concurrent use.
type Serializer struct {
	enc            *hpack.Encoder
	maxPayloadSize uint32
}

// NewSerializer returns a Serializer producing frames with payloads of at
// most maxFramePayloadSize bytes and an HPACK encoder table capped at
// maxHeaderTableSize. Zero values select the RFC 7540 defaults.
func NewSerializer(maxFramePayloadSize, maxHeaderTableSize uint32) *Serializer {
	if maxFramePayloadSize == 0 {
		maxFramePayloadSize = defaultMaxFramePayloadSize
	}
	if maxFramePayloadSize > maxAllowedFramePayloadSize {
		maxFramePayloadSize = maxAllowedFramePayloadSize
	}
	if maxHeaderTableSize == 0 {
		maxHeaderTableSize = hpack.DefaultTableSize
	}
	return &Serializer{
		enc:            hpack.NewEncoder(maxHeaderTableSize),
		maxPayloadSize: maxFramePayloadSize,
	}
}

// HpackEncoder returns the serializer's HPACK encoder, for table size
// declarations and compression control.
func (s *Serializer) HpackEncoder() *hpack.Encoder {
	return s.enc
}

// Serialize returns the wire bytes for f, which may span several physical
// frames for HEADERS and PUSH_PROMISE. The returned slice is owned by the
// caller.
func (s *Serializer) Serialize(f Frame) ([]byte, error) {
	switch f := f.(type) {
	case *DataFrame:
		return s.SerializeData(f)
	case *HeadersFrame:
		return s.SerializeHeaders(f)
	case *PriorityFrame:
		return s.SerializePriority(f)
	case *RSTStreamFrame:
		return s.SerializeRSTStream(f)
	case *SettingsFrame:
		return s.SerializeSettings(f)
	case *PushPromiseFrame:
		return s.SerializePushPromise(f)
	case *PingFrame:
		return s.SerializePing(f)
	case *GoAwayFrame:
		return s.SerializeGoAway(f)
	case *WindowUpdateFrame:
		return s.SerializeWindowUpdate(f)
	case *ContinuationFrame:
		return s.SerializeContinuation(f)
	case *AltSvcFrame:
		return s.SerializeAltSvc(f)
	case *UnknownFrame:
		return s.SerializeUnknown(f)
	}
	return nil, FramerError{Code: FramerErrInternal, Reason: "unhandled frame type"}
}

func appendFrameHeader(w *wire.Writer, length uint32, t FrameType, flags Flag, streamID uint32) {
	w.WriteUint24(length)
	w.WriteUint8(uint8(t))
	w.WriteUint8(uint8(flags))
	w.WriteUint31(streamID)
}

// clampWeight bounds a priority weight to the representable 1..256 range.
func clampWeight(weight uint16) uint16 {
	if weight < 1 {
		return 1
	}
	if weight > 256 {
		return 256
	}
	return weight
}

func appendPriority(w *wire.Writer, p PriorityParam) {
	dep := p.StreamDependency & 0x7fffffff
	if p.Exclusive {
		dep |= 1 << 31
	}
	w.WriteUint32(dep)
	w.WriteUint8(uint8(clampWeight(p.Weight) - 1))
}

func appendPadding(w *wire.Writer, padLen uint8) {
	for i := 0; i < int(padLen); i++ {
		w.WriteUint8(0)
	}
}

// SerializeData serializes a DATA frame. The data plus padding must fit a
// single frame; splitting flow-controlled data across frames is the
// caller's concern.
func (s *Serializer) SerializeData(f *DataFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, FramerError{Code: FramerErrInvalidStreamID, Reason: "DATA frame with stream id 0"}
	}
	length := uint32(len(f.Data))
	var flags Flag
	if f.EndStream {
		flags |= FlagDataEndStream
	}
	if f.PadLength > 0 {
		flags |= FlagDataPadded
		length += 1 + uint32(f.PadLength)
	}
	if length > s.maxPayloadSize {
		return nil, FramerError{Code: FramerErrOversizedPayload, Reason: "DATA payload exceeds maximum frame size"}
	}

	w := wire.NewWriter()
	appendFrameHeader(w, length, FrameTypeData, flags, f.StreamID)
	if f.PadLength > 0 {
		w.WriteUint8(f.PadLength)
	}
	w.WriteBytes(f.Data)
	appendPadding(w, f.PadLength)
	return w.Take(), nil
}

// SerializeHeaders HPACK-encodes the header list and serializes it as one
// HEADERS frame, followed by CONTINUATION frames if the encoding does not
// fit. Padding and priority fields go in the leading frame only; the last
// frame carries END_HEADERS.
func (s *Serializer) SerializeHeaders(f *HeadersFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, FramerError{Code: FramerErrInvalidStreamID, Reason: "HEADERS frame with stream id 0"}
	}

	var flags Flag
	var fixed uint32
	if f.EndStream {
		flags |= FlagHeadersEndStream
	}
	if f.PadLength > 0 {
		flags |= FlagHeadersPadded
		fixed += 1 + uint32(f.PadLength)
	}
	if f.HasPriority {
		flags |= FlagHeadersPriority
		fixed += 5
	}
	if fixed > s.maxPayloadSize {
		return nil, FramerError{Code: FramerErrInvalidPadding, Reason: "padding leaves no room for payload"}
	}

	hb := wire.NewWriter()
	hb.WriteBytes(s.enc.EncodeHeaderList(f.Headers))

	frag := hb.TakeFirst(int(s.maxPayloadSize - fixed))
	if hb.Len() == 0 {
		flags |= FlagHeadersEndHeaders
	}

	w := wire.NewWriter()
	appendFrameHeader(w, fixed+uint32(len(frag)), FrameTypeHeaders, flags, f.StreamID)
	if f.PadLength > 0 {
		w.WriteUint8(f.PadLength)
	}
	if f.HasPriority {
		appendPriority(w, f.Priority)
	}
	w.WriteBytes(frag)
	appendPadding(w, f.PadLength)

	s.appendContinuations(w, f.StreamID, hb)
	return w.Take(), nil
}

// appendContinuations drains hb into CONTINUATION frames of at most one
// payload each, setting END_HEADERS on the last.
func (s *Serializer) appendContinuations(w *wire.Writer, streamID uint32, hb *wire.Writer) {
	for hb.Len() > 0 {
		frag := hb.TakeFirst(int(s.maxPayloadSize))
		var flags Flag
		if hb.Len() == 0 {
			flags |= FlagContinuationEndHeaders
		}
		appendFrameHeader(w, uint32(len(frag)), FrameTypeContinuation, flags, streamID)
		w.WriteBytes(frag)
	}
}

// SerializePriority serializes a PRIORITY frame.
func (s *Serializer) SerializePriority(f *PriorityFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, FramerError{Code: FramerErrInvalidStreamID, Reason: "PRIORITY frame with stream id 0"}
	}
	w := wire.NewWriter()
	appendFrameHeader(w, 5, FrameTypePriority, 0, f.StreamID)
	appendPriority(w, f.Priority)
	return w.Take(), nil
}

// SerializeRSTStream serializes a RST_STREAM frame.
func (s *Serializer) SerializeRSTStream(f *RSTStreamFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, FramerError{Code: FramerErrInvalidStreamID, Reason: "RST_STREAM frame with stream id 0"}
	}
	w := wire.NewWriter()
	appendFrameHeader(w, 4, FrameTypeRSTStream, 0, f.StreamID)
	w.WriteUint32(uint32(f.ErrCode))
	return w.Take(), nil
}

// SerializeSettings serializes a SETTINGS frame. An ACK must carry no
// settings.
func (s *Serializer) SerializeSettings(f *SettingsFrame) ([]byte, error) {
	if f.Ack && len(f.Settings) > 0 {
		return nil, FramerError{Code: FramerErrInvalidControlFrame, Reason: "SETTINGS ACK with settings"}
	}
	var flags Flag
	if f.Ack {
		flags |= FlagSettingsAck
	}
	w := wire.NewWriter()
	appendFrameHeader(w, uint32(len(f.Settings)*6), FrameTypeSettings, flags, 0)
	for _, setting := range f.Settings {
		w.WriteUint16(uint16(setting.ID))
		w.WriteUint32(setting.Value)
	}
	return w.Take(), nil
}

// SerializePushPromise HPACK-encodes the header list and serializes it as
// one PUSH_PROMISE frame plus CONTINUATION frames as needed.
func (s *Serializer) SerializePushPromise(f *PushPromiseFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, FramerError{Code: FramerErrInvalidStreamID, Reason: "PUSH_PROMISE frame with stream id 0"}
	}

	var flags Flag
	fixed := uint32(4)
	if f.PadLength > 0 {
		flags |= FlagPushPromisePadded
		fixed += 1 + uint32(f.PadLength)
	}
	if fixed > s.maxPayloadSize {
		return nil, FramerError{Code: FramerErrInvalidPadding, Reason: "padding leaves no room for payload"}
	}

	hb := wire.NewWriter()
	hb.WriteBytes(s.enc.EncodeHeaderList(f.Headers))

	frag := hb.TakeFirst(int(s.maxPayloadSize - fixed))
	if hb.Len() == 0 {
		flags |= FlagPushPromiseEndHeaders
	}

	w := wire.NewWriter()
	appendFrameHeader(w, fixed+uint32(len(frag)), FrameTypePushPromise, flags, f.StreamID)
	if f.PadLength > 0 {
		w.WriteUint8(f.PadLength)
	}
	w.WriteUint31(f.PromisedStreamID)
	w.WriteBytes(frag)
	appendPadding(w, f.PadLength)

	s.appendContinuations(w, f.StreamID, hb)
	return w.Take(), nil
}

// SerializePing serializes a PING frame.
func (s *Serializer) SerializePing(f *PingFrame) ([]byte, error) {
	var flags Flag
	if f.Ack {
		flags |= FlagPingAck
	}
	w := wire.NewWriter()
	appendFrameHeader(w, 8, FrameTypePing, flags, 0)
	w.WriteBytes(f.Data[:])
	return w.Take(), nil
}

// SerializeGoAway serializes a GOAWAY frame.
func (s *Serializer) SerializeGoAway(f *GoAwayFrame) ([]byte, error) {
	w := wire.NewWriter()
	appendFrameHeader(w, uint32(8+len(f.DebugData)), FrameTypeGoAway, 0, 0)
	w.WriteUint31(f.LastStreamID)
	w.WriteUint32(uint32(f.ErrCode))
	w.WriteBytes(f.DebugData)
	return w.Take(), nil
}

// SerializeWindowUpdate serializes a WINDOW_UPDATE frame. A zero increment
// is invalid on the wire.
func (s *Serializer) SerializeWindowUpdate(f *WindowUpdateFrame) ([]byte, error) {
	if f.Increment == 0 {
		return nil, FramerError{Code: FramerErrInvalidControlFrame, Reason: "WINDOW_UPDATE with increment 0"}
	}
	w := wire.NewWriter()
	appendFrameHeader(w, 4, FrameTypeWindowUpdate, 0, f.StreamID)
	w.WriteUint31(f.Increment)
	return w.Take(), nil
}

// SerializeContinuation serializes a standalone CONTINUATION frame carrying
// an already-encoded header block fragment.
func (s *Serializer) SerializeContinuation(f *ContinuationFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, FramerError{Code: FramerErrInvalidStreamID, Reason: "CONTINUATION frame with stream id 0"}
	}
	if uint32(len(f.Fragment)) > s.maxPayloadSize {
		return nil, FramerError{Code: FramerErrOversizedPayload, Reason: "CONTINUATION fragment exceeds maximum frame size"}
	}
	var flags Flag
	if f.EndHeaders {
		flags |= FlagContinuationEndHeaders
	}
	w := wire.NewWriter()
	appendFrameHeader(w, uint32(len(f.Fragment)), FrameTypeContinuation, flags, f.StreamID)
	w.WriteBytes(f.Fragment)
	return w.Take(), nil
}

// SerializeAltSvc serializes an ALTSVC frame. The origin is length-prefixed;
// the field value runs to the end of the payload.
func (s *Serializer) SerializeAltSvc(f *AltSvcFrame) ([]byte, error) {
	length := uint32(2 + len(f.Origin) + len(f.FieldValue))
	if length > s.maxPayloadSize {
		return nil, FramerError{Code: FramerErrOversizedPayload, Reason: "ALTSVC payload exceeds maximum frame size"}
	}
	w := wire.NewWriter()
	appendFrameHeader(w, length, FrameTypeAltSvc, 0, f.StreamID)
	w.WriteUint16(uint16(len(f.Origin)))
	w.WriteBytes([]byte(f.Origin))
	w.WriteBytes([]byte(f.FieldValue))
	return w.Take(), nil
}

// SerializeUnknown serializes an extension frame verbatim.
func (s *Serializer) SerializeUnknown(f *UnknownFrame) ([]byte, error) {
	if uint32(len(f.Payload)) > s.maxPayloadSize {
		return nil, FramerError{Code: FramerErrOversizedPayload, Reason: "payload exceeds maximum frame size"}
	}
	w := wire.NewWriter()
	appendFrameHeader(w, uint32(len(f.Payload)), f.FrameType, f.Flags, f.StreamID)
	w.WriteBytes(f.Payload)
	return w.Take(), nil
}
