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
	"google.golang.org/grpc/grpclog"
	"google.golang.org/grpc/mem"

	"github.com/klzgrad/h2codec/hpack"
	"github.com/klzgrad/h2codec/internal/wire"
)

var logger = grpclog.Component("framing")

// Config configures a Decoder. Zero values select the RFC 7540 defaults.
type Config struct {
	// MaxFramePayloadSize is the largest frame payload accepted
	// (SETTINGS_MAX_FRAME_SIZE for the receiving direction). Default 16384.
	MaxFramePayloadSize uint32
	// MaxHeaderTableSize is the ceiling for the HPACK dynamic table
	// (SETTINGS_HEADER_TABLE_SIZE). Default 4096.
	MaxHeaderTableSize uint32
	// MaxDecodeBufferSize caps a single header block fragment. Default 32KiB.
	MaxDecodeBufferSize uint32
	// MaxHeaderBlockBytes caps the cumulative compressed size of one header
	// block across CONTINUATION frames. Zero means unlimited.
	MaxHeaderBlockBytes uint64
	// ProcessSingleFramePerCall makes ProcessInput return after at most one
	// complete frame, leaving the rest of the input unconsumed.
	ProcessSingleFramePerCall bool
	// BufferPool supplies the payload accumulation buffers. Defaults to
	// mem.DefaultBufferPool().
	BufferPool mem.BufferPool
}

type decoderState int

const (
	stateReadingCommonHeader decoderState = iota
	stateReadPadLength
	stateReadFixedFields
	stateHeaderBlockFragment
	stateForwardPayload
	stateConsumePadding
	stateError
)

var decoderStateNames = map[decoderState]string{
	stateReadingCommonHeader: "READING_COMMON_HEADER",
	stateReadPadLength:       "READ_PAD_LENGTH",
	stateReadFixedFields:     "READ_FIXED_FIELDS",
	stateHeaderBlockFragment: "HEADER_BLOCK_FRAGMENT",
	stateForwardPayload:      "FORWARD_PAYLOAD",
	stateConsumePadding:      "CONSUME_PADDING",
	stateError:               "ERROR",
}

func (s decoderState) String() string {
	if v, ok := decoderStateNames[s]; ok {
		return v
	}
	return "UNKNOWN"
}

// Decoder is an incremental HTTP/2 frame decoder. Feed it the connection's
// byte stream in arbitrary chunks with ProcessInput; it delivers complete
// frames and decoded header fields through the Visitor. The callback
// sequence for a given byte stream does not depend on how the stream was
// chunked.
//
// The first error pins the decoder: OnError fires once, and further input
// is not consumed until Reset. A Decoder is not safe for concurrent use.
type Decoder struct {
	cfg     Config
	visitor Visitor
	unknown UnknownFrameHandler
	pool    mem.BufferPool
	hdec    *hpack.Decoder

	state decoderState
	err   error

	hdrBuf [FrameHeaderLen]byte
	hdrLen int
	hdr    FrameHeader

	// remaining counts undelivered payload bytes of the current frame,
	// padding included.
	remaining uint32
	padLen    uint32
	fixedBuf  []byte
	fixedNeed int

	payload    *[]byte
	payloadLen int

	inHeaderBlock bool
	blockStreamID uint32

	completedFrame bool
}

// NewDecoder returns a Decoder delivering to v.
func NewDecoder(cfg Config, v Visitor) *Decoder {
	if cfg.MaxFramePayloadSize == 0 {
		cfg.MaxFramePayloadSize = defaultMaxFramePayloadSize
	}
	if cfg.MaxFramePayloadSize > maxAllowedFramePayloadSize {
		cfg.MaxFramePayloadSize = maxAllowedFramePayloadSize
	}
	if cfg.BufferPool == nil {
		cfg.BufferPool = mem.DefaultBufferPool()
	}
	d := &Decoder{
		cfg:     cfg,
		visitor: v,
		pool:    cfg.BufferPool,
	}
	d.hdec = d.newHpackDecoder()
	return d
}

func (d *Decoder) newHpackDecoder() *hpack.Decoder {
	return hpack.NewDecoder(hpack.DecoderOptions{
		MaxTableSize:        d.cfg.MaxHeaderTableSize,
		MaxDecodeBufferSize: d.cfg.MaxDecodeBufferSize,
		MaxHeaderBlockBytes: d.cfg.MaxHeaderBlockBytes,
	}, func(f hpack.HeaderField) {
		d.visitor.OnHeader(f)
	})
}

// SetUnknownFrameHandler installs the extension hook offered frames of
// unrecognized types.
func (d *Decoder) SetUnknownFrameHandler(h UnknownFrameHandler) {
	d.unknown = h
}

// SetMaxHeaderTableSize applies a new negotiated HPACK table ceiling, as
// after sending SETTINGS_HEADER_TABLE_SIZE.
func (d *Decoder) SetMaxHeaderTableSize(max uint32) {
	d.hdec.SetMaxTableSize(max)
}

// Err returns the terminal error, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Reset discards all per-connection decoding state, including the HPACK
// dynamic table, and makes the decoder ready for a fresh byte stream.
func (d *Decoder) Reset() {
	d.releasePayload()
	d.state = stateReadingCommonHeader
	d.err = nil
	d.hdrLen = 0
	d.remaining = 0
	d.padLen = 0
	d.fixedBuf = nil
	d.fixedNeed = 0
	d.inHeaderBlock = false
	d.completedFrame = false
	d.hdec = d.newHpackDecoder()
}

// ProcessInput consumes as much of in as the current state allows and
// returns the number of bytes consumed. After an error it consumes nothing.
// With ProcessSingleFramePerCall set it stops after one complete frame.
func (d *Decoder) ProcessInput(in []byte) int {
	consumed := 0
	for d.state != stateError && consumed < len(in) {
		d.completedFrame = false
		consumed += d.step(in[consumed:])
		if d.completedFrame && d.cfg.ProcessSingleFramePerCall {
			break
		}
	}
	return consumed
}

// step consumes at least one byte of in, which is nonempty.
func (d *Decoder) step(in []byte) int {
	switch d.state {
	case stateReadingCommonHeader:
		n := copy(d.hdrBuf[d.hdrLen:], in)
		d.hdrLen += n
		if d.hdrLen == FrameHeaderLen {
			d.onFrameHeader()
		}
		return n

	case stateReadPadLength:
		d.padLen = uint32(in[0])
		d.remaining--
		if d.padLen+uint32(d.fixedNeed) > d.remaining {
			d.fail(FramerErrInvalidPadding, "pad length exceeds remaining payload")
			return 1
		}
		d.enterFixedFields()
		return 1

	case stateReadFixedFields:
		n := min(d.fixedNeed-len(d.fixedBuf), len(in))
		d.fixedBuf = append(d.fixedBuf, in[:n]...)
		d.remaining -= uint32(n)
		if len(d.fixedBuf) == d.fixedNeed {
			d.onFixedFields()
		}
		return n

	case stateHeaderBlockFragment:
		n := min(int(d.remaining-d.padLen), len(in))
		if err := d.hdec.DecodeFragment(in[:n]); err != nil {
			d.failErr(err)
			return n
		}
		d.remaining -= uint32(n)
		if d.remaining == d.padLen {
			d.state = stateConsumePadding
			d.maybeFinishPadding()
		}
		return n

	case stateForwardPayload:
		n := min(int(d.remaining-d.padLen), len(in))
		copy((*d.payload)[d.payloadLen:], in[:n])
		d.payloadLen += n
		d.remaining -= uint32(n)
		if d.remaining == d.padLen {
			d.state = stateConsumePadding
			d.maybeFinishPadding()
		}
		return n

	case stateConsumePadding:
		n := min(int(d.remaining), len(in))
		d.remaining -= uint32(n)
		d.maybeFinishPadding()
		return n
	}

	d.fail(FramerErrInternal, "step in unexpected state")
	return 0
}

func (d *Decoder) fail(code FramerErrorCode, reason string) {
	d.failErr(FramerError{Code: code, Reason: reason})
}

func (d *Decoder) failErr(err error) {
	if logger.V(2) {
		logger.Infof("entering ERROR state in %v: %v", d.state, err)
	}
	d.err = err
	d.state = stateError
	d.releasePayload()
	d.visitor.OnError(err)
}

func (d *Decoder) releasePayload() {
	if d.payload != nil {
		d.pool.Put(d.payload)
		d.payload = nil
	}
	d.payloadLen = 0
}

// streamScoped reports whether frames of type t must carry a nonzero
// stream id. The inverse set must carry stream id zero, except
// WINDOW_UPDATE and ALTSVC which allow both.
func streamScoped(t FrameType) bool {
	switch t {
	case FrameTypeData, FrameTypeHeaders, FrameTypePriority, FrameTypeRSTStream,
		FrameTypePushPromise, FrameTypeContinuation:
		return true
	}
	return false
}

func connScoped(t FrameType) bool {
	switch t {
	case FrameTypeSettings, FrameTypePing, FrameTypeGoAway:
		return true
	}
	return false
}

// onFrameHeader validates the just-completed frame header and routes the
// decoder into the right payload phase.
func (d *Decoder) onFrameHeader() {
	d.hdr = FrameHeader{
		Length:   uint32(d.hdrBuf[0])<<16 | uint32(d.hdrBuf[1])<<8 | uint32(d.hdrBuf[2]),
		Type:     FrameType(d.hdrBuf[3]),
		Flags:    Flag(d.hdrBuf[4]),
		StreamID: uint32(d.hdrBuf[5]&0x7f)<<24 | uint32(d.hdrBuf[6])<<16 | uint32(d.hdrBuf[7])<<8 | uint32(d.hdrBuf[8]),
	}
	hdr := d.hdr
	if logger.V(2) {
		logger.Infof("frame header: type=%v flags=%#x stream=%d length=%d", hdr.Type, hdr.Flags, hdr.StreamID, hdr.Length)
	}

	if hdr.Length > d.cfg.MaxFramePayloadSize {
		d.fail(FramerErrOversizedPayload, "payload length exceeds maximum frame size")
		return
	}

	if d.inHeaderBlock {
		if hdr.Type != FrameTypeContinuation {
			d.fail(FramerErrUnexpectedFrame, "expected CONTINUATION frame")
			return
		}
		if hdr.StreamID != d.blockStreamID {
			d.fail(FramerErrUnexpectedFrame, "CONTINUATION frame on wrong stream")
			return
		}
	} else if hdr.Type == FrameTypeContinuation {
		d.fail(FramerErrUnexpectedFrame, "CONTINUATION frame with no header block in progress")
		return
	}

	if streamScoped(hdr.Type) && hdr.StreamID == 0 {
		d.fail(FramerErrInvalidStreamID, hdr.Type.String()+" frame with stream id 0")
		return
	}
	if connScoped(hdr.Type) && hdr.StreamID != 0 {
		d.fail(FramerErrInvalidStreamID, hdr.Type.String()+" frame with nonzero stream id")
		return
	}

	switch hdr.Type {
	case FrameTypePriority:
		if hdr.Length != 5 {
			d.fail(FramerErrInvalidControlFrameSize, "PRIORITY payload must be 5 bytes")
			return
		}
	case FrameTypeRSTStream:
		if hdr.Length != 4 {
			d.fail(FramerErrInvalidControlFrameSize, "RST_STREAM payload must be 4 bytes")
			return
		}
	case FrameTypeSettings:
		if hdr.Flags.IsSet(FlagSettingsAck) && hdr.Length != 0 {
			d.fail(FramerErrInvalidControlFrameSize, "SETTINGS ACK with payload")
			return
		}
		if hdr.Length%6 != 0 {
			d.fail(FramerErrInvalidControlFrameSize, "SETTINGS payload not a multiple of 6")
			return
		}
	case FrameTypePushPromise:
		if hdr.Length < 4 {
			d.fail(FramerErrInvalidControlFrameSize, "PUSH_PROMISE payload too short")
			return
		}
	case FrameTypePing:
		if hdr.Length != 8 {
			d.fail(FramerErrInvalidControlFrameSize, "PING payload must be 8 bytes")
			return
		}
	case FrameTypeGoAway:
		if hdr.Length < 8 {
			d.fail(FramerErrInvalidControlFrameSize, "GOAWAY payload too short")
			return
		}
	case FrameTypeWindowUpdate:
		if hdr.Length != 4 {
			d.fail(FramerErrInvalidControlFrameSize, "WINDOW_UPDATE payload must be 4 bytes")
			return
		}
	case FrameTypeAltSvc:
		if hdr.Length < 2 {
			d.fail(FramerErrInvalidControlFrameSize, "ALTSVC payload too short")
			return
		}
	}

	d.remaining = hdr.Length
	d.padLen = 0
	d.fixedNeed = 0
	d.fixedBuf = nil

	var padded bool
	switch hdr.Type {
	case FrameTypeData:
		padded = hdr.Flags.IsSet(FlagDataPadded)
	case FrameTypeHeaders:
		padded = hdr.Flags.IsSet(FlagHeadersPadded)
		if hdr.Flags.IsSet(FlagHeadersPriority) {
			d.fixedNeed = 5
		}
	case FrameTypePushPromise:
		padded = hdr.Flags.IsSet(FlagPushPromisePadded)
		d.fixedNeed = 4
	}

	if padded {
		if d.remaining == 0 {
			d.fail(FramerErrInvalidPadding, "PADDED flag with empty payload")
			return
		}
		d.state = stateReadPadLength
		return
	}
	if uint32(d.fixedNeed) > d.remaining {
		d.fail(FramerErrInvalidControlFrameSize, hdr.Type.String()+" payload shorter than its fixed fields")
		return
	}
	d.enterFixedFields()
}

func (d *Decoder) enterFixedFields() {
	if d.fixedNeed > 0 {
		d.state = stateReadFixedFields
		d.fixedBuf = make([]byte, 0, d.fixedNeed)
		return
	}
	d.onFixedFields()
}

func parsePriority(b []byte) PriorityParam {
	word := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return PriorityParam{
		StreamDependency: word & 0x7fffffff,
		Exclusive:        word>>31 != 0,
		Weight:           uint16(b[4]) + 1,
	}
}

// onFixedFields runs once per frame when the pad length byte and the
// type-specific fixed fields have been read, and routes the rest of the
// payload.
func (d *Decoder) onFixedFields() {
	switch d.hdr.Type {
	case FrameTypeHeaders:
		var prio *PriorityParam
		if d.fixedNeed == 5 {
			p := parsePriority(d.fixedBuf)
			prio = &p
		}
		d.visitor.OnHeaders(d.hdr.StreamID, d.hdr.Flags.IsSet(FlagHeadersEndStream), prio)
		d.startHeaderBlock()

	case FrameTypePushPromise:
		promised := uint32(d.fixedBuf[0]&0x7f)<<24 | uint32(d.fixedBuf[1])<<16 | uint32(d.fixedBuf[2])<<8 | uint32(d.fixedBuf[3])
		d.visitor.OnPushPromise(d.hdr.StreamID, promised)
		d.startHeaderBlock()

	case FrameTypeContinuation:
		d.visitor.OnContinuation(d.hdr.StreamID, d.hdr.Flags.IsSet(FlagContinuationEndHeaders))
		d.enterPayloadState(stateHeaderBlockFragment)

	default:
		d.payload = d.pool.Get(int(d.remaining - d.padLen))
		d.payloadLen = 0
		d.enterPayloadState(stateForwardPayload)
	}
}

// startHeaderBlock opens a new logical header block on the current frame's
// stream.
func (d *Decoder) startHeaderBlock() {
	d.inHeaderBlock = true
	d.blockStreamID = d.hdr.StreamID
	d.visitor.OnHeaderBlockStart(d.hdr.StreamID)
	if err := d.hdec.StartBlock(); err != nil {
		d.failErr(err)
		return
	}
	d.enterPayloadState(stateHeaderBlockFragment)
}

// enterPayloadState moves into a payload-consuming state, completing
// zero-length phases eagerly so that empty frames finish without waiting
// for more input.
func (d *Decoder) enterPayloadState(s decoderState) {
	d.state = s
	if d.remaining == d.padLen {
		d.state = stateConsumePadding
		d.maybeFinishPadding()
	}
}

func (d *Decoder) maybeFinishPadding() {
	if d.remaining == 0 {
		d.finishFrame()
	}
}

// finishFrame fires the frame's visitor callback once its whole payload has
// been consumed, then rearms for the next frame header.
func (d *Decoder) finishFrame() {
	hdr := d.hdr
	switch hdr.Type {
	case FrameTypeData:
		buf := mem.NewBuffer(d.payload, d.pool)
		d.payload = nil
		d.payloadLen = 0
		d.visitor.OnData(hdr.StreamID, buf, hdr.Flags.IsSet(FlagDataEndStream))
		buf.Free()

	case FrameTypeHeaders, FrameTypePushPromise, FrameTypeContinuation:
		endHeaders := hdr.Flags.IsSet(FlagHeadersEndHeaders)
		if hdr.Type == FrameTypeContinuation {
			endHeaders = hdr.Flags.IsSet(FlagContinuationEndHeaders)
		} else if hdr.Type == FrameTypePushPromise {
			endHeaders = hdr.Flags.IsSet(FlagPushPromiseEndHeaders)
		}
		if endHeaders {
			if err := d.hdec.EndBlock(); err != nil {
				d.failErr(err)
				return
			}
			d.inHeaderBlock = false
			d.visitor.OnHeaderBlockEnd(d.blockStreamID)
		}

	case FrameTypePriority:
		d.visitor.OnPriority(hdr.StreamID, parsePriority(*d.payload))
		d.releasePayload()

	case FrameTypeRSTStream:
		r := wire.NewReader(*d.payload)
		code, _ := r.ReadUint32()
		d.visitor.OnRSTStream(hdr.StreamID, ErrCode(code))
		d.releasePayload()

	case FrameTypeSettings:
		if hdr.Flags.IsSet(FlagSettingsAck) {
			d.releasePayload()
			d.visitor.OnSettings(true, nil)
			break
		}
		r := wire.NewReader(*d.payload)
		settings := make([]Setting, 0, hdr.Length/6)
		for r.Remaining() >= 6 {
			id, _ := r.ReadUint16()
			value, _ := r.ReadUint32()
			settings = append(settings, Setting{ID: SettingID(id), Value: value})
		}
		d.releasePayload()
		d.visitor.OnSettings(false, settings)

	case FrameTypePing:
		var data [8]byte
		copy(data[:], *d.payload)
		d.releasePayload()
		d.visitor.OnPing(hdr.Flags.IsSet(FlagPingAck), data)

	case FrameTypeGoAway:
		r := wire.NewReader(*d.payload)
		last, _ := r.ReadUint31()
		code, _ := r.ReadUint32()
		debug, _ := r.ReadBytes(r.Remaining())
		d.visitor.OnGoAway(last, ErrCode(code), debug)
		d.releasePayload()

	case FrameTypeWindowUpdate:
		r := wire.NewReader(*d.payload)
		inc, _ := r.ReadUint31()
		d.releasePayload()
		if inc == 0 {
			d.fail(FramerErrInvalidControlFrame, "WINDOW_UPDATE with increment 0")
			return
		}
		d.visitor.OnWindowUpdate(hdr.StreamID, inc)

	case FrameTypeAltSvc:
		r := wire.NewReader(*d.payload)
		originLen, _ := r.ReadUint16()
		origin, ok := r.ReadBytes(int(originLen))
		if !ok {
			d.releasePayload()
			d.fail(FramerErrInvalidControlFrame, "ALTSVC origin length exceeds payload")
			return
		}
		fieldValue, _ := r.ReadBytes(r.Remaining())
		d.visitor.OnAltSvc(hdr.StreamID, string(origin), string(fieldValue))
		d.releasePayload()

	default:
		// Extension frame: offer it to the hook, consume it either way.
		if d.unknown != nil {
			d.unknown(hdr, (*d.payload)[:d.payloadLen])
		}
		d.releasePayload()
	}

	d.state = stateReadingCommonHeader
	d.hdrLen = 0
	d.completedFrame = true
}
