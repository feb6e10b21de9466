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

import "fmt"

// ErrCode represents an HTTP/2 Error Code. Error codes are 32-bit fields
// that are used in [RST_STREAM] and [GOAWAY] frames to convey the reasons for
// the stream or connection error. See [HTTP/2 Error Code] for definitions of
// each of the following error codes.
//
// [HTTP/2 Error Code]: https://httpwg.org/specs/rfc7540.html#ErrorCodes
// [RST_STREAM]: https://httpwg.org/specs/rfc7540.html#RST_STREAM
// [GOAWAY]: https://httpwg.org/specs/rfc7540.html#GOAWAY
type ErrCode uint32

// Error Codes defined by the HTTP/2 Spec.
const (
	ErrCodeNoError            ErrCode = 0x0
	ErrCodeProtocol           ErrCode = 0x1
	ErrCodeInternal           ErrCode = 0x2
	ErrCodeFlowControl        ErrCode = 0x3
	ErrCodeSettingsTimeout    ErrCode = 0x4
	ErrCodeStreamClosed       ErrCode = 0x5
	ErrCodeFrameSize          ErrCode = 0x6
	ErrCodeRefusedStream      ErrCode = 0x7
	ErrCodeCancel             ErrCode = 0x8
	ErrCodeCompression        ErrCode = 0x9
	ErrCodeConnect            ErrCode = 0xa
	ErrCodeEnhanceYourCalm    ErrCode = 0xb
	ErrCodeInadequateSecurity ErrCode = 0xc
	ErrCodeHTTP11Required     ErrCode = 0xd
)

var errorCodeNames = map[ErrCode]string{
	ErrCodeNoError:            "NO_ERROR",
	ErrCodeProtocol:           "PROTOCOL_ERROR",
	ErrCodeInternal:           "INTERNAL_ERROR",
	ErrCodeFlowControl:        "FLOW_CONTROL_ERROR",
	ErrCodeSettingsTimeout:    "SETTINGS_TIMEOUT",
	ErrCodeStreamClosed:       "STREAM_CLOSED",
	ErrCodeFrameSize:          "FRAME_SIZE_ERROR",
	ErrCodeRefusedStream:      "REFUSED_STREAM",
	ErrCodeCancel:             "CANCEL",
	ErrCodeCompression:        "COMPRESSION_ERROR",
	ErrCodeConnect:            "CONNECT_ERROR",
	ErrCodeEnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	ErrCodeInadequateSecurity: "INADEQUATE_SECURITY",
	ErrCodeHTTP11Required:     "HTTP_1_1_REQUIRED",
}

func (err ErrCode) String() string {
	if v, ok := errorCodeNames[err]; ok {
		return v
	}
	return fmt.Sprintf("unknown error code %#x", uint32(err))
}

// FramerErrorCode identifies the reason the frame decoder entered its
// terminal error state.
type FramerErrorCode int

const (
	// FramerErrInvalidStreamID means a stream-scoped frame carried stream
	// id zero, or a connection-scoped frame carried a nonzero stream id.
	FramerErrInvalidStreamID FramerErrorCode = iota
	// FramerErrOversizedPayload means the declared payload length exceeded
	// the negotiated maximum frame size.
	FramerErrOversizedPayload
	// FramerErrInvalidPadding means the declared pad length exceeded the
	// remaining payload.
	FramerErrInvalidPadding
	// FramerErrInvalidControlFrameSize means a fixed-size control frame
	// declared the wrong payload length.
	FramerErrInvalidControlFrameSize
	// FramerErrInvalidControlFrame means a control frame payload was
	// malformed in a way other than its size, e.g. SETTINGS ACK with a
	// payload or a zero WINDOW_UPDATE increment.
	FramerErrInvalidControlFrame
	// FramerErrUnexpectedFrame means a protocol sequencing violation,
	// e.g. a CONTINUATION with no header block in progress or a
	// non-CONTINUATION frame while one is.
	FramerErrUnexpectedFrame
	// FramerErrInternal means the decoder reached an impossible state.
	FramerErrInternal
)

var framerErrorCodeNames = map[FramerErrorCode]string{
	FramerErrInvalidStreamID:         "INVALID_STREAM_ID",
	FramerErrOversizedPayload:        "OVERSIZED_PAYLOAD",
	FramerErrInvalidPadding:          "INVALID_PADDING",
	FramerErrInvalidControlFrameSize: "INVALID_CONTROL_FRAME_SIZE",
	FramerErrInvalidControlFrame:     "INVALID_CONTROL_FRAME",
	FramerErrUnexpectedFrame:         "UNEXPECTED_FRAME",
	FramerErrInternal:                "INTERNAL_FRAMER_ERROR",
}

func (c FramerErrorCode) String() string {
	if v, ok := framerErrorCodeNames[c]; ok {
		return v
	}
	return fmt.Sprintf("unknown framer error code %d", int(c))
}

// FramerError is a fatal framing error. It terminates processing of the
// logical byte stream; the usual connection-level response is a GOAWAY
// carrying HTTP2ErrCode().
type FramerError struct {
	Code   FramerErrorCode
	Reason string
}

func (e FramerError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("framing: %v", e.Code)
	}
	return fmt.Sprintf("framing: %v: %s", e.Code, e.Reason)
}

// HTTP2ErrCode maps the framing error onto the wire-level error code to
// convey in a GOAWAY frame.
func (e FramerError) HTTP2ErrCode() ErrCode {
	switch e.Code {
	case FramerErrOversizedPayload, FramerErrInvalidControlFrameSize:
		return ErrCodeFrameSize
	case FramerErrInternal:
		return ErrCodeInternal
	default:
		return ErrCodeProtocol
	}
}
