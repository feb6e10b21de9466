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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/klzgrad/h2codec/hpack"
)

func TestSerializer_Data(t *testing.T) {
	s := NewSerializer(0, 0)
	got, err := s.SerializeData(&DataFrame{StreamID: 1, EndStream: true, Data: []byte("hi")})
	if err != nil {
		t.Fatalf("SerializeData(): %v", err)
	}
	want := []byte{0, 0, 2, byte(FrameTypeData), 0x1, 0, 0, 0, 1, 'h', 'i'}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SerializeData() mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializer_DataPadded(t *testing.T) {
	s := NewSerializer(0, 0)
	got, err := s.SerializeData(&DataFrame{StreamID: 1, EndStream: true, Data: []byte("hi"), PadLength: 2})
	if err != nil {
		t.Fatalf("SerializeData(): %v", err)
	}
	want := []byte{0, 0, 5, byte(FrameTypeData), 0x9, 0, 0, 0, 1, 2, 'h', 'i', 0, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SerializeData() mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializer_HeadersSingleFrame(t *testing.T) {
	s := NewSerializer(0, 0)
	got, err := s.SerializeHeaders(&HeadersFrame{
		StreamID: 7,
		Headers:  []hpack.HeaderField{{Name: ":method", Value: "GET"}},
	})
	if err != nil {
		t.Fatalf("SerializeHeaders(): %v", err)
	}
	// :method: GET is static table entry 2, so the block is the single
	// indexed byte 0x82.
	want := []byte{0, 0, 1, byte(FrameTypeHeaders), 0x4, 0, 0, 0, 7, 0x82}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SerializeHeaders() mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializer_HeadersPriorityAndPadding(t *testing.T) {
	s := NewSerializer(0, 0)
	got, err := s.SerializeHeaders(&HeadersFrame{
		StreamID:    7,
		Headers:     []hpack.HeaderField{{Name: ":method", Value: "GET"}},
		HasPriority: true,
		Priority:    PriorityParam{StreamDependency: 3, Weight: 10, Exclusive: true},
		PadLength:   1,
	})
	if err != nil {
		t.Fatalf("SerializeHeaders(): %v", err)
	}
	want := []byte{
		0, 0, 8, byte(FrameTypeHeaders), 0x2c, 0, 0, 0, 7,
		1,                // pad length
		0x80, 0, 0, 3, 9, // exclusive dependency on 3, weight 10 on the wire as 9
		0x82,             // header block
		0,                // padding
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SerializeHeaders() mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializer_HeadersContinuationSplit(t *testing.T) {
	s := NewSerializer(5, 0)
	s.HpackEncoder().DisableCompression()
	got, err := s.SerializeHeaders(&HeadersFrame{
		StreamID: 1,
		Headers:  []hpack.HeaderField{{Name: "a", Value: "bcdef"}},
	})
	if err != nil {
		t.Fatalf("SerializeHeaders(): %v", err)
	}
	// The uncompressed block is 9 bytes: 0x00, 1-byte name, 5-byte value.
	// With 5-byte payloads that is a HEADERS frame without END_HEADERS
	// followed by one CONTINUATION carrying it.
	want := []byte{
		0, 0, 5, byte(FrameTypeHeaders), 0, 0, 0, 0, 1,
		0x00, 0x01, 'a', 0x05, 'b',
		0, 0, 4, byte(FrameTypeContinuation), 0x4, 0, 0, 0, 1,
		'c', 'd', 'e', 'f',
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SerializeHeaders() mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializer_Priority(t *testing.T) {
	s := NewSerializer(0, 0)
	tests := []struct {
		name     string
		weight   uint16
		wantByte byte
	}{
		{"weight 1", 1, 0},
		{"weight 256", 256, 255},
		{"weight 0 clamps to 1", 0, 0},
		{"weight 300 clamps to 256", 300, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SerializePriority(&PriorityFrame{
				StreamID: 3,
				Priority: PriorityParam{StreamDependency: 1, Weight: tt.weight},
			})
			if err != nil {
				t.Fatalf("SerializePriority(): %v", err)
			}
			want := []byte{0, 0, 5, byte(FrameTypePriority), 0, 0, 0, 0, 3, 0, 0, 0, 1, tt.wantByte}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("SerializePriority() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializer_ControlFrames(t *testing.T) {
	s := NewSerializer(0, 0)
	tests := []struct {
		name  string
		frame Frame
		want  []byte
	}{
		{
			name:  "RST_STREAM",
			frame: &RSTStreamFrame{StreamID: 1, ErrCode: ErrCodeCancel},
			want:  []byte{0, 0, 4, byte(FrameTypeRSTStream), 0, 0, 0, 0, 1, 0, 0, 0, 8},
		},
		{
			name:  "SETTINGS",
			frame: &SettingsFrame{Settings: []Setting{{ID: SettingsMaxFrameSize, Value: 1 << 15}}},
			want:  []byte{0, 0, 6, byte(FrameTypeSettings), 0, 0, 0, 0, 0, 0, 5, 0, 0, 0x80, 0},
		},
		{
			name:  "SETTINGS ACK",
			frame: &SettingsFrame{Ack: true},
			want:  []byte{0, 0, 0, byte(FrameTypeSettings), 0x1, 0, 0, 0, 0},
		},
		{
			name:  "PING",
			frame: &PingFrame{Ack: true, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
			want:  []byte{0, 0, 8, byte(FrameTypePing), 0x1, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:  "GOAWAY",
			frame: &GoAwayFrame{LastStreamID: 5, ErrCode: ErrCodeProtocol, DebugData: []byte("bye")},
			want:  []byte{0, 0, 11, byte(FrameTypeGoAway), 0, 0, 0, 0, 0, 0, 0, 0, 5, 0, 0, 0, 1, 'b', 'y', 'e'},
		},
		{
			name:  "WINDOW_UPDATE",
			frame: &WindowUpdateFrame{StreamID: 1, Increment: 100},
			want:  []byte{0, 0, 4, byte(FrameTypeWindowUpdate), 0, 0, 0, 0, 1, 0, 0, 0, 100},
		},
		{
			name:  "CONTINUATION",
			frame: &ContinuationFrame{StreamID: 1, EndHeaders: true, Fragment: []byte{0x82}},
			want:  []byte{0, 0, 1, byte(FrameTypeContinuation), 0x4, 0, 0, 0, 1, 0x82},
		},
		{
			name:  "ALTSVC",
			frame: &AltSvcFrame{Origin: "ori", FieldValue: "h2=42"},
			want:  append([]byte{0, 0, 10, byte(FrameTypeAltSvc), 0, 0, 0, 0, 0, 0, 3}, []byte("orih2=42")...),
		},
		{
			name:  "unknown extension frame",
			frame: &UnknownFrame{FrameType: 0xf, Flags: 0x2, StreamID: 7, Payload: []byte{1, 2, 3}},
			want:  []byte{0, 0, 3, 0xf, 0x2, 0, 0, 0, 7, 1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Serialize(tt.frame)
			if err != nil {
				t.Fatalf("Serialize(): %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Serialize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializer_Errors(t *testing.T) {
	s := NewSerializer(16, 0)
	tests := []struct {
		name  string
		frame Frame
		want  FramerErrorCode
	}{
		{
			name:  "DATA on stream 0",
			frame: &DataFrame{StreamID: 0, Data: []byte("x")},
			want:  FramerErrInvalidStreamID,
		},
		{
			name:  "oversized DATA",
			frame: &DataFrame{StreamID: 1, Data: make([]byte, 17)},
			want:  FramerErrOversizedPayload,
		},
		{
			name:  "HEADERS on stream 0",
			frame: &HeadersFrame{StreamID: 0},
			want:  FramerErrInvalidStreamID,
		},
		{
			name:  "SETTINGS ACK with settings",
			frame: &SettingsFrame{Ack: true, Settings: []Setting{{ID: SettingsEnablePush, Value: 0}}},
			want:  FramerErrInvalidControlFrame,
		},
		{
			name:  "WINDOW_UPDATE zero increment",
			frame: &WindowUpdateFrame{StreamID: 1, Increment: 0},
			want:  FramerErrInvalidControlFrame,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Serialize(tt.frame)
			var fe FramerError
			if !errors.As(err, &fe) {
				t.Fatalf("Serialize() error = %v, want a FramerError", err)
			}
			if fe.Code != tt.want {
				t.Errorf("Serialize() error code = %v, want %v", fe.Code, tt.want)
			}
		})
	}
}

func TestFramerError_HTTP2ErrCode(t *testing.T) {
	tests := []struct {
		code FramerErrorCode
		want ErrCode
	}{
		{FramerErrOversizedPayload, ErrCodeFrameSize},
		{FramerErrInvalidControlFrameSize, ErrCodeFrameSize},
		{FramerErrInternal, ErrCodeInternal},
		{FramerErrInvalidStreamID, ErrCodeProtocol},
		{FramerErrUnexpectedFrame, ErrCodeProtocol},
	}
	for _, tt := range tests {
		if got := (FramerError{Code: tt.code}).HTTP2ErrCode(); got != tt.want {
			t.Errorf("HTTP2ErrCode(%v) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
