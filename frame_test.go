// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	tests := []Header{
		{Final: true, OpCode: OpText, Length: 5},
		{Final: true, OpCode: OpBinary, Length: 0},
		{Final: false, OpCode: OpBinary, Length: 125},
		{Final: true, OpCode: OpBinary, Length: 126},
		{Final: true, OpCode: OpBinary, Length: 65535},
		{Final: true, OpCode: OpBinary, Length: 65536},
		{Final: true, OpCode: OpClose, Length: 2},
		{Final: true, OpCode: OpPing, Length: 0},
		{Final: true, OpCode: OpPong, Length: 0},
		{Final: true, RSV1: true, OpCode: OpText, Length: 10},
		{Final: true, OpCode: OpText, Length: 5, Masked: true, Key: [4]byte{1, 2, 3, 4}},
	}

	for _, h := range tests {
		encoded, err := EncodeHeader(h, nil)
		if err != nil {
			t.Fatalf("EncodeHeader(%+v): %v", h, err)
		}

		claimed := h.rsv()
		got, n, err := DecodeHeader(encoded, claimed)
		if err != nil {
			t.Fatalf("DecodeHeader(%+v): %v", h, err)
		}
		if n != len(encoded) {
			t.Fatalf("DecodeHeader(%+v) consumed %d bytes, want %d", h, n, len(encoded))
		}
		if got != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestDecodeHeaderNeedsMoreBytes(t *testing.T) {
	full, err := EncodeHeader(Header{Final: true, OpCode: OpBinary, Length: 70000}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(full); n++ {
		h, consumed, err := DecodeHeader(full[:n], 0)
		if err != nil {
			t.Fatalf("DecodeHeader(%d bytes): unexpected error %v", n, err)
		}
		if consumed != 0 || h != (Header{}) {
			t.Fatalf("DecodeHeader(%d bytes) = %+v, %d, want zero Header, 0", n, h, consumed)
		}
	}
}

func TestDecodeHeaderRejectsNonMinimalLength(t *testing.T) {
	// 16-bit length form encoding a value that fits in 7 bits.
	buf := []byte{finBit | byte(OpBinary), len16Marker, 0x00, 0x05}
	if _, _, err := DecodeHeader(buf, 0); err != ErrNonMinimalLength {
		t.Fatalf("16-bit non-minimal length: err = %v, want ErrNonMinimalLength", err)
	}

	// 64-bit length form encoding a value that fits in 16 bits.
	buf64 := []byte{finBit | byte(OpBinary), len64Marker, 0, 0, 0, 0, 0, 0, 0x01, 0x00}
	if _, _, err := DecodeHeader(buf64, 0); err != ErrNonMinimalLength {
		t.Fatalf("64-bit non-minimal length: err = %v, want ErrNonMinimalLength", err)
	}
}

func TestDecodeHeaderRejectsReservedBits(t *testing.T) {
	buf := []byte{finBit | rsv1Bit | byte(OpText), 0x00}
	if _, _, err := DecodeHeader(buf, 0); err != ErrReservedBitSet {
		t.Fatalf("err = %v, want ErrReservedBitSet", err)
	}
	// Claiming RSV1 (as an extension would) permits it.
	if _, _, err := DecodeHeader(buf, 1); err != nil {
		t.Fatalf("RSV1 claimed: err = %v, want nil", err)
	}
}

func TestDecodeHeaderRejectsUnknownOpcode(t *testing.T) {
	buf := []byte{finBit | 0x3, 0x00}
	if _, _, err := DecodeHeader(buf, 0); err != ErrUnknownOpcode {
		t.Fatalf("err = %v, want ErrUnknownOpcode", err)
	}
}

func TestControlFrameInvariants(t *testing.T) {
	// Fragmented control frame: Final=false.
	if _, err := EncodeHeader(Header{Final: false, OpCode: OpPing}, nil); err != ErrInvalidControlFrame {
		t.Fatalf("fragmented ping: err = %v, want ErrInvalidControlFrame", err)
	}
	// Oversized control frame payload.
	if _, err := EncodeHeader(Header{Final: true, OpCode: OpClose, Length: 126}, nil); err != ErrInvalidControlFrame {
		t.Fatalf("oversized close: err = %v, want ErrInvalidControlFrame", err)
	}

	buf := []byte{byte(OpPing), 0x00} // Final not set.
	if _, _, err := DecodeHeader(buf, 0); err != ErrInvalidControlFrame {
		t.Fatalf("decode fragmented ping: err = %v, want ErrInvalidControlFrame", err)
	}
}

func TestOpCodeString(t *testing.T) {
	cases := map[OpCode]string{
		OpContinuation: "continuation",
		OpText:         "text",
		OpBinary:       "binary",
		OpClose:        "close",
		OpPing:         "ping",
		OpPong:         "pong",
		OpCode(0x3):    "reserved",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("OpCode(%#x).String() = %q, want %q", byte(op), got, want)
		}
	}
}

func TestDecodeHeaderMaskedKey(t *testing.T) {
	key := [4]byte{0xde, 0xad, 0xbe, 0xef}
	encoded, err := EncodeHeader(Header{Final: true, OpCode: OpBinary, Length: 3, Masked: true, Key: key}, nil)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte{1, 2, 3}
	full := append(encoded, payload...)

	got, n, err := DecodeHeader(full, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != key {
		t.Fatalf("Key = %v, want %v", got.Key, key)
	}
	if !bytes.Equal(full[n:], payload) {
		t.Fatalf("remaining bytes after header = %v, want payload %v", full[n:], payload)
	}
}
