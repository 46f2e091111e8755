// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "unicode/utf8"

// encodeFrameBytes masks (if role requires it) and serializes a single
// complete frame: header plus payload. Shared by Sender.writeFrame for
// caller-initiated frames and by Receiver for automatic Pong/echoed-Close
// replies, so both paths apply the same masking-by-role rule.
func encodeFrameBytes(h Header, data []byte, role Role) []byte {
	if maskRequired(role) {
		h.Masked = true
		h.Key = newMaskKey()
	}
	h.Length = uint64(len(data))

	buf, err := EncodeHeader(h, make([]byte, 0, 14+len(data)))
	if err != nil {
		// h is built entirely from this package's own constants for
		// control frames with payload <= 125 bytes; this would mean a
		// bug in this package, not a caller error.
		panic("websocket: internal: " + err.Error())
	}

	if h.Masked {
		masked := append([]byte(nil), data...)
		maskBytes(h.Key, 0, masked)
		return append(buf, masked...)
	}
	return append(buf, data...)
}

func decodeCloseBody(payload []byte) (code int, reason string, err error) {
	if len(payload) == 0 {
		return 0, "", nil
	}
	if len(payload) == 1 {
		return 0, "", ErrInvalidCloseCode
	}
	code = int(payload[0])<<8 | int(payload[1])
	reason = string(payload[2:])
	if !validCloseCode(code) {
		return 0, "", ErrInvalidCloseCode
	}
	if !utf8.ValidString(reason) {
		return 0, "", ErrInvalidUTF8
	}
	return code, reason, nil
}

// codeOrNoStatus maps the absence of a status code on a received Close
// frame to CloseNoStatusReceived, the synthetic code RFC 6455 section 7.4
// reserves for exactly this situation (a code that must never appear on
// the wire but is useful for the caller to branch on).
func codeOrNoStatus(code int) int {
	if code == 0 {
		return CloseNoStatusReceived
	}
	return code
}
