// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "bufio"

// Role identifies which side of the connection this package is driving.
// It governs masking direction (client-to-server frames are always masked,
// server-to-client frames never are) per RFC 6455 section 5.3.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// DefaultMaxMessageSize is the maximum total (post-decode) message size a
// Receiver accepts before closing with CloseMessageTooBig, unless
// overridden on the Builder.
const DefaultMaxMessageSize = 256 * 1024 * 1024

// defaultFragmentSize is the threshold above which Sender.SendText/
// SendBinary splits an outbound message into multiple frames. It is an
// internal performance knob; callers always see a single logical message.
const defaultFragmentSize = 32 * 1024

// Builder owns the transport and the extension set until Finish splits
// them into a Sender and a Receiver. It follows the usual option-struct
// pattern: zero-value fields get sane defaults, and the struct is only
// consumed (not retained) by the call that finalizes it.
type Builder struct {
	// Transport is the consumer-supplied byte stream. Required.
	Transport Transport

	// Reader, if non-nil, is used by the Receiver in place of a fresh
	// bufio.Reader over Transport. Set this to the *bufio.Reader a
	// ClientHandshake/ServerHandshake used to read the opening response/
	// request, so any bytes it buffered past the handshake headers (the
	// start of the first WebSocket frame, if the peer pipelined it) are
	// not lost.
	Reader *bufio.Reader

	// Role is RoleClient or RoleServer. Required; governs masking.
	Role Role

	// Extensions is the ordered list of negotiated extensions. Decode runs
	// in reverse of this order, encode runs forward, per RFC 7692 section
	// 5. Typically populated by a successful handshake.
	Extensions []Extension

	// MaxMessageSize caps total assembled (post-decode) message size. Zero
	// selects DefaultMaxMessageSize.
	MaxMessageSize int64

	// FragmentSize is the outbound fragmentation threshold in bytes. Zero
	// selects defaultFragmentSize. Negative disables fragmentation
	// entirely (every SendText/SendBinary call produces one frame).
	FragmentSize int

	// DisableUTF8Enforcement controls whether every delivered Text message
	// is validated as UTF-8 before delivery, closing with
	// CloseInvalidFramePayloadData otherwise. UTF-8 is enforced by default;
	// set this true to deliver Text payloads as-is instead.
	DisableUTF8Enforcement bool
}

// Finish validates the Builder's configuration, reserves RSV bits across
// the extension chain, and splits the transport into a Sender/Receiver
// pair that share it through a connLock.
func (b *Builder) Finish() (*Sender, *Receiver, error) {
	if b.Transport == nil {
		panic("websocket: Builder.Transport is nil")
	}

	var claimed byte
	for _, ext := range b.Extensions {
		var err error
		claimed, err = ext.ReserveRSV(claimed)
		if err != nil {
			return nil, nil, err
		}
	}

	// ReserveRSV threads header-byte masks (rsv1Bit..rsv3Bit); DecodeHeader
	// takes the bit0=RSV1 bitmap instead.
	claimedBitmap := Header{RSV1: claimed&rsv1Bit != 0, RSV2: claimed&rsv2Bit != 0, RSV3: claimed&rsv3Bit != 0}.rsv()

	maxSize := b.MaxMessageSize
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}

	fragmentSize := b.FragmentSize
	if fragmentSize == 0 {
		fragmentSize = defaultFragmentSize
	}

	state := &connState{}
	lock := newConnLock(b.Transport)

	br := b.Reader
	if br == nil {
		br = bufio.NewReader(b.Transport)
	}

	s := &Sender{
		lock:         lock,
		role:         b.Role,
		extensions:   b.Extensions,
		fragmentSize: fragmentSize,
		state:        state,
	}
	r := newReceiver(lock, br, b.Role, b.Extensions, claimedBitmap, maxSize, !b.DisableUTF8Enforcement, state)
	return s, r, nil
}
