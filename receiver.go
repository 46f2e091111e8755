// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// IncomingKind distinguishes the two events Receiver.Receive can surface to
// a caller. Ping is never surfaced: both Receive and ReceiveData answer it
// automatically and keep looping.
type IncomingKind int

const (
	IncomingData IncomingKind = iota
	IncomingPong
)

// Incoming is the event Receiver.Receive appends/returns: either Len bytes
// of a Text or Binary message were appended to the caller's buffer, or a
// Pong with Payload arrived.
type Incoming struct {
	Kind    IncomingKind
	OpCode  OpCode
	Len     int
	Payload []byte
}

// Receiver parses inbound frames, assembles messages, applies inbound
// extensions, and answers Ping/Close control frames automatically. A
// Receiver is produced by Builder.Finish and shares its transport with a
// paired Sender through a connLock. Receive/ReceiveData expect a single
// concurrent caller, the same way a single goroutine owns reads from a
// plain net.Conn.
type Receiver struct {
	lock       *connLock
	br         *bufio.Reader
	role       Role
	extensions []Extension
	claimedRSV byte

	maxMessageSize int64
	enforceUTF8    bool

	state *connState

	assembling   bool
	assembleOp   OpCode
	assembleBuf  []byte
	assembleRSV1 bool
}

// newReceiver builds a Receiver reading from br. When an opening handshake
// ran over the same transport, br must be the *bufio.Reader that handshake
// used (rather than a fresh wrapper around t): the handshake's reader may
// already have buffered bytes belonging to the first WebSocket frame the
// peer sent, and a second, independent bufio.Reader would silently drop
// them.
func newReceiver(lock *connLock, br *bufio.Reader, role Role, extensions []Extension, claimedRSV byte, maxMessageSize int64, enforceUTF8 bool, state *connState) *Receiver {
	return &Receiver{
		lock:           lock,
		br:             br,
		role:           role,
		extensions:     extensions,
		claimedRSV:     claimedRSV,
		maxMessageSize: maxMessageSize,
		enforceUTF8:    enforceUTF8,
		state:          state,
	}
}

// Receive drives the transport until one complete event is available:
// Data (bytes appended to *out) or Pong. Incoming Pings are answered
// automatically and never returned.
func (r *Receiver) Receive(out *[]byte) (Incoming, error) {
	return r.receiveLoop(out, false)
}

// ReceiveData is Receive, except it also silently discards Pong frames
// instead of returning them, looping until a Data event or an error.
func (r *Receiver) ReceiveData(out *[]byte) (OpCode, error) {
	in, err := r.receiveLoop(out, true)
	if err != nil {
		return 0, err
	}
	return in.OpCode, nil
}

func (r *Receiver) receiveLoop(out *[]byte, swallowPong bool) (Incoming, error) {
	if r.state.isTerminal() {
		return Incoming{}, ErrClosed
	}
	for {
		h, err := r.readHeader()
		if err != nil {
			return r.handleReadError(err)
		}

		switch {
		case h.OpCode == OpPing:
			payload, err := r.readPayload(h)
			if err != nil {
				return r.handleReadError(err)
			}
			r.lock.enqueueOrWrite(encodeFrameBytes(Header{Final: true, OpCode: OpPong}, payload, r.role))

		case h.OpCode == OpPong:
			payload, err := r.readPayload(h)
			if err != nil {
				return r.handleReadError(err)
			}
			if !swallowPong {
				return Incoming{Kind: IncomingPong, Payload: payload}, nil
			}

		case h.OpCode == OpClose:
			payload, err := r.readPayload(h)
			if err != nil {
				return r.handleReadError(err)
			}
			return r.handleClose(payload)

		case h.OpCode == OpContinuation:
			if !r.assembling {
				return r.protocolViolation(ErrUnexpectedContinuation, CloseProtocolError)
			}
			if h.rsv() != 0 {
				return r.protocolViolation(ErrReservedBitSet, CloseProtocolError)
			}
			if uint64(len(r.assembleBuf))+h.Length > uint64(r.maxMessageSize) {
				return r.protocolViolation(ErrMessageTooLarge, CloseMessageTooBig)
			}
			payload, err := r.readPayload(h)
			if err != nil {
				return r.handleReadError(err)
			}
			r.assembleBuf = append(r.assembleBuf, payload...)
			if h.Final {
				return r.finalizeMessage(out)
			}

		case h.OpCode.IsData():
			if r.assembling {
				return r.protocolViolation(ErrInterruptedMessage, CloseProtocolError)
			}
			if h.Length > uint64(r.maxMessageSize) {
				return r.protocolViolation(ErrMessageTooLarge, CloseMessageTooBig)
			}
			payload, err := r.readPayload(h)
			if err != nil {
				return r.handleReadError(err)
			}
			r.assembleOp = h.OpCode
			r.assembleBuf = payload
			r.assembleRSV1 = h.RSV1
			if h.Final {
				return r.finalizeMessage(out)
			}
			r.assembling = true
		}
	}
}

// readHeader reads and decodes the next frame header, validating the
// masking-by-role rule that DecodeHeader itself cannot check (it has no
// notion of which side of the connection it is reading for).
func (r *Receiver) readHeader() (Header, error) {
	var raw [14]byte
	if _, err := io.ReadFull(r.br, raw[:2]); err != nil {
		return Header{}, err
	}

	lengthByte := raw[1] & lengthMask
	extra := 0
	switch {
	case lengthByte == len16Marker:
		extra = 2
	case lengthByte == len64Marker:
		extra = 8
	}
	pos := 2
	if extra > 0 {
		if _, err := io.ReadFull(r.br, raw[pos:pos+extra]); err != nil {
			return Header{}, err
		}
		pos += extra
	}

	masked := raw[1]&maskBit != 0
	if masked {
		if _, err := io.ReadFull(r.br, raw[pos:pos+4]); err != nil {
			return Header{}, err
		}
		pos += 4
	}

	h, _, err := DecodeHeader(raw[:pos], r.claimedRSV)
	if err != nil {
		return Header{}, err
	}

	if h.OpCode.IsControl() && h.rsv() != 0 {
		return Header{}, ErrReservedBitSet
	}
	if r.role == RoleServer && !h.Masked {
		return Header{}, ErrUnmaskedClientFrame
	}
	if r.role == RoleClient && h.Masked {
		return Header{}, ErrMaskedServerFrame
	}
	return h, nil
}

func (r *Receiver) readPayload(h Header) ([]byte, error) {
	if h.Length == 0 {
		return nil, nil
	}
	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, err
	}
	if h.Masked {
		maskBytes(h.Key, 0, payload)
	}
	return payload, nil
}

func (r *Receiver) finalizeMessage(out *[]byte) (Incoming, error) {
	op := r.assembleOp
	buf := r.assembleBuf
	rsv1 := r.assembleRSV1
	r.assembling = false
	r.assembleBuf = nil

	h := Header{OpCode: op, Final: true, RSV1: rsv1}
	decoded := buf
	for i := len(r.extensions) - 1; i >= 0; i-- {
		p, err := r.extensions[i].DecodeMessage(h, borrowedPayload(decoded), r.maxMessageSize)
		if err != nil {
			if err == ErrMessageTooLarge {
				return r.protocolViolation(err, CloseMessageTooBig)
			}
			return r.protocolViolation(err, CloseProtocolError)
		}
		decoded = p.bytes()
	}

	if int64(len(decoded)) > r.maxMessageSize {
		return r.protocolViolation(ErrMessageTooLarge, CloseMessageTooBig)
	}
	if op == OpText && r.enforceUTF8 && !utf8.Valid(decoded) {
		return r.protocolViolation(ErrInvalidUTF8, CloseInvalidFramePayloadData)
	}

	*out = append(*out, decoded...)
	return Incoming{Kind: IncomingData, OpCode: op, Len: len(decoded)}, nil
}

func (r *Receiver) handleClose(payload []byte) (Incoming, error) {
	code, reason, err := decodeCloseBody(payload)
	if err != nil {
		closeCode := CloseProtocolError
		if err == ErrInvalidUTF8 {
			closeCode = CloseInvalidFramePayloadData
		}
		return r.protocolViolation(err, closeCode)
	}

	prev := r.state.transitionReceiveClose()
	switch prev {
	case phaseOpen:
		echoCode := code
		if echoCode == 0 {
			echoCode = CloseNormalClosure
		}
		echo := encodeCloseBody(echoCode, "")
		r.lock.enqueueOrWrite(encodeFrameBytes(Header{Final: true, OpCode: OpClose}, echo, r.role))
		r.state.set(phaseClosed)
		return Incoming{}, &CloseError{Code: codeOrNoStatus(code), Text: reason}
	case phaseCloseSent:
		r.state.set(phaseClosed)
		return Incoming{}, &CloseError{Code: codeOrNoStatus(code), Text: reason}
	default:
		return Incoming{}, ErrClosed
	}
}

// protocolViolation enqueues a best-effort Close(code) if the connection
// is still writable, marks it Closed, and returns err to the caller. A
// protocol violation always ends the connection; there is no valid way to
// resynchronize with a peer that has broken framing.
func (r *Receiver) protocolViolation(err error, code int) (Incoming, error) {
	if !r.state.isTerminal() {
		r.lock.enqueueOrWrite(encodeFrameBytes(Header{Final: true, OpCode: OpClose}, encodeCloseBody(code, ""), r.role))
	}
	r.state.closeAbnormally()
	return Incoming{}, err
}

// handleReadError distinguishes this package's own codec/protocol sentinel
// errors (which get a best-effort Close(1002) and a typed error back) from
// genuine transport I/O errors, which are bubbled up to the caller verbatim
// and simply mark the connection terminal.
func (r *Receiver) handleReadError(err error) (Incoming, error) {
	switch err {
	case ErrUnknownOpcode, ErrReservedBitSet, ErrInvalidControlFrame, ErrNonMinimalLength,
		ErrUnmaskedClientFrame, ErrMaskedServerFrame:
		return r.protocolViolation(err, CloseProtocolError)
	default:
		r.state.closeAbnormally()
		return Incoming{}, err
	}
}
