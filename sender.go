// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "math/rand"

// Sender frames and writes outbound messages. A Sender is produced by
// Builder.Finish and shares its transport with a paired Receiver through a
// connLock. Send*/Close/Flush are safe to call concurrently with the
// paired Receiver's automatic replies, and Close may be called while a
// SendText/SendBinary is in progress (the send stops at the next frame
// boundary). Otherwise only one goroutine should call into a given
// Sender's Send*/Close/Flush methods at a time, the same way only one
// goroutine should write to a plain net.Conn at a time: the frames of two
// concurrent fragmented sends would interleave on the wire.
type Sender struct {
	lock         *connLock
	role         Role
	extensions   []Extension
	fragmentSize int
	state        *connState
}

// newMaskKey draws a uniformly random 32-bit masking key. Security is not
// the goal here (masking defeats cache poisoning, not eavesdropping), so a
// fast non-cryptographic PRNG is sufficient.
func newMaskKey() [4]byte {
	var k [4]byte
	v := rand.Uint32()
	k[0] = byte(v)
	k[1] = byte(v >> 8)
	k[2] = byte(v >> 16)
	k[3] = byte(v >> 24)
	return k
}

// SendText frames p as a single Text message.
func (s *Sender) SendText(p []byte) error { return s.sendData(OpText, p) }

// SendBinary frames p as a single Binary message.
func (s *Sender) SendBinary(p []byte) error { return s.sendData(OpBinary, p) }

func (s *Sender) sendData(op OpCode, p []byte) error {
	if s.state.isTerminal() {
		return ErrClosed
	}

	h := Header{Final: true, OpCode: op}
	enc := borrowedPayload(p)
	for _, ext := range s.extensions {
		var err error
		h, enc, err = ext.EncodeMessage(h, enc)
		if err != nil {
			return err
		}
	}
	payload := enc.bytes()

	frames := s.splitFragments(payload)
	for i, frame := range frames {
		if s.state.isTerminal() {
			// Close was initiated concurrently: abort at a frame boundary
			// rather than blocking Close forever. Already-written fragments
			// leave the peer mid-message, which is an accepted consequence
			// of aborting promptly.
			return ErrClosed
		}

		fh := Header{
			OpCode: OpContinuation,
			Final:  frame.final,
			Length: uint64(len(frame.data)),
		}
		if i == 0 {
			fh.OpCode = op
			fh.RSV1 = h.RSV1
			fh.RSV2 = h.RSV2
			fh.RSV3 = h.RSV3
		}
		if err := s.writeFrame(fh, frame.data); err != nil {
			return err
		}
	}
	return nil
}

type fragment struct {
	data  []byte
	final bool
}

// splitFragments breaks payload into chunks no larger than s.fragmentSize.
// Fragmentation is purely an internal wire-efficiency choice: the caller
// always sees one message regardless of how many frames it became.
func (s *Sender) splitFragments(payload []byte) []fragment {
	if s.fragmentSize <= 0 || len(payload) <= s.fragmentSize {
		return []fragment{{data: payload, final: true}}
	}
	var frames []fragment
	for len(payload) > s.fragmentSize {
		frames = append(frames, fragment{data: payload[:s.fragmentSize], final: false})
		payload = payload[s.fragmentSize:]
	}
	frames = append(frames, fragment{data: payload, final: true})
	return frames
}

// writeFrame masks (if required by role), encodes the header, and writes
// one complete frame to the transport, holding the write lane only for the
// duration of this single frame so queued auto-replies from the paired
// Receiver get a chance to interleave between fragments.
func (s *Sender) writeFrame(h Header, data []byte) error {
	buf := encodeFrameBytes(h, data, s.role)

	s.lock.acquireWrite()
	err := s.lock.writeNow(buf)
	s.lock.release()
	return err
}

// SendPing frames payload as a Ping control message. payload must be 125
// bytes or fewer.
func (s *Sender) SendPing(payload []byte) error { return s.sendControl(OpPing, payload) }

// SendPong frames payload as a Pong control message, for applications that
// want to send an unsolicited Pong or one with a payload differing from
// the corresponding Ping. payload must be 125 bytes or fewer.
func (s *Sender) SendPong(payload []byte) error { return s.sendControl(OpPong, payload) }

func (s *Sender) sendControl(op OpCode, payload []byte) error {
	if len(payload) > maxControlFramePayload {
		return ErrInvalidControlFrame
	}
	if s.state.isTerminal() {
		return ErrClosed
	}
	return s.writeFrame(Header{Final: true, OpCode: op}, payload)
}

// Close sends a Close frame with the given status code and UTF-8 reason
// (reason must be 123 bytes or fewer once encoded) and transitions the
// shared connection state to CloseSent (or to Closed if the peer's Close
// had already been received and is only awaiting this echo). It does not
// wait for the peer's answering Close: a Receive/ReceiveData call already
// in progress on the paired Receiver reports it as a *CloseError, while a
// call started after Close returns ErrClosed.
func (s *Sender) Close(code int, reason string) error {
	if code != 0 && !validCloseCode(code) {
		return ErrInvalidCloseCode
	}
	if len(reason) > maxControlFramePayload-2 {
		return ErrInvalidControlFrame
	}

	prev := s.state.transitionSendClose()
	if prev == phaseClosed || prev == phaseCloseSent {
		return ErrClosed
	}

	payload := encodeCloseBody(code, reason)
	return s.writeFrame(Header{Final: true, OpCode: OpClose}, payload)
}

// Flush is a no-op for transports with no internal write buffering and
// otherwise flushes the underlying Transport, giving callers an explicit
// point to push pending bytes without issuing a new frame.
func (s *Sender) Flush() error {
	s.lock.acquireWrite()
	defer s.lock.release()
	return s.lock.t.Flush()
}

func encodeCloseBody(code int, reason string) []byte {
	if code == 0 {
		return nil
	}
	body := make([]byte, 2+len(reason))
	body[0] = byte(code >> 8)
	body[1] = byte(code)
	copy(body[2:], reason)
	return body
}
