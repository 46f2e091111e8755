// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "sync"

// connPhase tracks one side's view of the closing handshake.
type connPhase int

const (
	phaseOpen connPhase = iota
	phaseCloseSent
	phaseCloseReceived
	phaseClosed
)

// connState is shared by the Sender and Receiver half of a split
// connection so either side can observe (and drive) the closing handshake
// the other side initiated.
type connState struct {
	mu    sync.Mutex
	phase connPhase
}

func (s *connState) get() connPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *connState) set(p connPhase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// transitionSendClose moves Open->CloseSent or CloseReceived->Closed for a
// locally-initiated Close. It returns the phase prior to the call so the
// caller knows whether it needs to wait for a peer echo or whether the
// connection is already fully closed.
func (s *connState) transitionSendClose() connPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.phase
	switch s.phase {
	case phaseOpen:
		s.phase = phaseCloseSent
	case phaseCloseReceived:
		s.phase = phaseClosed
	}
	return prev
}

// transitionReceiveClose moves Open->CloseReceived (awaiting the echo
// flush to complete the handshake) or CloseSent->Closed (our own Close was
// answered). It returns the phase prior to the call.
func (s *connState) transitionReceiveClose() connPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.phase
	switch s.phase {
	case phaseOpen:
		s.phase = phaseCloseReceived
	case phaseCloseSent:
		s.phase = phaseClosed
	}
	return prev
}

// closeAbnormally forces Closed from any state. Used for transport I/O
// errors and protocol violations, both of which end the connection
// unconditionally regardless of where the closing handshake currently is.
func (s *connState) closeAbnormally() {
	s.set(phaseClosed)
}

// isTerminal reports whether no further data may flow: the phase is
// CloseSent, CloseReceived, or Closed. Open is the only non-terminal phase.
func (s *connState) isTerminal() bool {
	return s.get() != phaseOpen
}

func maskRequired(role Role) bool { return role == RoleClient }
