// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"sync"

	"github.com/eapache/queue"
)

// connLock coordinates a Sender and Receiver that jointly own a single
// Transport: the Receiver needs a way to emit an automatic Pong or an
// echoed Close without deadlocking a concurrent Sender.Send* call that
// already holds the write lane.
//
// The write lane itself is a plain mutex: frames must be atomic on the
// wire, so only one writer runs at a time regardless of who it is. What
// makes this two-lane rather than a single exclusive lock is the pending
// queue: if the Receiver needs the write lane while the Sender holds it,
// it enqueues the frame instead of blocking, and whichever side next
// acquires the lane drains the queue first and writes it at the next
// available write window.
type connLock struct {
	mu      sync.Mutex
	pending *queue.Queue
	t       Transport
}

// queuedFrame is a fully encoded frame (header + payload) waiting for the
// write lane.
type queuedFrame struct {
	bytes []byte
}

func newConnLock(t Transport) *connLock {
	return &connLock{pending: queue.New(), t: t}
}

// acquireWrite blocks until the caller holds the write lane, then drains
// any frames enqueued by the other side before returning. Callers must call
// release when done.
func (l *connLock) acquireWrite() {
	l.mu.Lock()
	l.drainLocked()
}

func (l *connLock) release() {
	l.mu.Unlock()
}

// drainLocked writes out any frames the other side queued while it could
// not get the write lane. Caller must hold mu.
func (l *connLock) drainLocked() {
	for l.pending.Length() > 0 {
		f := l.pending.Remove().(queuedFrame)
		// Errors writing a queued auto-reply are not surfaced to the
		// Receiver that enqueued it; the transport is terminal either way
		// and the next real Send*/Receive call will observe the failure.
		l.t.Write(f.bytes)
	}
}

// writeNow writes b to the transport immediately; caller must hold the
// write lane (i.e. be between acquireWrite/release).
func (l *connLock) writeNow(b []byte) error {
	_, err := l.t.Write(b)
	return err
}

// enqueueOrWrite attempts to take the write lane immediately to send b
// (an auto-Pong or echoed Close); if the lane is already held (a Sender is
// mid-write), b is queued instead and flushed by whichever side next calls
// acquireWrite.
func (l *connLock) enqueueOrWrite(b []byte) error {
	if l.mu.TryLock() {
		defer l.mu.Unlock()
		l.drainLocked()
		_, err := l.t.Write(b)
		return err
	}
	l.pending.Add(queuedFrame{bytes: append([]byte(nil), b...)})
	return nil
}
