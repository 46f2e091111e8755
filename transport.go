// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bufio"
	"io"
	"net"
)

// Transport is the opaque, suspending byte stream this package drives to
// completion. Consumers bring their own: a *net.Conn, a TLS connection, a
// Unix socket, an in-memory pipe for tests. Read/Write behave as
// io.Reader/io.Writer. Flush gives buffered transports (bufio, TLS record
// batching) a chance to push pending bytes before the caller blocks waiting
// for a reply; Close releases the underlying resource.
//
// This package never selects a transport on the consumer's behalf: no DNS,
// no TLS handshake, no dialing. NewTransport and NewBufferedTransport exist
// only to adapt a connection the consumer already has in hand.
type Transport interface {
	io.Reader
	io.Writer
	Flush() error
	Close() error
}

// netConnTransport adapts a net.Conn (or anything satisfying the same
// interface, e.g. a *tls.Conn) into a Transport. Writes pass straight
// through since net.Conn has no internal buffering to flush.
type netConnTransport struct {
	net.Conn
}

func (t *netConnTransport) Flush() error { return nil }

// NewTransport adapts conn into a Transport with no intermediate buffering.
func NewTransport(conn net.Conn) Transport {
	return &netConnTransport{Conn: conn}
}

// bufferedTransport wraps a Transport so that Read goes through a
// *bufio.Reader; Write, Flush and Close pass straight through.
type bufferedTransport struct {
	Transport
	br *bufio.Reader
}

// NewBufferedTransport wraps t with a read buffer of size bufSize (0 selects
// bufio's default). Use this when Transport.Read may be expensive per call
// (e.g. a raw *net.TCPConn) and the codec's small, frequent reads would
// otherwise cause a syscall per read.
func NewBufferedTransport(t Transport, bufSize int) Transport {
	var br *bufio.Reader
	if bufSize > 0 {
		br = bufio.NewReaderSize(t, bufSize)
	} else {
		br = bufio.NewReader(t)
	}
	return &bufferedTransport{Transport: t, br: br}
}

func (t *bufferedTransport) Read(p []byte) (int, error) { return t.br.Read(p) }
