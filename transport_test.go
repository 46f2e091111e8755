// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "io"

// pipeTransport is an in-memory Transport built from two synchronous
// io.Pipe halves, one per direction, for tests that don't need a real
// socket. Unlike a bytes.Buffer
// pair, a read on an empty io.Pipe blocks until a matching write arrives
// instead of returning io.EOF immediately, which is what lets client and
// server handshakes run concurrently on goroutines the way real peers do.
type pipeTransport struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipe() (client, server Transport) {
	clientReadsFrom, serverWritesTo := io.Pipe()
	serverReadsFrom, clientWritesTo := io.Pipe()
	return &pipeTransport{r: clientReadsFrom, w: clientWritesTo},
		&pipeTransport{r: serverReadsFrom, w: serverWritesTo}
}

func (p *pipeTransport) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeTransport) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeTransport) Flush() error                { return nil }
func (p *pipeTransport) Close() error {
	p.r.Close()
	return p.w.Close()
}
