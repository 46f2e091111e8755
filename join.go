// Copyright 2019 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "io"

// messageJoiner adapts a sequence of Receiver messages to a single
// io.Reader, appending term after each message's bytes.
type messageJoiner struct {
	r    *Receiver
	term []byte
	buf  []byte
	err  error
}

// JoinMessages returns an io.Reader that reads all data messages from r as
// a single stream, delimiting each message with term. Useful for piping a
// sequence of WebSocket messages to an io.Writer expecting one continuous
// stream (a line-oriented log sink, for instance). Read returns the
// Receiver's terminal error (a *CloseError, a transport error, or plain
// io.EOF once the peer's stream ends) once no further messages remain.
func JoinMessages(r *Receiver, term string) io.Reader {
	return &messageJoiner{r: r, term: []byte(term)}
}

func (j *messageJoiner) Read(p []byte) (int, error) {
	for len(j.buf) == 0 {
		if j.err != nil {
			return 0, j.err
		}
		var data []byte
		_, err := j.r.ReceiveData(&data)
		if err != nil {
			j.err = err
			continue
		}
		j.buf = append(data, j.term...)
	}
	n := copy(p, j.buf)
	j.buf = j.buf[n:]
	return n, nil
}
