// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "encoding/json"

// WriteJSON writes the JSON encoding of v as a single Text message.
func (s *Sender) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SendText(data)
}

// ReadJSON reads a single message from r and decodes it as JSON into v. It
// accepts either a Text or Binary message.
func (r *Receiver) ReadJSON(v any) error {
	var data []byte
	if _, err := r.ReceiveData(&data); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteJSON is the deprecated free-function form of (*Sender).WriteJSON.
//
// Deprecated: call (*Sender).WriteJSON directly.
func WriteJSON(s *Sender, v any) error { return s.WriteJSON(v) }

// ReadJSON is the deprecated free-function form of (*Receiver).ReadJSON.
//
// Deprecated: call (*Receiver).ReadJSON directly.
func ReadJSON(r *Receiver, v any) error { return r.ReadJSON(v) }
