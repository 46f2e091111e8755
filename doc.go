// Copyright 2013 Gary Burd. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package websocket implements the WebSocket protocol defined in RFC 6455,
// plus the permessage-deflate extension defined in RFC 7692.
//
// Overview
//
// This package deliberately has no notion of dialing, listening, or TLS: a
// Transport is any already-connected byte stream (net.Conn satisfies it via
// NewTransport), and a Builder turns one into a split Sender/Receiver pair:
//
//  t := websocket.NewBufferedTransport(websocket.NewTransport(netConn), 4096)
//  s, r, err := (&websocket.Builder{Transport: t, Role: websocket.RoleClient}).Finish()
//  if err != nil {
//      return err
//  }
//
// A server obtains the same pair by running a ServerHandshake first and
// passing its Reader through to the Builder so no bytes buffered past the
// request headers are lost:
//
//  hs := &websocket.ServerHandshake{Transport: t}
//  result, err := hs.Do()
//  if err != nil {
//      return err
//  }
//  s, r, err := (&websocket.Builder{
//      Transport:  t,
//      Role:       websocket.RoleServer,
//      Reader:     result.Reader,
//      Extensions: result.Extensions,
//  }).Finish()
//
// Sending and receiving
//
// Sender.SendText/SendBinary send one complete message, splitting it into
// multiple frames internally when it exceeds Builder.FragmentSize; callers
// never see the fragmentation. Receiver.Receive and Receiver.ReceiveData
// assemble fragmented messages back into one buffer and answer Ping/Close
// control frames automatically:
//
//  var buf []byte
//  for {
//      buf = buf[:0]
//      op, err := r.ReceiveData(&buf)
//      if err != nil {
//          return err
//      }
//      if err := s.SendBinary(buf); err != nil {
//          return err
//      }
//      _ = op
//  }
//
// Concurrency
//
// A Sender supports a single concurrent caller to its Send*/Close/Flush
// methods, and a Receiver supports a single concurrent caller to
// Receive/ReceiveData, the same way only one goroutine should write to (or
// read from) a plain net.Conn at a time. The Sender half of a pair and the
// Receiver half may run on separate goroutines freely: they coordinate
// automatic replies (an inbound Ping's Pong, an inbound Close's echo)
// through a shared connLock that releases between individual frames so
// neither side can starve the other mid-message.
//
// Data and control messages
//
// The WebSocket protocol distinguishes Text and Binary data messages and
// Close/Ping/Pong control messages. Text payloads are validated as UTF-8
// before delivery unless Builder.DisableUTF8Enforcement is set. Extensions
// (DeflateExtension in particular) only ever see Text/Binary messages;
// control frames bypass the Extension chain entirely.
package websocket
