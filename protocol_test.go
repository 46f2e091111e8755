// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bytes"
	"io"
	"testing"
)

func TestEchoRoundTrip(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	client, clientRecv, err := (&Builder{Transport: clientTransport, Role: RoleClient}).Finish()
	if err != nil {
		t.Fatal(err)
	}
	server, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("hello over the wire")
	go func() {
		if err := client.SendText(want); err != nil {
			t.Error(err)
		}
	}()

	var got []byte
	op, err := serverRecv.ReceiveData(&got)
	if err != nil {
		t.Fatal(err)
	}
	if op != OpText {
		t.Fatalf("opcode = %v, want OpText", op)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("server received %q, want %q", got, want)
	}

	go func() {
		if err := server.SendText(got); err != nil {
			t.Error(err)
		}
	}()

	var echoed []byte
	if _, err := clientRecv.ReceiveData(&echoed); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(echoed, want) {
		t.Fatalf("client received echo %q, want %q", echoed, want)
	}
}

func TestFragmentedMessageReassembly(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	client, _, err := (&Builder{Transport: clientTransport, Role: RoleClient, FragmentSize: 4}).Finish()
	if err != nil {
		t.Fatal(err)
	}
	_, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("this message is longer than one fragment")
	go func() {
		if err := client.SendBinary(want); err != nil {
			t.Error(err)
		}
	}()

	var got []byte
	op, err := serverRecv.ReceiveData(&got)
	if err != nil {
		t.Fatal(err)
	}
	if op != OpBinary {
		t.Fatalf("opcode = %v, want OpBinary", op)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("reassembled %q, want %q", got, want)
	}
}

func TestPingDuringFragmentation(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	client, clientRecv, err := (&Builder{Transport: clientTransport, Role: RoleClient, FragmentSize: 4}).Finish()
	if err != nil {
		t.Fatal(err)
	}
	server, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("fragmented payload crossing several frames")
	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		if err := client.SendBinary(want); err != nil {
			t.Error("SendBinary", err)
		}
	}()

	// The client's receiver has to be running before the Ping is written:
	// the pipe is unbuffered, so SendPing blocks until it is read.
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		var discard []byte
		clientRecv.Receive(&discard)
	}()

	// Ping the client while its fragmented message is still in flight: the
	// client's receiver must answer with a Pong through the same connLock
	// its own Sender is using to write continuation frames, so this only
	// works if the lock is released between frames rather than held for
	// the whole message.
	if err := server.SendPing([]byte("ping")); err != nil {
		t.Fatal(err)
	}

	// Exactly two externally-visible events reach the server: the client's
	// auto-Pong reply and the final frame of the reassembled message. Order
	// between them is not guaranteed, so collect both rather than assuming
	// the Pong arrives first.
	seen := map[IncomingKind]bool{}
	var assembled []byte
	for i := 0; i < 2; i++ {
		in, err := serverRecv.Receive(&assembled)
		if err != nil {
			t.Fatal(err)
		}
		seen[in.Kind] = true
	}
	if !seen[IncomingPong] {
		t.Fatal("server never observed the client's auto-Pong reply")
	}
	if !bytes.Equal(assembled, want) {
		t.Fatalf("reassembled %q, want %q", assembled, want)
	}

	<-sendDone
	// The client's receiver echoes the Close back; drain it so that write
	// doesn't block forever on the unread pipe.
	go io.Copy(io.Discard, serverTransport)
	if err := server.Close(CloseNormalClosure, ""); err != nil {
		t.Fatal(err)
	}
	<-recvDone
}

func TestNonMinimalLengthRejection(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	_, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	// A masked Binary frame whose 16-bit length field encodes 5, which
	// should have been sent using the 7-bit form instead.
	raw := []byte{finBit | byte(OpBinary), maskBit | len16Marker, 0x00, 0x05, 0, 0, 0, 0}
	go clientTransport.Write(raw)
	// The receiver writes a Close(1002) back on this failure path; drain it
	// so the write doesn't block forever on the unread pipe.
	go io.Copy(io.Discard, clientTransport)

	var buf []byte
	_, err = serverRecv.ReceiveData(&buf)
	if err != ErrNonMinimalLength {
		t.Fatalf("err = %v, want ErrNonMinimalLength", err)
	}
}

func TestInvalidUTF8Rejection(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	client, _, err := (&Builder{Transport: clientTransport, Role: RoleClient}).Finish()
	if err != nil {
		t.Fatal(err)
	}
	_, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	invalid := []byte{0xff, 0xfe, 0xfd}
	go client.SendText(invalid)
	// The receiver writes a Close(1007) back on this failure path; drain it
	// so the write doesn't block forever on the unread pipe.
	go io.Copy(io.Discard, clientTransport)

	var buf []byte
	_, err = serverRecv.ReceiveData(&buf)
	if err != ErrInvalidUTF8 {
		t.Fatalf("err = %v, want ErrInvalidUTF8", err)
	}
}

func TestDeflateEndToEnd(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	clientExt := NewDeflateExtension(RoleClient)
	serverExt := NewDeflateExtension(RoleServer)

	client, _, err := (&Builder{Transport: clientTransport, Role: RoleClient, Extensions: []Extension{clientExt}}).Finish()
	if err != nil {
		t.Fatal(err)
	}
	_, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer, Extensions: []Extension{serverExt}}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	want := bytes.Repeat([]byte("compress me please compress me please "), 100)
	go func() {
		if err := client.SendText(want); err != nil {
			t.Error(err)
		}
	}()

	var got []byte
	op, err := serverRecv.ReceiveData(&got)
	if err != nil {
		t.Fatal(err)
	}
	if op != OpText {
		t.Fatalf("opcode = %v, want OpText", op)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded %d bytes, want the original %d-byte message back", len(got), len(want))
	}
}

func TestDeflateFragmentedMessage(t *testing.T) {
	clientTransport, serverTransport := newPipe()
	clientExt := NewDeflateExtension(RoleClient)
	serverExt := NewDeflateExtension(RoleServer)

	client, _, err := (&Builder{Transport: clientTransport, Role: RoleClient, Extensions: []Extension{clientExt}, FragmentSize: 16}).Finish()
	if err != nil {
		t.Fatal(err)
	}
	_, serverRecv, err := (&Builder{Transport: serverTransport, Role: RoleServer, Extensions: []Extension{serverExt}}).Finish()
	if err != nil {
		t.Fatal(err)
	}

	want := bytes.Repeat([]byte("compress me please "), 5)
	go func() {
		if err := client.SendText(want); err != nil {
			t.Error(err)
		}
	}()

	var got []byte
	op, err := serverRecv.ReceiveData(&got)
	if err != nil {
		t.Fatal(err)
	}
	if op != OpText {
		t.Fatalf("opcode = %v, want OpText", op)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded %d bytes, want the original %d-byte message back", len(got), len(want))
	}
}
