// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bytes"
	"compress/flate"
	"io"
	"strconv"
	"sync"
)

// compressDeflateLevel is the flate compression level used by
// DeflateExtension. 3 favors throughput over ratio, since messages are
// compressed and decompressed on the hot path of every send/receive.
const compressDeflateLevel = 3

const deflateMaxDict = 32768

// deflateTail is appended to a message's compressed bytes before inflating.
// RFC 7692 section 7.2.2 says the sender's raw-deflate stream ends each
// message with a non-final empty stored block (0x00 0x00 0xFF 0xFF, the
// "sync flush" marker) rather than a real stream terminator. Feeding that
// alone to flate.Reader leaves it expecting a following block header, which
// it never gets, so it reports io.ErrUnexpectedEOF instead of io.EOF. A
// trailing minimal final empty stored block (BFINAL=1, BTYPE=00, 0-length)
// gives the decoder a legitimate end of stream.
var deflateTail = []byte{0x00, 0x00, 0xff, 0xff, 0x01, 0x00, 0x00, 0xff, 0xff}

var deflateSyncFlushMarker = []byte{0x00, 0x00, 0xff, 0xff}

// DeflateExtension implements the permessage-deflate extension (RFC 7692).
// One instance is built per connection by the handshake layer and handed to
// Builder.Extensions; it claims RSV1 and compresses/decompresses Text and
// Binary messages transparently. Control frames never reach it, since
// Receiver/Sender only route Text/Binary messages through the Extension
// chain.
//
// Context takeover (whether the LZ77 window persists across messages) is
// implemented by seeding each message's flate.Writer/flate.Reader with a
// rolling dictionary of the last up to 32KB of plaintext, rather than
// keeping a single long-lived stream open: compress/flate's Writer.Reset
// discards history on every call, so reusing one Writer across messages
// whose compressed bytes must land in different frames isn't workable. A
// fresh per-message Dict writer/reader seeded from the previous message's
// tail is functionally equivalent and lets each message's compressed bytes
// be produced independently.
type DeflateExtension struct {
	// ClientMaxWindowBits and ServerMaxWindowBits record the negotiated
	// window-bits parameters (8-15) for documentation/diagnostics. The
	// compress/flate backend always operates with a full 32KB window
	// internally (the raw DEFLATE format does not encode an explicit
	// window-bits field), so these are not mechanically enforced; a peer
	// that declared a smaller window still decodes correctly since RFC1951
	// back-references never exceed the window the declaring side actually
	// used.
	ClientMaxWindowBits int
	ServerMaxWindowBits int

	// ClientNoContextTakeover and ServerNoContextTakeover record whether
	// the corresponding direction resets its dictionary between messages.
	ClientNoContextTakeover bool
	ServerNoContextTakeover bool

	role Role

	decMu   sync.Mutex
	decDict []byte

	encMu   sync.Mutex
	encDict []byte
}

// NewDeflateExtension builds an unnegotiated extension for role.
// acceptOffer/acceptResponse (called by the handshake layer) fill in the
// window-bits and
// no-context-takeover fields from the agreed-upon parameters before the
// extension is handed to a Builder.
func NewDeflateExtension(role Role) *DeflateExtension {
	return &DeflateExtension{
		role:                role,
		ClientMaxWindowBits: 15,
		ServerMaxWindowBits: 15,
	}
}

// ReserveRSV claims RSV1, per RFC 7692 section 6.
func (d *DeflateExtension) ReserveRSV(current byte) (byte, error) {
	if current&rsv1Bit != 0 {
		return current, ErrRsvConflict
	}
	return current | rsv1Bit, nil
}

// inboundNoContextTakeover reports whether the side that COMPRESSES data
// flowing toward us resets its window between messages: the client's
// inbound direction is governed by ServerNoContextTakeover (the server is
// the compressor), and vice versa.
func (d *DeflateExtension) inboundNoContextTakeover() bool {
	if d.role == RoleClient {
		return d.ServerNoContextTakeover
	}
	return d.ClientNoContextTakeover
}

func (d *DeflateExtension) outboundNoContextTakeover() bool {
	if d.role == RoleClient {
		return d.ClientNoContextTakeover
	}
	return d.ServerNoContextTakeover
}

// DecodeMessage inflates p if h.RSV1 is set, tracking maxSize incrementally
// so a zip-bomb payload is rejected once the decompressed bytes exceed the
// budget, never by first materializing the full decompressed message.
func (d *DeflateExtension) DecodeMessage(h Header, p payload, maxSize int64) (payload, error) {
	if !h.RSV1 {
		return p, nil
	}

	d.decMu.Lock()
	defer d.decMu.Unlock()

	src := io.MultiReader(bytes.NewReader(p.bytes()), bytes.NewReader(deflateTail))
	fr := flate.NewReaderDict(src, d.decDict)
	defer fr.Close()

	limited := io.LimitReader(fr, maxSize+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return payload{}, ErrInflateError
	}
	if int64(len(out)) > maxSize {
		return payload{}, ErrMessageTooLarge
	}

	if d.inboundNoContextTakeover() {
		d.decDict = nil
	} else {
		d.decDict = appendDict(d.decDict, out)
	}
	return ownedPayload(out), nil
}

// EncodeMessage deflates p, strips the trailing sync-flush marker (the
// Receiver's DecodeMessage/deflateTail re-adds an equivalent terminator),
// and sets RSV1.
func (d *DeflateExtension) EncodeMessage(h Header, p payload) (Header, payload, error) {
	d.encMu.Lock()
	defer d.encMu.Unlock()

	plain := p.bytes()

	var buf bytes.Buffer
	fw, err := flate.NewWriterDict(&buf, compressDeflateLevel, d.encDict)
	if err != nil {
		return h, payload{}, ErrDeflateError
	}
	if _, err := fw.Write(plain); err != nil {
		return h, payload{}, ErrDeflateError
	}
	if err := fw.Flush(); err != nil {
		return h, payload{}, ErrDeflateError
	}

	out := bytes.TrimSuffix(buf.Bytes(), deflateSyncFlushMarker)

	if d.outboundNoContextTakeover() {
		d.encDict = nil
	} else {
		d.encDict = appendDict(d.encDict, plain)
	}

	h.RSV1 = true
	return h, ownedPayload(append([]byte(nil), out...)), nil
}

func appendDict(dict, data []byte) []byte {
	n := len(dict) + len(data)
	start := 0
	if n > deflateMaxDict {
		start = n - deflateMaxDict
	}
	combined := make([]byte, n)
	copy(combined, dict)
	copy(combined[len(dict):], data)
	return combined[start:]
}

// offer builds this extension's Sec-WebSocket-Extensions offer token, for
// use by the client handshake.
func (d *DeflateExtension) offer() string {
	s := "permessage-deflate"
	if d.ClientNoContextTakeover {
		s += "; client_no_context_takeover"
	}
	if d.ServerNoContextTakeover {
		s += "; server_no_context_takeover"
	}
	if d.ClientMaxWindowBits != 0 && d.ClientMaxWindowBits != 15 {
		s += "; client_max_window_bits=" + strconv.Itoa(d.ClientMaxWindowBits)
	}
	if d.ServerMaxWindowBits != 0 && d.ServerMaxWindowBits != 15 {
		s += "; server_max_window_bits=" + strconv.Itoa(d.ServerMaxWindowBits)
	}
	return s
}

// acceptOffer inspects one client offer's parameters (server side) and
// either returns the response token to echo back, or ok=false if this
// offer's parameters fall outside what this extension supports.
func (d *DeflateExtension) acceptOffer(params map[string]string) (string, bool) {
	nd := &DeflateExtension{role: RoleServer, ClientMaxWindowBits: 15, ServerMaxWindowBits: 15}
	for k, v := range params {
		switch k {
		case "":
			continue
		case "client_no_context_takeover":
			nd.ClientNoContextTakeover = true
		case "server_no_context_takeover":
			nd.ServerNoContextTakeover = true
		case "client_max_window_bits":
			if v == "" {
				continue
			}
			bits, err := strconv.Atoi(v)
			if err != nil || bits < 8 || bits > 15 {
				return "", false
			}
			nd.ClientMaxWindowBits = bits
		case "server_max_window_bits":
			bits, err := strconv.Atoi(v)
			if err != nil || bits < 8 || bits > 15 {
				return "", false
			}
			nd.ServerMaxWindowBits = bits
		default:
			return "", false
		}
	}

	*d = *nd
	return d.offer(), true
}

// acceptResponse validates the server's chosen parameters (client side)
// against what this extension is prepared to run with, folding the
// negotiated values into d.
func (d *DeflateExtension) acceptResponse(params map[string]string) bool {
	nd := *d
	for k, v := range params {
		switch k {
		case "":
			continue
		case "client_no_context_takeover":
			nd.ClientNoContextTakeover = true
		case "server_no_context_takeover":
			nd.ServerNoContextTakeover = true
		case "client_max_window_bits":
			if v == "" {
				continue
			}
			bits, err := strconv.Atoi(v)
			if err != nil || bits < 8 || bits > 15 || bits > d.ClientMaxWindowBits {
				return false
			}
			nd.ClientMaxWindowBits = bits
		case "server_max_window_bits":
			bits, err := strconv.Atoi(v)
			if err != nil || bits < 8 || bits > 15 || bits > d.ServerMaxWindowBits {
				return false
			}
			nd.ServerMaxWindowBits = bits
		default:
			return false
		}
	}
	*d = nd
	return true
}
