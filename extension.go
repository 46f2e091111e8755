// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

// Extension is the contract a per-message transform implements: it may
// reserve an RSV bit to flag its presence on the wire, and it rewrites
// inbound/outbound data-message payloads. Control frames never pass through
// an Extension.
//
// Extensions are held in an ordered list on a Builder. DecodeMessage runs in
// reverse installation order and EncodeMessage in forward order, mirroring
// RFC 7692 section 5's layering: the last extension to touch an outbound
// payload is the first to see an inbound one.
type Extension interface {
	// ReserveRSV is called once per extension at Builder.Finish() time, in
	// installation order, threading the OR of bits already claimed by
	// earlier extensions. It returns the new OR, or ErrRsvConflict if this
	// extension needs a bit another extension already claimed.
	ReserveRSV(current byte) (byte, error)

	// DecodeMessage is called once per fully assembled inbound data
	// message, after defragmentation and before delivery to the caller. It
	// may rewrite p in place or return a different payload entirely.
	// maxSize is the connection's configured maximum message size in
	// bytes; an extension whose decode can expand the payload (DEFLATE)
	// must enforce it incrementally during decode, not just check the
	// final length, so that a compact zip-bomb frame is rejected bounded
	// by maxSize rather than by however large the real expansion is.
	DecodeMessage(h Header, p payload, maxSize int64) (payload, error)

	// EncodeMessage is called once per outbound data message, before
	// framing. It may rewrite p in place or coerce it to an owned buffer if
	// it needs to grow or shrink the payload. rsv1..rsv3 on h reflect bits
	// already set by extensions earlier in the chain; this extension sets
	// its own claimed bit on the returned Header.
	EncodeMessage(h Header, p payload) (Header, payload, error)
}

// payload is the three-way storage variant an Extension's encode path
// operates on: a fast-path borrowed slice that costs nothing to pass
// through untouched, an exclusive buffer the caller already owns and may
// mutate in place, or a freshly allocated owned buffer for extensions that
// must resize. Borrowed payloads are promoted to owned only by an extension
// that actually needs to grow or shrink them.
type payload struct {
	kind payloadKind
	buf  []byte
}

type payloadKind int

const (
	payloadBorrowed payloadKind = iota
	payloadExclusive
	payloadOwned
)

func borrowedPayload(b []byte) payload  { return payload{kind: payloadBorrowed, buf: b} }
func exclusivePayload(b []byte) payload { return payload{kind: payloadExclusive, buf: b} }
func ownedPayload(b []byte) payload     { return payload{kind: payloadOwned, buf: b} }

// bytes returns the current contents regardless of storage kind.
func (p payload) bytes() []byte { return p.buf }

// toOwned returns a copy of p guaranteed not to alias any buffer the caller
// still holds a reference to, promoting borrowed/exclusive storage to an
// owned allocation. A payload already owned is returned unchanged.
func (p payload) toOwned() payload {
	if p.kind == payloadOwned {
		return p
	}
	buf := make([]byte, len(p.buf))
	copy(buf, p.buf)
	return ownedPayload(buf)
}

// rsvBits packs h's three reserved bits into a bitmap (bit0=RSV1, bit1=RSV2,
// bit2=RSV3), matching the claimedRSV bitmap DecodeHeader expects.
func rsvBits(h Header) byte { return h.rsv() }

// withRSV1 returns h with RSV1 set or cleared.
func withRSV1(h Header, v bool) Header {
	h.RSV1 = v
	return h
}

// extensionNegotiator is implemented by extensions that participate in the
// opening handshake's Sec-WebSocket-Extensions exchange. DeflateExtension is
// the only implementation; an Extension that doesn't implement it (a future
// one operating purely by prior agreement, say) is simply never offered or
// matched against incoming offers by the handshake layer.
type extensionNegotiator interface {
	// offer returns this extension's Sec-WebSocket-Extensions token, used
	// by the client handshake to build its offer list.
	offer() string

	// acceptOffer inspects one parsed offer (server side) and returns the
	// response token to echo back plus ok=true if this extension accepts
	// it, or ok=false to let the server skip the offer entirely.
	acceptOffer(params map[string]string) (response string, ok bool)

	// acceptResponse validates the server's chosen parameters (client
	// side) against what was offered, folding the negotiated values in.
	acceptResponse(params map[string]string) bool
}
