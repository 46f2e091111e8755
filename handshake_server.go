// Copyright 2013 Gary Burd. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
)

// ServerHandshake drives the server side of the opening handshake over a
// caller-supplied Transport. It has no notion of http.ResponseWriter or
// http.Hijacker: the caller owns accepting the TCP connection and handing
// this package a Transport, keeping connection establishment out of scope
// for this package.
type ServerHandshake struct {
	// Transport is the already-accepted byte stream to run the handshake
	// over. Required.
	Transport Transport

	// Subprotocols lists the server's supported subprotocols. If nil, no
	// subprotocol is negotiated even if the client offered some.
	Subprotocols []string

	// Extensions lists candidate extensions the server supports. Do
	// matches these (by name) against the client's offers in the order
	// the client sent them, accepting the first candidate willing to
	// accept each offer.
	Extensions []Extension

	// ResponseHeader carries additional response headers (Set-Cookie and
	// so on). Sec-Websocket-Protocol here is ignored in favor of the
	// negotiation against Subprotocols.
	ResponseHeader http.Header

	// CheckOrigin, if non-nil, must return true for the handshake to
	// proceed. A nil CheckOrigin accepts every origin.
	CheckOrigin func(r *http.Request) bool

	// CheckHost, if non-nil, must return true for the handshake to
	// proceed, given the request's Host header. A nil CheckHost accepts
	// every Host (beyond requiring it be present at all).
	CheckHost func(host string) bool
}

// ServerHandshakeResult is what a successful ServerHandshake.Do produces.
type ServerHandshakeResult struct {
	Request     *http.Request
	Subprotocol string
	Extensions  []Extension

	// Reader is the *bufio.Reader the handshake used to read the client's
	// request. Pass it as Builder.Reader so any bytes buffered past the
	// request headers are not lost.
	Reader *bufio.Reader
}

// Do reads and validates the client's opening request and writes the
// 101 Switching Protocols response. On a handshake-level failure it writes
// an HTTP error response (400, 426, or 403 as appropriate) to Transport,
// closing out the exchange on the server's behalf, and returns a
// *HandshakeError describing what failed.
func (s *ServerHandshake) Do() (*ServerHandshakeResult, error) {
	br := bufio.NewReader(s.Transport)
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, err
	}

	if req.Host == "" {
		return s.fail(http.StatusBadRequest, "websocket: request missing Host")
	}
	if s.CheckHost != nil && !s.CheckHost(req.Host) {
		return s.fail(http.StatusForbidden, "websocket: host not allowed")
	}
	if req.Method != "GET" {
		return s.fail(http.StatusBadRequest, "websocket: request method is not GET")
	}
	if !req.ProtoAtLeast(1, 1) {
		return s.fail(http.StatusBadRequest, "websocket: request protocol is below HTTP/1.1")
	}
	if !tokenListContainsValue(req.Header, "Connection", "upgrade") {
		return s.fail(http.StatusBadRequest, "websocket: connection header != upgrade")
	}
	if !tokenListContainsValue(req.Header, "Upgrade", "websocket") {
		return s.fail(http.StatusBadRequest, "websocket: upgrade != websocket")
	}
	if values := req.Header["Sec-Websocket-Version"]; len(values) == 0 || values[0] != "13" {
		return s.failVersion("websocket: version != 13")
	}
	if s.CheckOrigin != nil && !s.CheckOrigin(req) {
		return s.fail(http.StatusForbidden, "websocket: origin not allowed")
	}

	values := req.Header["Sec-Websocket-Key"]
	if len(values) == 0 || values[0] == "" {
		return s.fail(http.StatusBadRequest, ErrSecWebSocketKeyInvalid.Error())
	}
	challengeKey := values[0]

	result := &ServerHandshakeResult{Request: req, Reader: br}

	for _, proto := range Subprotocols(req) {
		for _, supported := range s.Subprotocols {
			if proto == supported {
				result.Subprotocol = proto
			}
		}
		if result.Subprotocol != "" {
			break
		}
	}

	var acceptedTokens []string
	used := make([]bool, len(s.Extensions))
	for _, offer := range parseExtensions(req.Header) {
		name := offer[""]
		for i, ext := range s.Extensions {
			if used[i] {
				continue
			}
			n, ok := ext.(extensionNegotiator)
			if !ok || extensionName(n) != name {
				continue
			}
			response, ok := n.acceptOffer(offer)
			if !ok {
				continue
			}
			used[i] = true
			acceptedTokens = append(acceptedTokens, response)
			result.Extensions = append(result.Extensions, ext)
			break
		}
	}

	resp := make([]byte, 0, 256)
	resp = append(resp, "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: "...)
	resp = append(resp, computeAcceptKey(challengeKey)...)
	resp = append(resp, "\r\n"...)
	if result.Subprotocol != "" {
		resp = append(resp, "Sec-WebSocket-Protocol: "...)
		resp = append(resp, result.Subprotocol...)
		resp = append(resp, "\r\n"...)
	}
	for _, token := range acceptedTokens {
		resp = append(resp, "Sec-WebSocket-Extensions: "...)
		resp = append(resp, token...)
		resp = append(resp, "\r\n"...)
	}
	for k, vs := range s.ResponseHeader {
		if k == "Sec-Websocket-Protocol" || k == "Sec-Websocket-Extensions" {
			continue
		}
		for _, v := range vs {
			resp = append(resp, k...)
			resp = append(resp, ": "...)
			for i := 0; i < len(v); i++ {
				b := v[i]
				if b <= 31 {
					// prevent response splitting
					b = ' '
				}
				resp = append(resp, b)
			}
			resp = append(resp, "\r\n"...)
		}
	}
	resp = append(resp, "\r\n"...)

	if _, err := s.Transport.Write(resp); err != nil {
		return nil, err
	}
	if err := s.Transport.Flush(); err != nil {
		return nil, err
	}

	return result, nil
}

// fail writes a plain-text HTTP error response carrying status and message,
// then returns a *HandshakeError wrapping message. Write/Flush errors are
// swallowed: the handshake has already failed, and the caller only cares
// about the validation failure itself.
func (s *ServerHandshake) fail(status int, message string) (*ServerHandshakeResult, error) {
	body := message + "\n"
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
	s.Transport.Write([]byte(resp))
	s.Transport.Flush()
	return nil, &HandshakeError{Message: message}
}

// failVersion is fail specialized for an unsupported Sec-WebSocket-Version:
// RFC 6455 section 4.4 requires a 426 Upgrade Required response that
// advertises the versions the server does support.
func (s *ServerHandshake) failVersion(message string) (*ServerHandshakeResult, error) {
	body := message + "\n"
	resp := fmt.Sprintf("HTTP/1.1 426 Upgrade Required\r\nSec-WebSocket-Version: 13\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		len(body), body)
	s.Transport.Write([]byte(resp))
	s.Transport.Flush()
	return nil, &HandshakeError{Message: message}
}

// Subprotocols returns the subprotocols requested by the client in the
// Sec-Websocket-Protocol header.
func Subprotocols(r *http.Request) []string {
	h := strings.TrimSpace(r.Header.Get("Sec-Websocket-Protocol"))
	if h == "" {
		return nil
	}
	protocols := strings.Split(h, ",")
	for i := range protocols {
		protocols[i] = strings.TrimSpace(protocols[i])
	}
	return protocols
}
