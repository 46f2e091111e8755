// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bufio"
	"net/http"
	"net/url"
	"strings"
)

// ClientHandshake drives the client side of the opening handshake over a
// caller-supplied Transport. It intentionally knows nothing about dialing,
// TLS, or proxies: callers bring their own already-connected Transport,
// keeping connection establishment entirely out of scope for this package.
type ClientHandshake struct {
	// Transport is the already-connected byte stream to run the handshake
	// over. Required.
	Transport Transport

	// URL supplies the request path (URL.RequestURI()) and Host header.
	// Required.
	URL *url.URL

	// Header carries additional request headers (Origin, Cookie, and so
	// on). May be nil.
	Header http.Header

	// Subprotocols lists the client's offered subprotocols, sent as a
	// single comma-separated Sec-WebSocket-Protocol header.
	Subprotocols []string

	// Extensions lists candidate extensions the client is willing to use.
	// Each one implementing extensionNegotiator contributes an offer
	// token; the server's response determines which (if any) of these
	// instances the handshake actually negotiates and returns.
	Extensions []Extension
}

// ClientHandshakeResult is what a successful ClientHandshake.Do produces:
// enough to construct a Builder plus the raw HTTP response for callers that
// want to inspect cookies or other application-level headers.
type ClientHandshakeResult struct {
	Response    *http.Response
	Subprotocol string
	Extensions  []Extension

	// Reader is the *bufio.Reader the handshake used to read the server's
	// response. Pass it as Builder.Reader so no bytes buffered past the
	// response headers are lost.
	Reader *bufio.Reader
}

// Do writes the opening request, reads and validates the server's response,
// and returns the negotiated subprotocol/extensions. On a handshake-level
// failure (as opposed to a transport I/O error) it returns a *HandshakeError
// alongside a result whose Response field holds the parsed *http.Response, so
// a caller can inspect why a server declined (a non-101 status with a body,
// for instance).
func (c *ClientHandshake) Do() (*ClientHandshakeResult, error) {
	challengeKey, err := generateChallengeKey()
	if err != nil {
		return nil, err
	}
	acceptKey := computeAcceptKey(challengeKey)

	var negotiators []extensionNegotiator
	for _, ext := range c.Extensions {
		if n, ok := ext.(extensionNegotiator); ok {
			negotiators = append(negotiators, n)
		}
	}

	req := make([]byte, 0, 256)
	req = append(req, "GET "...)
	req = append(req, c.URL.RequestURI()...)
	req = append(req, " HTTP/1.1\r\nHost: "...)
	req = append(req, c.URL.Host...)
	// "Upgrade" is capitalized for servers that don't case-fold header
	// tokens.
	req = append(req, "\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Version: 13\r\nSec-WebSocket-Key: "...)
	req = append(req, challengeKey...)
	req = append(req, "\r\n"...)

	if len(c.Subprotocols) > 0 {
		req = append(req, "Sec-WebSocket-Protocol: "...)
		req = append(req, strings.Join(c.Subprotocols, ", ")...)
		req = append(req, "\r\n"...)
	}
	for _, n := range negotiators {
		req = append(req, "Sec-WebSocket-Extensions: "...)
		req = append(req, n.offer()...)
		req = append(req, "\r\n"...)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req = append(req, k...)
			req = append(req, ": "...)
			req = append(req, v...)
			req = append(req, "\r\n"...)
		}
	}
	req = append(req, "\r\n"...)

	if _, err := c.Transport.Write(req); err != nil {
		return nil, err
	}
	if err := c.Transport.Flush(); err != nil {
		return nil, err
	}

	br := bufio.NewReader(c.Transport)
	resp, err := http.ReadResponse(br, &http.Request{Method: "GET", URL: c.URL})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 101 {
		return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: "websocket: server responded with status " + resp.Status}
	}
	if !tokenListContainsValue(resp.Header, "Upgrade", "websocket") {
		return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: "websocket: server response missing Upgrade: websocket"}
	}
	if !tokenListContainsValue(resp.Header, "Connection", "upgrade") {
		return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: "websocket: server response missing Connection: upgrade"}
	}
	if resp.Header.Get("Sec-Websocket-Accept") != acceptKey {
		return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: ErrMismatchedAccept.Error()}
	}

	result := &ClientHandshakeResult{Response: resp, Reader: br}

	if proto := resp.Header.Get("Sec-Websocket-Protocol"); proto != "" {
		found := false
		for _, want := range c.Subprotocols {
			if want == proto {
				found = true
				break
			}
		}
		if !found {
			return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: ErrUnknownProtocol.Error()}
		}
		result.Subprotocol = proto
	}

	accepted := parseExtensions(resp.Header)
	if len(accepted) > len(negotiators) {
		return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: ErrUnsupportedExtension.Error()}
	}
	used := make([]bool, len(negotiators))
	for _, params := range accepted {
		name := params[""]
		matched := false
		for i, n := range negotiators {
			if used[i] {
				continue
			}
			if extensionName(n) != name {
				continue
			}
			if !n.acceptResponse(params) {
				return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: ErrUnsupportedExtension.Error()}
			}
			used[i] = true
			result.Extensions = append(result.Extensions, n.(Extension))
			matched = true
			break
		}
		if !matched {
			return &ClientHandshakeResult{Response: resp}, &HandshakeError{Message: ErrUnsupportedExtension.Error()}
		}
	}

	return result, nil
}

// extensionName reports the Sec-WebSocket-Extensions token this negotiator
// offers under, used to match a server's response extension back to the
// candidate that produced it.
func extensionName(n extensionNegotiator) string {
	token, _ := nextToken(n.offer())
	return token
}
