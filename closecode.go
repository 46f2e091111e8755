// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package websocket

import "fmt"

// Close codes defined in RFC 6455, section 11.7.
const (
	CloseNormalClosure           = 1000
	CloseGoingAway               = 1001
	CloseProtocolError           = 1002
	CloseUnsupportedData         = 1003
	CloseNoStatusReceived        = 1005
	CloseAbnormalClosure         = 1006
	CloseInvalidFramePayloadData = 1007
	ClosePolicyViolation         = 1008
	CloseMessageTooBig           = 1009
	CloseMandatoryExtension      = 1010
	CloseInternalServerErr       = 1011
	CloseServiceRestart          = 1012
	CloseTryAgainLater           = 1013
	CloseTLSHandshake            = 1015
)

// forbiddenOnWire reports whether code is one of the codes that MUST NOT
// appear on the wire per RFC 6455 section 7.4: they are reserved for local use describing conditions under which no
// Close frame was actually received.
func forbiddenOnWire(code int) bool {
	switch code {
	case CloseNoStatusReceived, CloseAbnormalClosure, CloseTLSHandshake:
		return true
	default:
		return false
	}
}

// validCloseCode reports whether code is legal to send or to receive on the
// wire: the defined codes with an assigned meaning (1000-1003, 1007-1011;
// 1004 is reserved and unassigned, 1012-1014 are undefined) or the
// application/private range 3000-4999.
func validCloseCode(code int) bool {
	if forbiddenOnWire(code) {
		return false
	}
	switch {
	case code >= 1000 && code <= 1003:
		return true
	case code >= 1007 && code <= 1011:
		return true
	case code >= 3000 && code <= 4999:
		return true
	default:
		return false
	}
}

// CloseError is returned by Sender/Receiver operations once the connection
// has been closed with a specific protocol-level reason: a Close frame
// either sent locally or received from the peer.
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket: close %d: %s", e.Code, e.Text)
}

// IsUnexpectedCloseError reports whether err is a *CloseError whose code is
// not present in expectedCodes. It returns false for a nil err or for any
// error that is not a *CloseError, so callers can write one check to
// distinguish "the peer hung up as expected" from "something went wrong."
func IsUnexpectedCloseError(err error, expectedCodes ...int) bool {
	ce, ok := err.(*CloseError)
	if !ok {
		return false
	}
	for _, code := range expectedCodes {
		if ce.Code == code {
			return false
		}
	}
	return true
}
