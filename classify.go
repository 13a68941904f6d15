// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrServeClosed is reported by the connection serving loop when it stops
// because this driver initiated a graceful shutdown. The [ConnDriver]
// classifies it as a benign termination.
var ErrServeClosed = errors.New("weft: connection serving closed")

// ErrRemoteGoAway is the protocol-level "stop accepting new work" signal.
//
// A [Codec] whose protocol supports remote-initiated graceful termination
// (for example an HTTP/2 GOAWAY frame) returns this error, possibly
// wrapped, from ReadRequest. The [ConnDriver] classifies it as a benign
// termination.
var ErrRemoteGoAway = errors.New("weft: remote requested graceful shutdown")

// IsConnError reports whether err is a transport-level error representing
// an ordinary disconnect rather than an application fault: reset by peer,
// broken pipe, aborted, not connected, or an operation on an
// already-closed connection.
//
// Collaborating transport layers that produce their own error types
// should wrap one of these errors (or [ErrRemoteGoAway]) so that the
// driver's classification remains a match over a closed set.
func IsConnError(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ENOTCONN) ||
		errors.Is(err, net.ErrClosed)
}

// classifyServeResult maps the raw completion of a connection serving
// loop to the driver's terminal result. Benign terminations become nil;
// anything else propagates verbatim to the driver's caller, who is
// responsible for logging or reporting it.
//
// Classification happens once, at the driver boundary, and only here.
func classifyServeResult(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, ErrServeClosed):
		return nil
	case errors.Is(err, ErrRemoteGoAway):
		return nil
	case IsConnError(err):
		return nil
	default:
		return err
	}
}
