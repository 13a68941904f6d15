//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package weft

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewTrackConn returns a [*TrackConn] wrapping the given [net.Conn] and
// counting the bytes read from and written to it.
//
// The cfg argument contains the common configuration for weft primitives.
//
// The logger argument is the [SLogger] to use for structured logging of
// per-I/O events. Use [DefaultSLogger] to disable logging.
func NewTrackConn(cfg *Config, conn net.Conn, logger SLogger) *TrackConn {
	return &TrackConn{
		closeonce:     sync.Once{},
		conn:          conn,
		laddr:         safeconn.LocalAddr(conn),
		protocol:      safeconn.Network(conn),
		raddr:         safeconn.RemoteAddr(conn),
		read:          &atomic.Int64{},
		written:       &atomic.Int64{},
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// TrackConn wraps a [net.Conn] to count the bytes read and written, and
// optionally to log per-I/O events.
//
// The counters are shared atomics: use [TrackConn.Handle] to obtain a
// read-only [*TrackHandle] observing the same counters. The handle keeps
// reporting live counts even after the wrapper itself has been consumed
// by an inner protocol layer, which is for example the case when the
// wrapped TCP conn is handed off to a TLS layer.
//
// All exported fields are safe to modify after construction but before
// first use. Fields must not be mutated concurrently with I/O calls.
type TrackConn struct {
	closeonce sync.Once
	conn      net.Conn
	laddr     string
	protocol  string
	raddr     string
	read      *atomic.Int64
	written   *atomic.Int64

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewTrackConn] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewTrackConn] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewTrackConn] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ net.Conn = &TrackConn{}

// Handle returns a read-only [*TrackHandle] observing the same counters
// as this wrapper, not a snapshot of them.
func (c *TrackConn) Handle() *TrackHandle {
	return &TrackHandle{
		read:    c.read,
		written: c.written,
	}
}

// BytesRead returns the number of bytes read so far.
func (c *TrackConn) BytesRead() int64 {
	return c.read.Load()
}

// BytesWritten returns the number of bytes written so far.
func (c *TrackConn) BytesWritten() int64 {
	return c.written.Load()
}

// Read implements [net.Conn].
func (c *TrackConn) Read(buf []byte) (int, error) {
	t0 := c.TimeNow()
	c.Logger.Debug(
		"readStart",
		slog.Int("ioBufferSize", len(buf)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t", t0),
	)

	count, err := c.conn.Read(buf)
	c.read.Add(int64(count))

	c.Logger.Debug(
		"readDone",
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", c.TimeNow()),
	)

	return count, err
}

// Write implements [net.Conn].
func (c *TrackConn) Write(data []byte) (int, error) {
	t0 := c.TimeNow()
	c.Logger.Debug(
		"writeStart",
		slog.Int("ioBufferSize", len(data)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t", t0),
	)

	count, err := c.conn.Write(data)
	c.written.Add(int64(count))

	c.Logger.Debug(
		"writeDone",
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", c.TimeNow()),
	)

	return count, err
}

// Close implements [net.Conn].
//
// Subsequent calls return [net.ErrClosed], consistent with Go's standard
// library behavior for closed connections.
func (c *TrackConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.TimeNow()
		c.Logger.Info(
			"closeStart",
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.Time("t", t0),
		)

		err = c.conn.Close()

		c.Logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", c.ErrClassifier.Classify(err)),
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.Time("t0", t0),
			slog.Time("t", c.TimeNow()),
		)
	})
	return
}

// LocalAddr implements [net.Conn].
func (c *TrackConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr implements [net.Conn].
func (c *TrackConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline implements [net.Conn].
func (c *TrackConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *TrackConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *TrackConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// TrackHandle is a read-only view over a [*TrackConn]'s counters.
//
// The handle shares the counters with the wrapper: counts observed
// through the handle keep increasing while the wrapper is still used by
// whatever protocol layer consumed it.
type TrackHandle struct {
	read    *atomic.Int64
	written *atomic.Int64
}

// BytesRead returns the number of bytes read so far.
func (h *TrackHandle) BytesRead() int64 {
	return h.read.Load()
}

// BytesWritten returns the number of bytes written so far.
func (h *TrackHandle) BytesWritten() int64 {
	return h.written.Load()
}
