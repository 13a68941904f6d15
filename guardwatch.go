// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import (
	"net"
	"sync"
)

// WatchGuard arranges for the connection to be closed when the guard
// fires. This provides a hard-close complement to the [ConnDriver]'s
// cooperative shutdown: when winding down gracefully is not an option
// (e.g., a hijacked or long-polling connection), binding the guard to the
// connection makes cancellation immediately fail any in-progress I/O.
//
// The returned connection wraps the input connection. Closing the
// returned connection unregisters the guard watcher and closes the
// underlying connection. This ensures no goroutine leaks even if the
// guard never fires.
//
// The watcher is safe to use with any [net.Conn] implementation because
// Go's standard library uses the [net.ErrClosed] pattern: closing an
// already-closed connection returns [net.ErrClosed], and I/O operations
// on a closed connection fail gracefully.
func WatchGuard(guard *Guard, conn net.Conn) net.Conn {
	watched := &guardWatchedConn{
		Conn: conn,
		once: sync.Once{},
		stop: make(chan struct{}),
	}
	go func() {
		select {
		case <-guard.Cancelled():
			conn.Close()
		case <-watched.stop:
			// watcher unregistered
		}
	}()
	return watched
}

// guardWatchedConn wraps a [net.Conn] with a guard cancellation watcher.
type guardWatchedConn struct {
	net.Conn
	once sync.Once
	stop chan struct{}
}

// Close unregisters the guard watcher and closes the underlying connection.
func (c *guardWatchedConn) Close() error {
	c.once.Do(func() {
		close(c.stop)
	})
	return c.Conn.Close()
}
