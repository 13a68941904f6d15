// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import "sync"

// Guard is a broadcast cancellation signal shared by every [Context]
// derived from the same root.
//
// Firing the guard with [Guard.Cancel] wakes every current and future
// waiter on the channel returned by [Guard.Cancelled]: waiting does not
// consume the signal, so a second waiter elsewhere in the system still
// observes the cancellation. A guard never transitions back from
// cancelled to active.
//
// The [ConnDriver] uses the guard to implement cooperative graceful
// shutdown: a fired guard stops the driver from accepting new logical
// exchanges on a connection while in-flight work is allowed to finish.
type Guard struct {
	// done is closed exactly once when the guard fires.
	done chan struct{}

	// once ensures that Cancel is idempotent.
	once sync.Once
}

// NewGuard returns a new, not-yet-cancelled [*Guard].
func NewGuard() *Guard {
	return &Guard{
		done: make(chan struct{}),
		once: sync.Once{},
	}
}

// Cancel fires the guard. Calling Cancel more than once is allowed and
// has no additional effect.
func (g *Guard) Cancel() {
	g.once.Do(func() {
		close(g.done)
	})
}

// Cancelled returns a channel that is closed once the guard has fired.
//
// Receiving from the channel does not consume the signal: any number of
// goroutines may wait on it concurrently and each observes the close.
func (g *Guard) Cancelled() <-chan struct{} {
	return g.done
}

// IsCancelled reports whether the guard has already fired.
func (g *Guard) IsCancelled() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}
