// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import "context"

// Context carries the per-call environment alongside each request: the
// shared application state, a typed [Extensions] fact bag, an optional
// cancellation [*Guard], and a standard [context.Context] used for I/O
// deadlines inside services.
//
// A Context is created once per top-level unit of work (an incoming
// request or an accepted connection) and flows through the middleware
// chain together with the request. Layers insert facts for downstream
// consumers with [Insert] on [Context.Extensions].
//
// [Context.Clone] duplicates the extension bag by value and shares state,
// guard, and standard context by reference. Concurrent holders of
// different clones never observe each other's inserts: this is the
// mechanism by which retry attempts and per-exchange service calls get
// isolated, rewindable views of accumulated facts.
//
// State is shared structurally across clones. When the application state
// must be one mutable value observed by every clone, use a pointer type
// for State; reads on shared state must not require per-call locking.
type Context[State any] struct {
	// ctx is the standard library context for I/O deadlines.
	ctx context.Context

	// ext is this instance's fact bag.
	ext Extensions

	// guard is the optional shared cancellation guard.
	guard *Guard

	// state is the shared application state.
	state State
}

// NewContext returns a [*Context] wrapping the given application state,
// with an empty extension bag, no guard, and [context.Background] as the
// standard context.
func NewContext[State any](state State) *Context[State] {
	return &Context[State]{
		ctx:   context.Background(),
		ext:   NewExtensions(),
		guard: nil,
		state: state,
	}
}

// State returns the shared application state.
func (c *Context[State]) State() State {
	return c.state
}

// Extensions returns the fact bag attached to this instance. Mutations are
// local to this instance and are not visible to other clones.
func (c *Context[State]) Extensions() *Extensions {
	return &c.ext
}

// Context returns the standard [context.Context] to use for I/O and timer
// operations performed on behalf of this call.
func (c *Context[State]) Context() context.Context {
	return c.ctx
}

// WithContext replaces the standard context and returns c for chaining.
func (c *Context[State]) WithContext(ctx context.Context) *Context[State] {
	c.ctx = ctx
	return c
}

// Guard returns the cancellation guard, or nil when there is none.
func (c *Context[State]) Guard() *Guard {
	return c.guard
}

// SetGuard attaches a cancellation guard. Clones made afterwards share
// the same guard instance.
func (c *Context[State]) SetGuard(guard *Guard) {
	c.guard = guard
}

// Clone returns a copy of this context that deep-copies the extension bag
// and shares the state, the guard, and the standard context.
func (c *Context[State]) Clone() *Context[State] {
	return &Context[State]{
		ctx:   c.ctx,
		ext:   c.ext.Clone(),
		guard: c.guard,
		state: c.state,
	}
}
