// SPDX-License-Identifier: GPL-3.0-or-later

package weft

// Service is the unit-of-work abstraction shared by every middleware in
// this package: it consumes a [*Context] and a request and produces a
// response or an error.
//
// Serve may block at I/O and timer boundaries; use the standard context
// available via [Context.Context] to bound such operations. A Service
// must be safe for use by multiple concurrent calls: implementations with
// mutable internal state must synchronize it themselves.
//
// A Service may read and write the context's [Extensions]: the bag is an
// input and output channel, distinct from the response, and is the
// sanctioned way middleware communicates derived facts within one logical
// call. A Service must not retain the context or the request beyond the
// call unless it explicitly clones what it needs.
type Service[State, Request, Response any] interface {
	Serve(ctx *Context[State], req Request) (Response, error)
}

// ServiceFunc wraps a function as a [Service] implementation.
//
// Use this to create ad-hoc [Service] instances from closures when you
// need custom behavior that doesn't fit the existing primitives.
type ServiceFunc[State, Request, Response any] func(ctx *Context[State], req Request) (Response, error)

// Serve implements [Service].
func (f ServiceFunc[State, Request, Response]) Serve(ctx *Context[State], req Request) (Response, error) {
	return f(ctx, req)
}
