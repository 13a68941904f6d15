// SPDX-License-Identifier: GPL-3.0-or-later

package weft

// Layer transforms one [Service] into another, typically by wrapping it
// with additional behavior (retries, authentication, fact derivation).
//
// Layer must not perform I/O at wrap time: only the produced Service does
// work, at call time. The produced Service typically calls the inner
// Service zero or more times and may inspect or transform the context,
// the request, and the result.
type Layer[State, Request, Response any] interface {
	Layer(inner Service[State, Request, Response]) Service[State, Request, Response]
}

// LayerFunc wraps a function as a [Layer] implementation.
type LayerFunc[State, Request, Response any] func(inner Service[State, Request, Response]) Service[State, Request, Response]

// Layer implements [Layer].
func (f LayerFunc[State, Request, Response]) Layer(inner Service[State, Request, Response]) Service[State, Request, Response] {
	return f(inner)
}

// Chain wraps svc with the given layers such that the first layer is the
// outermost one: the caller invokes the Service produced by layers[0],
// which eventually calls down into svc.
//
// If no layers are given, Chain returns svc unchanged.
func Chain[State, Request, Response any](
	svc Service[State, Request, Response],
	layers ...Layer[State, Request, Response],
) Service[State, Request, Response] {
	for idx := len(layers) - 1; idx >= 0; idx-- {
		svc = layers[idx].Layer(svc)
	}
	return svc
}
