// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import "strconv"

// Protocol is the application protocol negotiated for a request (e.g.,
// "http", "https"). It arrives as a [Context] fact produced by an
// external request-context or forwarded-header collaborator.
type Protocol string

// Version is the wire version of the protocol (e.g., "HTTP/1.1", "h2").
type Version string

// HostPort is a network authority: a host name or address plus a port.
type HostPort struct {
	// Host is the host name or address.
	Host string

	// Port is the TCP or UDP port.
	Port uint16
}

// String returns the canonical host:port representation.
func (hp HostPort) String() string {
	return hp.Host + ":" + strconv.FormatUint(uint64(hp.Port), 10)
}

// RequestContext bundles the request-level facts that middleware derives
// once per logical call and that downstream services consume as ordinary
// [Context] extensions: the protocol, the negotiated authority, and the
// wire version.
//
// How these values are derived (request line, Host header, pseudo
// headers, forwarded-proxy headers) is an external collaborator's
// concern; this package only caches the outcome.
type RequestContext struct {
	// Protocol is the application protocol of the request.
	Protocol Protocol

	// Authority is the negotiated authority of the request.
	Authority HostPort

	// Version is the wire version of the request.
	Version Version
}

// RequestContextFrom returns the [RequestContext] fact stored in ctx,
// deriving and caching it with derive when absent. Subsequent calls on
// the same context instance observe the cached fact.
func RequestContextFrom[State any](
	ctx *Context[State], derive func() (RequestContext, error)) (RequestContext, error) {
	if reqCtx, found := Get[RequestContext](ctx.Extensions()); found {
		return reqCtx, nil
	}
	reqCtx, err := derive()
	if err != nil {
		return RequestContext{}, err
	}
	Insert(ctx.Extensions(), reqCtx)
	return reqCtx, nil
}

// NewRequestContextLayer returns a [Layer] ensuring that a
// [RequestContext] fact is present before the inner service runs, using
// the collaborator-supplied derive function. A fact already present is
// left untouched, so an upstream layer (e.g., one honoring forwarded
// headers) takes precedence.
func NewRequestContextLayer[State, Request, Response any](
	derive func(ctx *Context[State], req Request) (RequestContext, error),
) Layer[State, Request, Response] {
	return LayerFunc[State, Request, Response](
		func(inner Service[State, Request, Response]) Service[State, Request, Response] {
			return ServiceFunc[State, Request, Response](
				func(ctx *Context[State], req Request) (Response, error) {
					if _, found := Get[RequestContext](ctx.Extensions()); !found {
						reqCtx, err := derive(ctx, req)
						if err != nil {
							var zero Response
							return zero, err
						}
						Insert(ctx.Extensions(), reqCtx)
					}
					return inner.Serve(ctx, req)
				},
			)
		},
	)
}
