// SPDX-License-Identifier: GPL-3.0-or-later

// Package weft provides composable middleware primitives for building
// network proxies and servers.
//
// # Core Abstraction
//
// The package is built around a single interface:
//
//	type Service[State, Request, Response any] interface {
//		Serve(ctx *Context[State], req Request) (Response, error)
//	}
//
// Each Service represents one unit of work over a per-call [Context],
// which threads the shared application state, a typed [Extensions] fact
// bag, and an optional cancellation [*Guard] alongside each request.
// Middleware is expressed as a [Layer], a Service transformer: layers
// nest via [Chain], with the outermost layer's Service invoked by the
// caller.
//
// # Available Primitives
//
// Pipeline building:
//   - [ServiceFunc], [LayerFunc]: wrap closures as services and layers
//   - [Chain]: nest layers around a service, first layer outermost
//   - [NewRetryLayer]: idempotent-retry semantics driven by a [Policy]
//   - [NewRequestContextLayer]: derive-and-cache request facts
//
// Connection serving:
//   - [ConnDriver]: serves one accepted connection with a Service under
//     cooperative, graceful shutdown, classifying benign closes
//     (created via [NewConnDriver]; protocol framing via a [Codec])
//   - [TrackConn]: counts bytes read/written with a detachable
//     [*TrackHandle] that survives handoff to inner protocol layers
//   - [WatchGuard]: closes a connection when a [*Guard] fires (hard
//     close, for connections that cannot wind down cooperatively)
//
// Authentication boundary:
//   - [Basic], [LabeledBasic], [AuthoritySet]: credential validators
//     producing identity facts ([UserID], [UsernameLabels]) on a match
//   - [ParseUsername]: structured `base-label1-label2` username parsing
//     with a pluggable [UsernameLabelParser]
//
// # Context and Cancellation
//
// Every top-level unit of work (an incoming request, an accepted
// connection) gets its own [*Context]. Layers insert facts for
// downstream consumers with [Insert]; [Context.Clone] gives retry
// attempts and per-exchange service calls isolated views of the
// accumulated facts.
//
// Cancellation is cooperative. The [*Guard] is a broadcast signal: once
// fired, every current and future waiter observes it, and waiting never
// consumes it. The [ConnDriver] races the serving loop against the
// guard and, when the guard fires first, stops accepting new logical
// exchanges while letting in-flight work finish. There is no hard
// timeout in this package: bound individual operations through the
// standard context available via [Context.Context], or bind a guard to
// a connection with [WatchGuard] when a hard close is acceptable.
//
// # Observability
//
// All primitives support structured logging via [SLogger] (compatible
// with [log/slog]).
//
// By default, logging is disabled. Set the Logger field to a custom
// [*slog.Logger] to enable logging. Error classification for the
// errClass log field is configurable via [ErrClassifier].
//
// The driver emits span events (serveStart/serveDone, plus
// serveShutdown when a graceful shutdown is initiated) at
// [slog.LevelInfo]; [TrackConn] emits per-I/O events (read, write) at
// [slog.LevelDebug]. All events share a common set of fields:
// localAddr, remoteAddr, protocol, and t (timestamp); completion events
// additionally include t0 (start time), err, and errClass. Each driven
// connection carries a unique, time-ordered spanID (see [NewSpanID]),
// enabling correlation across events and simplifying log analysis.
//
// # Error Classification
//
// The driver classifies the termination of a connection exactly once,
// at its boundary. Orderly or externally-caused closes are benign and
// surface as a nil error: clean EOF, [ErrServeClosed] (shutdown
// initiated by the driver itself), [ErrRemoteGoAway] (protocol-level
// remote stop), and the ordinary-disconnect transport errors matched by
// [IsConnError]. Everything else propagates verbatim to the driver's
// caller, who decides how to log or report it. Collaborating transport
// and protocol layers should map their own failures onto this closed
// set rather than relying on runtime type probing.
//
// # Design Boundaries
//
// This package intentionally defines only the shape of middleware,
// retry, and connection-lifecycle behavior. The following are out of
// scope and should be implemented by collaborating packages:
//
//   - Concrete protocol codecs (header parsing, framing, TLS, DNS)
//   - Deriving request facts from forwarded-proxy headers
//   - Retry strategies themselves (a [Policy] is caller-provided)
//   - Listening, accepting, and connection pooling
//
// Keeping these concerns outside the core lets arbitrary protocol and
// codec implementations ride on top of the same contracts.
package weft
