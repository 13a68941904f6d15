// SPDX-License-Identifier: GPL-3.0-or-later

package weft

// Policy decides, after each attempt made by the retry engine, whether to
// retry the call or to return a final result.
//
// The engine splits "should we retry" (Retry) from "can we retry"
// (CloneInput): a policy implements arbitrary backoff, limit, and
// error-classification logic while the engine remains agnostic to whether
// a request can be replayed at all.
//
// A single Policy instance may be consulted concurrently by multiple
// retry loops. Shared mutable policy state, such as an attempt counter,
// must be synchronized by the policy itself.
type Policy[State, Request, Response any] interface {
	// Retry classifies the outcome of an attempt. The ctx and req values
	// are the clones obtained via CloneInput before the attempt; the
	// policy may mutate or replace them for the next attempt. The resp
	// and err values are the attempt's raw result.
	Retry(ctx *Context[State], req Request, resp Response, err error) PolicyResult[State, Request, Response]

	// CloneInput returns an independently-owned copy of ctx and req for a
	// further attempt, or false when the request cannot be replayed. The
	// engine calls CloneInput before every attempt that might need a
	// replay; returning false caps the call at exactly one attempt,
	// regardless of what Retry would have decided.
	CloneInput(ctx *Context[State], req Request) (*Context[State], Request, bool)
}

// PolicyResult is the decision returned by [Policy.Retry].
//
// When Retry is true the engine performs another attempt using Ctx and
// Req, and Resp and Err are ignored. When Retry is false the engine
// returns Resp and Err as the final result.
//
// A policy aborting the loop may substitute a result different from the
// one the attempt actually produced, for example a synthesized "out of
// retries" error: this is how bounded policies express a terminal error
// without the engine tracking a counter. The substitution silently
// discards the attempt's real result, so only do it deliberately.
type PolicyResult[State, Request, Response any] struct {
	// Retry requests another attempt when true.
	Retry bool

	// Ctx is the context for the next attempt (Retry true).
	Ctx *Context[State]

	// Req is the request for the next attempt (Retry true).
	Req Request

	// Resp is the final response (Retry false).
	Resp Response

	// Err is the final error (Retry false).
	Err error
}

// NewRetryLayer returns a [Layer] wrapping services with the retry engine
// driven by the given policy.
func NewRetryLayer[State, Request, Response any](
	policy Policy[State, Request, Response],
) Layer[State, Request, Response] {
	return LayerFunc[State, Request, Response](
		func(inner Service[State, Request, Response]) Service[State, Request, Response] {
			return &retryService[State, Request, Response]{
				inner:  inner,
				policy: policy,
			}
		},
	)
}

// retryService is the retry engine produced by [NewRetryLayer].
type retryService[State, Request, Response any] struct {
	inner  Service[State, Request, Response]
	policy Policy[State, Request, Response]
}

var _ Service[any, string, string] = &retryService[any, string, string]{}

// Serve implements [Service].
//
// The first attempt uses the caller-supplied context and request as-is.
// Before each attempt that might need a replay, the engine obtains a
// clone via [Policy.CloneInput]: cloning happens proactively because the
// attempt may consume the request. When the input is not cloneable the
// attempt's raw result is returned unchanged.
func (s *retryService[State, Request, Response]) Serve(
	ctx *Context[State], req Request) (Response, error) {
	for {
		clonedCtx, clonedReq, cloneable := s.policy.CloneInput(ctx, req)
		resp, err := s.inner.Serve(ctx, req)
		if !cloneable {
			return resp, err
		}
		decision := s.policy.Retry(clonedCtx, clonedReq, resp, err)
		if !decision.Retry {
			return decision.Resp, decision.Err
		}
		ctx, req = decision.Ctx, decision.Req
	}
}
