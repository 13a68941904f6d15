// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the retry tests use a unit state and string requests/responses
type retryState = struct{}

type retryResult = PolicyResult[retryState, string, string]

// retryErrorsPolicy retries while the result is an error.
type retryErrorsPolicy struct{}

func (retryErrorsPolicy) Retry(ctx *Context[retryState], req string, resp string, err error) retryResult {
	if err != nil {
		return retryResult{Retry: true, Ctx: ctx, Req: req}
	}
	return retryResult{Resp: resp, Err: err}
}

func (retryErrorsPolicy) CloneInput(ctx *Context[retryState], req string) (*Context[retryState], string, bool) {
	return ctx.Clone(), req, true
}

// limitPolicy retries errors at most a bounded number of times. The
// counter is shared, so it synchronizes itself.
type limitPolicy struct {
	mu        sync.Mutex
	remaining int
}

func (p *limitPolicy) Retry(ctx *Context[retryState], req string, resp string, err error) retryResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil && p.remaining > 0 {
		p.remaining--
		return retryResult{Retry: true, Ctx: ctx, Req: req}
	}
	return retryResult{Resp: resp, Err: err}
}

func (p *limitPolicy) CloneInput(ctx *Context[retryState], req string) (*Context[retryState], string, bool) {
	return ctx.Clone(), req, true
}

// unlessErrPolicy retries every error except the sentinel one.
type unlessErrPolicy struct {
	sentinel string
}

func (p *unlessErrPolicy) Retry(ctx *Context[retryState], req string, resp string, err error) retryResult {
	if err != nil && err.Error() != p.sentinel {
		return retryResult{Retry: true, Ctx: ctx, Req: req}
	}
	return retryResult{Resp: resp, Err: err}
}

func (p *unlessErrPolicy) CloneInput(ctx *Context[retryState], req string) (*Context[retryState], string, bool) {
	return ctx.Clone(), req, true
}

// cannotClonePolicy declares every request non-replayable.
type cannotClonePolicy struct{}

func (cannotClonePolicy) Retry(ctx *Context[retryState], req string, resp string, err error) retryResult {
	panic("retry cannot be called since the request isn't cloned")
}

func (cannotClonePolicy) CloneInput(ctx *Context[retryState], req string) (*Context[retryState], string, bool) {
	return nil, "", false
}

// mutatingPolicy changes the request to `retrying` during retries and
// substitutes an `out of retries` error when retries are exhausted.
type mutatingPolicy struct {
	mu        sync.Mutex
	remaining int
}

func (p *mutatingPolicy) Retry(ctx *Context[retryState], req string, resp string, err error) retryResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remaining == 0 {
		return retryResult{Err: errors.New("out of retries")}
	}
	p.remaining--
	return retryResult{Retry: true, Ctx: ctx, Req: "retrying"}
}

func (p *mutatingPolicy) CloneInput(ctx *Context[retryState], req string) (*Context[retryState], string, bool) {
	return ctx.Clone(), req, true
}

// A service erroring on its first call and a policy retrying errors
// yield success with exactly two inner calls.
func TestRetryErrors(t *testing.T) {
	var errored atomic.Bool
	var responseCounter atomic.Int64
	var errorCounter atomic.Int64
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			assert.Equal(t, "hello", req)
			if errored.Swap(true) {
				responseCounter.Add(1)
				return "world", nil
			}
			errorCounter.Add(1)
			return "", errors.New("retry me")
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](retryErrorsPolicy{}))

	resp, err := svc.Serve(NewContext(retryState{}), "hello")

	require.NoError(t, err)
	assert.Equal(t, "world", resp)
	assert.Equal(t, int64(1), responseCounter.Load())
	assert.Equal(t, int64(1), errorCounter.Load())
}

// A policy bounding attempts to K calls a permanently failing service
// exactly K+1 times and returns the last attempt's error.
func TestRetryLimit(t *testing.T) {
	var errorCounter atomic.Int64
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			assert.Equal(t, "hello", req)
			errorCounter.Add(1)
			return "", errors.New("error forever")
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](&limitPolicy{remaining: 2}))

	_, err := svc.Serve(NewContext(retryState{}), "hello")

	require.Error(t, err)
	assert.Equal(t, "error forever", err.Error())
	assert.Equal(t, int64(3), errorCounter.Load())
}

// A policy aborting on a sentinel error retries all other errors and
// returns exactly the sentinel as final.
func TestRetryErrorInspection(t *testing.T) {
	var errored atomic.Bool
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			assert.Equal(t, "hello", req)
			if errored.Swap(true) {
				return "", errors.New("reject")
			}
			return "", errors.New("retry me")
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](&unlessErrPolicy{sentinel: "reject"}))

	_, err := svc.Serve(NewContext(retryState{}), "hello")

	require.Error(t, err)
	assert.Equal(t, "reject", err.Error())
}

// A non-cloneable request caps the loop at exactly one attempt and the
// raw result is returned unchanged, whether it failed...
func TestRetryCannotCloneRequest(t *testing.T) {
	var calls atomic.Int64
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			assert.Equal(t, "hello", req)
			calls.Add(1)
			return "", errors.New("failed")
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](cannotClonePolicy{}))

	_, err := svc.Serve(NewContext(retryState{}), "hello")

	require.Error(t, err)
	assert.Equal(t, "failed", err.Error())
	assert.Equal(t, int64(1), calls.Load())
}

// ...or succeeded.
func TestRetrySuccessWithCannotClone(t *testing.T) {
	var calls atomic.Int64
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			assert.Equal(t, "hello", req)
			calls.Add(1)
			return "world", nil
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](cannotClonePolicy{}))

	resp, err := svc.Serve(NewContext(retryState{}), "hello")

	require.NoError(t, err)
	assert.Equal(t, "world", resp)
	assert.Equal(t, int64(1), calls.Load())
}

// A mutating policy rewrites the request seen by the second and later
// attempts and substitutes its own terminal error when giving up.
func TestRetryMutatingPolicy(t *testing.T) {
	var responded atomic.Bool
	var responseCounter atomic.Int64
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			responseCounter.Add(1)
			if responded.Swap(true) {
				assert.Equal(t, "retrying", req)
			} else {
				assert.Equal(t, "hello", req)
			}
			return "world", nil
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](&mutatingPolicy{remaining: 2}))

	_, err := svc.Serve(NewContext(retryState{}), "hello")

	require.Error(t, err)
	assert.Equal(t, "out of retries", err.Error())
	assert.Equal(t, int64(3), responseCounter.Load())
}

// Each attempt runs with a context cloned before the previous attempt,
// so facts inserted by one attempt never leak into the next one.
func TestRetryAttemptsAreIsolated(t *testing.T) {
	inner := ServiceFunc[retryState, string, string](
		func(ctx *Context[retryState], req string) (string, error) {
			_, found := Get[testCounterFact](ctx.Extensions())
			assert.False(t, found, "fact leaked from a previous attempt")
			Insert(ctx.Extensions(), testCounterFact(1))
			return "", errors.New("again")
		})

	svc := Chain(inner, NewRetryLayer[retryState, string, string](&limitPolicy{remaining: 2}))

	_, err := svc.Serve(NewContext(retryState{}), "hello")

	require.Error(t, err)
}
