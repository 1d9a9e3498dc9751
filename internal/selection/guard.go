// Package selection implements the token protocol that makes "last
// selection wins" a structural guarantee. Every navigation takes a token
// before starting its load; only the result carrying the newest token is
// ever applied, no matter which load finishes first.
package selection

import (
	"context"
	"sync"
)

// Guard issues strictly increasing tokens and answers whether a token is
// still the newest one. A Guard lives for the session; there is no
// terminal state.
type Guard struct {
	mu      sync.Mutex
	current uint64
}

// NewGuard returns a guard with no request issued yet (current token 0).
func NewGuard() *Guard {
	return &Guard{}
}

// StartRequest issues a new token, superseding every earlier one.
func (g *Guard) StartRequest() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

// IsCurrent reports whether token is the most recently issued one.
func (g *Guard) IsCurrent(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return token == g.current
}

// Current returns the most recently issued token (0 before any request).
func (g *Guard) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// applyIfCurrent runs fn while holding the guard lock iff token is still
// current, so no newer token can be issued between the check and fn.
// fn must not call back into the guard.
func (g *Guard) applyIfCurrent(token uint64, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.current {
		return false
	}
	fn()
	return true
}

// Outcome reports what RunGuarded did with an operation's result.
type Outcome struct {
	Applied bool
	Token   uint64
}

// RunGuarded issues a token, runs op, and routes the result: onApply when
// the token is still current at completion, onStale otherwise. onStale is
// diagnostic only and must not touch visible state. An error from op is
// returned to the caller only while the token is still current; a
// superseded operation's error is swallowed, since its result would have
// been discarded anyway. Both callbacks may be nil.
//
// Cancellation here is emulated: a superseded op runs to completion and
// its result is dropped, rather than being aborted mid-flight.
func RunGuarded[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error), onApply func(T), onStale func(token uint64, result T)) (Outcome, error) {
	token := g.StartRequest()

	result, err := op(ctx)
	if err != nil {
		if g.IsCurrent(token) {
			return Outcome{Applied: false, Token: token}, err
		}
		return Outcome{Applied: false, Token: token}, nil
	}

	applied := g.applyIfCurrent(token, func() {
		if onApply != nil {
			onApply(result)
		}
	})
	if !applied && onStale != nil {
		onStale(token, result)
	}
	return Outcome{Applied: applied, Token: token}, nil
}
