package browser

import (
	"context"
	"sync/atomic"
)

// fakeEngine is a minimal engineHandle used to exercise the pool's
// lifecycle and queueing logic without spawning a real Chrome process,
// per the pool-injectability design note.
type fakeEngine struct {
	alive     atomic.Bool
	closed    atomic.Bool
	failNewCtx bool
}

func newFakeEngine() *fakeEngine {
	e := &fakeEngine{}
	e.alive.Store(true)
	return e
}

func (e *fakeEngine) NewLeaseContext(ctx context.Context, opts ContextOptions) (leaseContext, error) {
	if e.failNewCtx {
		return nil, errFakeContextCreation
	}
	return &fakeLeaseContext{ctx: ctx}, nil
}

func (e *fakeEngine) Alive() bool  { return e.alive.Load() }
func (e *fakeEngine) Close() error { e.closed.Store(true); e.alive.Store(false); return nil }
func (e *fakeEngine) Version() string { return "fake/1.0" }

type fakeLeaseContext struct {
	ctx    context.Context
	closed atomic.Bool
}

func (c *fakeLeaseContext) Context() context.Context { return c.ctx }
func (c *fakeLeaseContext) Close() error              { c.closed.Store(true); return nil }

var errFakeContextCreation = errFake("fake context creation failure")

type errFake string

func (e errFake) Error() string { return string(e) }

func fakeLaunchFunc(engines ...*fakeEngine) func(context.Context, int) (engineHandle, error) {
	var idx atomic.Int32
	return func(ctx context.Context, id int) (engineHandle, error) {
		i := int(idx.Add(1)) - 1
		if i < len(engines) {
			return engines[i], nil
		}
		return newFakeEngine(), nil
	}
}
