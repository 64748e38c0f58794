package browser

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// instanceStatus mirrors the teacher's ChromeStatus enum, generalized for
// an elastic pool where an instance may be leased by several concurrent
// requests at once.
type instanceStatus int32

const (
	instanceStatusHealthy instanceStatus = iota
	instanceStatusDead
)

// Instance is a handle to one live browser process: an engine, its leased
// context count, and its timestamps. Created by the pool; mutated only by
// the pool's scheduler and health ticker.
type Instance struct {
	ID        int
	engine    engineHandle
	createdAt time.Time
	logger    *zap.Logger

	status       int32 // instanceStatus
	leaseCount   int32 // atomic, current leased-context count
	lastUsedNano int64 // atomic, unix nanoseconds
}

func newInstance(id int, engine engineHandle, logger *zap.Logger) *Instance {
	now := time.Now().UTC()
	return &Instance{
		ID:           id,
		engine:       engine,
		createdAt:    now,
		logger:       logger,
		status:       int32(instanceStatusHealthy),
		lastUsedNano: now.UnixNano(),
	}
}

// LeaseCount returns the instance's current leased-context count.
func (i *Instance) LeaseCount() int {
	return int(atomic.LoadInt32(&i.leaseCount))
}

// Healthy reports whether the instance has not been marked dead.
func (i *Instance) Healthy() bool {
	return instanceStatus(atomic.LoadInt32(&i.status)) == instanceStatusHealthy
}

// Alive asks the underlying engine directly; used by the health ticker.
func (i *Instance) Alive() bool {
	if !i.Healthy() {
		return false
	}
	return i.engine.Alive()
}

// MarkDead flags the instance as no longer usable. Idempotent.
func (i *Instance) MarkDead() {
	atomic.StoreInt32(&i.status, int32(instanceStatusDead))
}

// Age returns how long the instance has been running.
func (i *Instance) Age() time.Duration {
	return time.Now().UTC().Sub(i.createdAt)
}

// IdleDuration returns how long the instance has had zero leases.
func (i *Instance) IdleDuration() time.Duration {
	return time.Since(time.Unix(0, atomic.LoadInt64(&i.lastUsedNano)))
}

// reserve increments the lease count before context creation, so
// concurrent acquirers observe the reservation even while the engine call
// that follows is still in flight (see Acquire algorithm step 4).
func (i *Instance) reserve() {
	atomic.AddInt32(&i.leaseCount, 1)
	atomic.StoreInt64(&i.lastUsedNano, time.Now().UTC().UnixNano())
}

// unreserve rolls back a reservation whose context creation failed, or
// releases a completed lease. Saturates at zero.
func (i *Instance) unreserve() {
	for {
		cur := atomic.LoadInt32(&i.leaseCount)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&i.leaseCount, cur, cur-1) {
			atomic.StoreInt64(&i.lastUsedNano, time.Now().UTC().UnixNano())
			return
		}
	}
}

// hasCapacity reports whether the instance can accept one more lease.
func (i *Instance) hasCapacity(maxContexts int) bool {
	return i.Healthy() && i.LeaseCount() < maxContexts
}

func (i *Instance) close() error {
	i.MarkDead()
	return i.engine.Close()
}
