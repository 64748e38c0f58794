// Package browser implements the BrowserPool and ContextBroker-facing
// lease machinery: a fixed-capacity, elastically-sized set of browser
// processes handed out as isolated browsing contexts under FIFO admission.
package browser

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// acquisitionState is the one-way state machine a queued waiter moves
// through: pending -> claimed (processQueue won the race) or
// pending -> cancelled (the waiter's own deadline or ctx fired first).
type acquisitionState int32

const (
	acqPending acquisitionState = iota
	acqClaimed
	acqCancelled
)

type acquireResult struct {
	lease *Lease
	err   error
}

// pendingAcquisition is a queued request for a lease: the options to apply
// once a slot frees, a one-shot completion channel, and the CAS guard that
// arbitrates between processQueue and the waiter's own deadline.
type pendingAcquisition struct {
	state    int32
	ctx      context.Context
	opts     ContextOptions
	resultCh chan acquireResult
}

// Stats is the pool's capacity snapshot, used by /health and
// /v1/pool/status.
type Stats struct {
	TotalInstances   int
	HealthyInstances int
	ActiveLeases     int
	AvailableSlots   int
	QueueLength      int
}

// Pool owns a set of browser processes between Config.MinBrowsers and
// Config.MaxBrowsers, and exposes non-blocking capacity queries plus a
// blocking, queued Acquire.
type Pool struct {
	config *Config
	logger *zap.Logger

	mu        sync.Mutex
	instances []*Instance
	queue     *list.List

	shuttingDown atomic.Bool
	initOnce     sync.Once
	initDone     chan struct{}
	initErr      error

	healthStop chan struct{}
	healthWg   sync.WaitGroup

	nextID    atomic.Int32
	createdAt time.Time
}

// NewPool constructs a pool from the given configuration. It does not
// launch any browser process; call Initialize (or Acquire, which calls it
// implicitly) to do that.
func NewPool(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		config:     config,
		logger:     logger,
		queue:      list.New(),
		initDone:   make(chan struct{}),
		healthStop: make(chan struct{}),
		createdAt:  time.Now().UTC(),
	}, nil
}

// Initialize launches MinBrowsers in parallel and starts the health
// ticker. Idempotent: concurrent callers share the same one-shot
// completion.
func (p *Pool) Initialize(ctx context.Context) error {
	p.initOnce.Do(func() {
		p.initErr = p.doInitialize(ctx)
		close(p.initDone)
	})
	<-p.initDone
	return p.initErr
}

func (p *Pool) doInitialize(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for n := 0; n < p.config.MinBrowsers; n++ {
		g.Go(func() error {
			_, err := p.launchOne(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pool initialize: %w", err)
	}
	p.startHealthTicker()
	return nil
}

func (p *Pool) defaultLaunch() func(context.Context, int) (engineHandle, error) {
	if p.config.LaunchFunc != nil {
		return p.config.LaunchFunc
	}
	return func(ctx context.Context, id int) (engineHandle, error) {
		return launchChromedpEngine(ctx)
	}
}

// launchOne spawns a new browser process if the pool has room for it.
func (p *Pool) launchOne(ctx context.Context) (*Instance, error) {
	p.mu.Lock()
	if len(p.instances) >= p.config.MaxBrowsers {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool already at max browsers (%d)", p.config.MaxBrowsers)
	}
	p.mu.Unlock()

	id := int(p.nextID.Add(1)) - 1
	engine, err := p.defaultLaunch()(ctx, id)
	if err != nil {
		p.logger.Error("failed to launch browser instance",
			zap.Int("instance_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	inst := newInstance(id, engine, p.logger)
	p.mu.Lock()
	p.instances = append(p.instances, inst)
	p.mu.Unlock()

	p.logger.Info("browser instance launched", zap.Int("instance_id", id))
	return inst, nil
}

// Acquire leases an isolated browsing context. It blocks until a lease is
// granted, the context is cancelled, or the internal acquisition deadline
// elapses.
func (p *Pool) Acquire(ctx context.Context, opts ContextOptions) (*Lease, error) {
	if p.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}

	inst, err := p.tryReserve(ctx)
	if err != nil {
		return nil, err
	}
	if inst != nil {
		return p.finishAcquire(ctx, inst, opts)
	}
	return p.enqueueAndWait(ctx, opts)
}

// tryReserve finds a healthy instance with spare capacity, launching a new
// one if the pool has room and none is free. Returns (nil, nil) when the
// caller should fall back to the FIFO queue.
func (p *Pool) tryReserve(ctx context.Context) (*Instance, error) {
	p.mu.Lock()
	for _, inst := range p.instances {
		if inst.hasCapacity(p.config.MaxContextsPerBrowser) {
			inst.reserve()
			p.mu.Unlock()
			return inst, nil
		}
	}
	canLaunch := len(p.instances) < p.config.MaxBrowsers
	p.mu.Unlock()

	if !canLaunch {
		return nil, nil
	}

	inst, err := p.launchOne(ctx)
	if err != nil {
		// Launch failures fall back to the queue rather than failing
		// the caller outright.
		return nil, nil
	}
	inst.reserve()
	// The new instance may have spare capacity beyond the slot just
	// reserved for this caller; announce it to anyone already queued.
	p.processQueue()
	return inst, nil
}

// finishAcquire builds the leased context on an already-reserved instance,
// rolling back the reservation if context creation fails.
func (p *Pool) finishAcquire(ctx context.Context, inst *Instance, opts ContextOptions) (*Lease, error) {
	lctx, err := inst.engine.NewLeaseContext(ctx, opts)
	if err != nil {
		inst.unreserve()
		p.processQueue()
		return nil, fmt.Errorf("%w: %v", ErrContextCreation, err)
	}
	return &Lease{instance: inst, ctx: lctx, pool: p}, nil
}

func (p *Pool) enqueueAndWait(ctx context.Context, opts ContextOptions) (*Lease, error) {
	pa := &pendingAcquisition{
		ctx:      ctx,
		opts:     opts,
		resultCh: make(chan acquireResult, 1),
	}

	p.mu.Lock()
	elem := p.queue.PushBack(pa)
	p.mu.Unlock()

	timer := time.NewTimer(p.config.AcquireTimeout)
	defer timer.Stop()

	select {
	case res := <-pa.resultCh:
		return res.lease, res.err
	case <-ctx.Done():
		if atomic.CompareAndSwapInt32(&pa.state, int32(acqPending), int32(acqCancelled)) {
			p.removeQueued(elem)
			return nil, ctx.Err()
		}
		res := <-pa.resultCh
		return res.lease, res.err
	case <-timer.C:
		if atomic.CompareAndSwapInt32(&pa.state, int32(acqPending), int32(acqCancelled)) {
			p.removeQueued(elem)
			return nil, ErrAcquireTimeout
		}
		res := <-pa.resultCh
		return res.lease, res.err
	}
}

func (p *Pool) removeQueued(elem *list.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.Remove(elem)
}

// processQueue drains as many satisfiable waiters as there is capacity
// for. Called after every lease release and every successful launch.
func (p *Pool) processQueue() {
	for {
		p.mu.Lock()
		if p.queue.Len() == 0 {
			p.mu.Unlock()
			return
		}

		var inst *Instance
		for _, ins := range p.instances {
			if ins.hasCapacity(p.config.MaxContextsPerBrowser) {
				inst = ins
				break
			}
		}
		if inst == nil {
			p.mu.Unlock()
			return
		}

		elem := p.queue.Front()
		pa := elem.Value.(*pendingAcquisition)
		p.queue.Remove(elem)
		p.mu.Unlock()

		if !atomic.CompareAndSwapInt32(&pa.state, int32(acqPending), int32(acqClaimed)) {
			// The waiter already won the race against its own
			// deadline; nothing to hand it, try the next one.
			continue
		}

		inst.reserve()
		lctx, err := inst.engine.NewLeaseContext(pa.ctx, pa.opts)
		if err != nil {
			inst.unreserve()
			pa.resultCh <- acquireResult{err: fmt.Errorf("%w: %v", ErrContextCreation, err)}
			continue
		}
		pa.resultCh <- acquireResult{lease: &Lease{instance: inst, ctx: lctx, pool: p}}
	}
}

func (p *Pool) startHealthTicker() {
	p.healthWg.Add(1)
	go func() {
		defer p.healthWg.Done()
		ticker := time.NewTicker(p.config.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.healthTick()
			case <-p.healthStop:
				return
			}
		}
	}()
}

func (p *Pool) healthTick() {
	p.mu.Lock()
	snapshot := append([]*Instance(nil), p.instances...)
	p.mu.Unlock()

	for _, inst := range snapshot {
		if !inst.Alive() {
			p.logger.Warn("browser instance unresponsive, evicting", zap.Int("instance_id", inst.ID))
			p.evict(inst)
			if !p.shuttingDown.Load() {
				p.maybeReplace()
			}
			continue
		}

		if inst.LeaseCount() == 0 && inst.IdleDuration() > p.config.IdleTimeout {
			p.mu.Lock()
			aboveMin := len(p.instances) > p.config.MinBrowsers
			p.mu.Unlock()
			if aboveMin {
				p.logger.Info("evicting idle browser instance", zap.Int("instance_id", inst.ID))
				p.evict(inst)
			}
		}
	}
}

func (p *Pool) evict(inst *Instance) {
	p.mu.Lock()
	for idx, ins := range p.instances {
		if ins == inst {
			p.instances = append(p.instances[:idx], p.instances[idx+1:]...)
			break
		}
	}
	p.mu.Unlock()
	_ = inst.close()
}

func (p *Pool) maybeReplace() {
	p.mu.Lock()
	need := len(p.instances) < p.config.MinBrowsers
	p.mu.Unlock()
	if !need {
		return
	}
	if _, err := p.launchOne(context.Background()); err != nil {
		p.logger.Error("failed to launch replacement browser instance", zap.Error(err))
		return
	}
	p.processQueue()
}

// Stats returns the pool's current capacity snapshot.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.instances)
	healthy := 0
	leases := 0
	for _, inst := range p.instances {
		if inst.Healthy() {
			healthy++
		}
		leases += inst.LeaseCount()
	}

	occupiedCapacity := healthy*p.config.MaxContextsPerBrowser - leases
	if occupiedCapacity < 0 {
		occupiedCapacity = 0
	}
	unlaunchedCapacity := (p.config.MaxBrowsers - total) * p.config.MaxContextsPerBrowser
	if unlaunchedCapacity < 0 {
		unlaunchedCapacity = 0
	}

	return Stats{
		TotalInstances:   total,
		HealthyInstances: healthy,
		ActiveLeases:     leases,
		AvailableSlots:   occupiedCapacity + unlaunchedCapacity,
		QueueLength:      p.queue.Len(),
	}
}

// Uptime reports how long the pool has existed.
func (p *Pool) Uptime() time.Duration {
	return time.Since(p.createdAt)
}

// Shutdown stops admitting new acquisitions, fails every queued waiter,
// stops the health ticker, and closes every browser process concurrently.
func (p *Pool) Shutdown() error {
	if !p.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	close(p.healthStop)
	p.healthWg.Wait()

	p.mu.Lock()
	for p.queue.Len() > 0 {
		elem := p.queue.Front()
		pa := elem.Value.(*pendingAcquisition)
		p.queue.Remove(elem)
		if atomic.CompareAndSwapInt32(&pa.state, int32(acqPending), int32(acqCancelled)) {
			pa.resultCh <- acquireResult{err: ErrShuttingDown}
		}
	}
	instances := p.instances
	p.instances = nil
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, inst := range instances {
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			_ = inst.close()
		}(inst)
	}
	wg.Wait()

	p.logger.Info("browser pool shut down", zap.Int("instances_closed", len(instances)))
	return nil
}
