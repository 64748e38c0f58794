package browser

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Lease is the right to use one browsing context until explicit release;
// accounted against the owning Instance. Release MUST run on every exit
// path from the render pipeline, successful or not, and must be safe to
// call more than once.
type Lease struct {
	instance *Instance
	ctx      leaseContext
	pool     *Pool
	once     sync.Once
}

// Context returns the Go context carrying the leased browsing context and
// page, for use with the render pipeline's chromedp actions.
func (l *Lease) Context() context.Context {
	return l.ctx.Context()
}

// InstanceID identifies the browser process backing this lease.
func (l *Lease) InstanceID() int {
	return l.instance.ID
}

// Release closes the page then the context, decrements the owning
// instance's lease count (saturating at zero), and asks the pool to drain
// one waiter from its queue. Guarded so double-release is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		if err := l.ctx.Close(); err != nil {
			l.pool.logger.Debug("error closing leased context",
				zap.Int("instance_id", l.instance.ID),
				zap.Error(err))
		}
		l.instance.unreserve()
		l.pool.processQueue()
	})
}
