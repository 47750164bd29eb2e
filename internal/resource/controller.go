package resource

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds build-time resource limits.
type Config struct {
	// MaxWorkers bounds the number of module files read concurrently.
	// If 0, defaults to GOMAXPROCS.
	MaxWorkers int64

	// ReadBytesPerSec throttles module reads. If 0, unlimited.
	ReadBytesPerSec int64
}

// Controller bounds the concurrency and read throughput of an index build.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	workers *semaphore.Weighted
	reads   *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}
	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
	if cfg.ReadBytesPerSec > 0 {
		c.reads = rate.NewLimiter(rate.Limit(cfg.ReadBytesPerSec), int(cfg.ReadBytesPerSec))
	}
	return c
}

// MaxWorkers returns the worker bound, or 0 for a nil controller.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return 0
	}
	return int(c.cfg.MaxWorkers)
}

// AcquireWorker blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker releases a slot obtained from AcquireWorker.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireRead waits until the read budget allows n bytes. Requests larger
// than one second of budget are admitted in burst-sized steps.
func (c *Controller) AcquireRead(ctx context.Context, n int64) error {
	if c == nil || c.reads == nil {
		return ctx.Err()
	}
	burst := int64(c.reads.Burst())
	for n > 0 {
		step := min(n, burst)
		if err := c.reads.WaitN(ctx, int(step)); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
