package forkjoin

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Registry is the process-wide worker pool: a fixed set of worker
// goroutines plus an injection queue for foreign submitters. The
// process-wide Registry returned by Global is created lazily on first
// use and lives until process exit; workers never terminate in the
// common path.
type Registry struct {
	workers   []*WorkerThread
	injection *injectionQueue

	foreignLimiter *semaphore.Weighted // nil means unbounded
	logger         *zap.Logger

	maxIdleBackoff time.Duration

	terminate atomic.Bool
}

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// Global returns the process-wide Registry, constructing it with
// DefaultConfig on first call.
func Global() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry(DefaultConfig())
	})
	return globalRegistry
}

// NewRegistry constructs and starts a private registry. Most callers
// should use Global(); a private registry is useful in tests that
// need an isolated worker count.
func NewRegistry(cfg Config) *Registry {
	n := resolveNumWorkers(cfg)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxIdleBackoff := cfg.WorkerIdleTimeout
	if maxIdleBackoff <= 0 {
		maxIdleBackoff = 2 * time.Millisecond
	}

	reg := &Registry{
		workers:        make([]*WorkerThread, n),
		injection:      newInjectionQueue(),
		logger:         logger,
		maxIdleBackoff: maxIdleBackoff,
	}
	if cfg.MaxForeignSubmitters > 0 {
		reg.foreignLimiter = semaphore.NewWeighted(cfg.MaxForeignSubmitters)
	}

	for i := 0; i < n; i++ {
		w := &WorkerThread{
			registry: reg,
			index:    i,
			deque:    newDeque(64),
			rng:      rand.New(rand.NewSource(int64(i)+1)),
		}
		reg.workers[i] = w
		go w.run()
	}

	return reg
}

// terminated reports whether the registry is tearing down.
func (r *Registry) terminated() bool {
	return r.terminate.Load()
}

// Shutdown sets the terminate flag and drains the injection queue with
// mode Abort; every worker then drains its own deque with mode Abort
// and exits its loop.
// Shutdown does not wait for in-flight Execute jobs to finish running.
func (r *Registry) Shutdown() {
	r.terminate.Store(true)
	r.injection.drainAbort()
	if r.logger != nil {
		r.logger.Info("registry shutdown requested", zap.Int("workers", len(r.workers)))
	}
}

// NumWorkers reports the number of worker goroutines in the registry.
func (r *Registry) NumWorkers() int {
	return len(r.workers)
}

// inject publishes job to the injection queue, applying the
// configured foreign-submitter limiter. ctx bounds how long the
// caller is willing to wait for a limiter slot; context.Background()
// never times out.
func (r *Registry) inject(ctx context.Context, job jobRef) error {
	if r.foreignLimiter != nil {
		if err := r.foreignLimiter.Acquire(ctx, 1); err != nil {
			return err
		}
		defer r.foreignLimiter.Release(1)
	}
	r.injection.push(job)
	return nil
}
