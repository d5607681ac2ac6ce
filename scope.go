package forkjoin

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// debugLeakCheck enables the per-scope heap-job leak counter. It
// defaults to on; set FORKJOIN_DEBUG_LEAK_CHECK=0 to disable it in
// non-debug builds (see DESIGN.md for why an env-gated check is used
// instead of a build tag).
var debugLeakCheck = os.Getenv("FORKJOIN_DEBUG_LEAK_CHECK") != "0"

// helpBackoff is how long a worker sleeps between unsuccessful
// attempts to help drain work while blocked in a nested scope, once
// its own deque and steal attempts have both come up empty.
const helpBackoff = 50 * time.Microsecond

// Scope is a lifetime-bounded arena of heap-allocated tasks: an n-ary
// sibling of Join that supports an arbitrary number of spawns from
// within a single closure.
//
// Go has no region/lifetime types, so the 's brand from the original
// design is enforced only by convention: a closure passed to Spawn
// must not retain the *Scope or any of its captures beyond the
// enclosing RunScope call. Moving captured data into the closure at
// spawn time (rather than holding a reference to outer stack data)
// is the documented discipline a caller must follow.
type Scope struct {
	registry *Registry
	id       uuid.UUID
	logger   *zap.Logger

	// counter is the live-jobs count: 1 for the creating closure, +1
	// per Spawn, decremented by jobCompletedOk. It is > 0 from scope
	// entry until the creating closure returns and then strictly
	// decreases to 0 before RunScope returns.
	counter atomic.Int64

	// leakCounter tracks outstanding heapJob allocations; must be
	// zero by the time RunScope returns.
	leakCounter atomic.Int64

	panicSlot atomic.Pointer[panicPayload]

	mu   sync.Mutex
	cond *sync.Cond
}

func newScope(reg *Registry) *Scope {
	s := &Scope{
		registry: reg,
		id:       uuid.New(),
		logger:   reg.logger,
	}
	s.cond = sync.NewCond(&s.mu)
	s.counter.Store(1)
	return s
}

// Spawn enqueues closure as a new task within the scope. closure may
// run concurrently with the caller and with any other spawned task;
// all tasks spawned into s, including those spawned transitively by
// other spawned tasks, complete before the RunScope call that created
// s returns.
func (s *Scope) Spawn(closure func(*Scope)) {
	postIncrement := s.counter.Add(1)
	if postIncrement <= 1 {
		// The scope already reached zero: spawning after close is a
		// programmer error and indicates a core invariant violation,
		// so it is fatal rather than a returned error.
		panic("forkjoin: Scope.Spawn called after the scope has closed")
	}
	if debugLeakCheck {
		s.leakCounter.Add(1)
	}

	job := newHeapJob(s, closure)
	w := CurrentWorker()
	pushOrInject(s.registry, w, job)
	if w != nil {
		w.spawnCount++
	}
}

// jobCompletedOk decrements the live-jobs counter. When it reaches
// zero, the mutex is acquired before the condition variable is
// notified: this ordering is mandatory, since without it a waiter
// could observe counter > 0, then go to sleep after the notify has
// already been sent, deadlocking the scope.
func (s *Scope) jobCompletedOk() {
	if s.counter.Add(-1) == 0 {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// jobPanicked stores the first panic payload seen by the scope (a CAS
// from nil; later payloads are dropped) and then completes the job
// normally, so the counter still reaches zero.
func (s *Scope) jobPanicked(p *panicPayload) {
	s.panicSlot.CompareAndSwap(nil, p)
	if s.logger != nil {
		s.logger.Warn("scope task panicked",
			zap.String("scope_id", s.id.String()),
			zap.String("panic", p.String()))
	}
	s.jobCompletedOk()
}

func (s *Scope) decrementLeak() {
	if debugLeakCheck {
		s.leakCounter.Add(-1)
	}
}

// blockTillJobsComplete waits until the live-jobs counter reaches
// zero. A foreign (non-worker) caller parks on the condition
// variable. A worker caller opportunistically helps drain other work
// instead of parking: this is a SHOULD, not a MUST,
// but without it a single-worker registry with nested scopes can
// deadlock, since nothing else would ever run the spawned jobs.
func (s *Scope) blockTillJobsComplete(w *WorkerThread) {
	if w == nil {
		s.mu.Lock()
		for s.counter.Load() > 0 {
			s.cond.Wait()
		}
		s.mu.Unlock()
		return
	}

	for s.counter.Load() > 0 {
		if !w.helpOnce() {
			time.Sleep(helpBackoff)
		}
	}
}

// RunScope creates a Scope, invokes op with it, and blocks until every
// task transitively spawned into the scope has completed or been
// aborted. If op or any spawned task panicked, the first panic recorded
// in the scope is re-raised after every other task has finished. op's
// own panic is recorded only once op has returned, so a spawned task
// that panicked earlier on another worker takes priority over it.
func RunScope[R any](op func(*Scope) R) R {
	w := CurrentWorker()
	s := newScope(Global())

	var spawnBracket int
	if w != nil {
		spawnBracket = w.spawnCount
	}

	if s.logger != nil {
		s.logger.Debug("scope entered", zap.String("scope_id", s.id.String()))
	}

	result, opPanic := runCatchingPanic(func() R { return op(s) })
	if opPanic != nil {
		s.panicSlot.CompareAndSwap(nil, opPanic)
	}

	// Drain exactly what this goroutine pushed into its own deque for
	// this scope and that no thief has taken yet, restoring the
	// deque-shape invariant before we block.
	if w != nil {
		pushed := w.spawnCount - spawnBracket
		for i := 0; i < pushed; i++ {
			job, ok := w.deque.pop()
			if !ok {
				break
			}
			job.execute(Execute)
		}
	}

	s.jobCompletedOk() // pairs the scope's initial count of 1.
	s.blockTillJobsComplete(w)

	if debugLeakCheck {
		if leaked := s.leakCounter.Load(); leaked != 0 {
			panic("forkjoin: scope leak check failed: outstanding heap jobs")
		}
	}

	if s.logger != nil {
		s.logger.Debug("scope closed", zap.String("scope_id", s.id.String()))
	}

	if p := s.panicSlot.Load(); p != nil {
		panic(p.value)
	}
	return result
}
