package forkjoin

import (
	"bytes"
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WorkerThread is the thread-local state of one worker goroutine: its
// index in the registry, its own deque, and the spawn-count bracket
// used to keep scope-spawned pushes from growing the deque across a
// join/scope call boundary.
type WorkerThread struct {
	registry *Registry
	index    int
	deque    *deque

	// spawnCount is non-atomic: only the owning goroutine ever reads
	// or writes it, used to bracket Scope.Spawn pushes so the owner
	// can drain exactly what it pushed and nothing else.
	spawnCount int

	rng *rand.Rand
}

var (
	workersMu sync.RWMutex
	workers   = map[int64]*WorkerThread{}
)

// goroutineID extracts the numeric goroutine id from the current
// goroutine's stack trace header ("goroutine 123 [running]: ..."). It
// is the standard library-only technique for goroutine-local storage;
// see DESIGN.md for why no third-party goroutine-id library is wired.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseInt(string(buf), 10, 64)
	return id
}

// CurrentWorker returns the WorkerThread owned by the calling
// goroutine, or nil if the caller is not a registry worker (a
// "foreign" thread).
func CurrentWorker() *WorkerThread {
	workersMu.RLock()
	w := workers[goroutineID()]
	workersMu.RUnlock()
	return w
}

func registerWorker(w *WorkerThread) {
	workersMu.Lock()
	workers[goroutineID()] = w
	workersMu.Unlock()
}

func deregisterCurrentWorker() {
	workersMu.Lock()
	delete(workers, goroutineID())
	workersMu.Unlock()
}

// run is the worker's steal loop: pop the owner's deque, then the
// injection queue, then attempt a steal from a random victim; back
// off briefly if everything was empty. It never returns until the
// registry's terminate flag is set, at which point remaining jobs
// already in flight finish naturally and anything left in the deque
// is drained with mode Abort.
func (w *WorkerThread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	registerWorker(w)
	defer deregisterCurrentWorker()

	if w.registry.logger != nil {
		w.registry.logger.Debug("worker started", zap.Int("worker", w.index))
	}

	backoff := time.Microsecond
	maxBackoff := w.registry.maxIdleBackoff

	for {
		if w.registry.terminated() {
			w.drainAbort()
			return
		}

		if job, ok := w.deque.pop(); ok {
			job.execute(Execute)
			backoff = time.Microsecond
			continue
		}

		if job, ok := w.registry.injection.pop(); ok {
			job.execute(Execute)
			backoff = time.Microsecond
			continue
		}

		if job, ok := w.stealFromRandomVictim(); ok {
			job.execute(Execute)
			backoff = time.Microsecond
			continue
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// stealFromRandomVictim tries every other worker once, starting from a
// pseudorandom offset, and returns the first successfully stolen job.
func (w *WorkerThread) stealFromRandomVictim() (jobRef, bool) {
	n := len(w.registry.workers)
	if n <= 1 {
		return nil, false
	}
	start := w.rng.Intn(n)
	for i := 0; i < n; i++ {
		victimID := (start + i) % n
		if victimID == w.index {
			continue
		}
		if job, ok := w.registry.workers[victimID].deque.steal(); ok {
			return job, true
		}
	}
	return nil, false
}

// drainAbort pops every remaining job from the owner's deque and
// releases it with mode Abort, without running user code.
func (w *WorkerThread) drainAbort() {
	for {
		job, ok := w.deque.pop()
		if !ok {
			return
		}
		job.execute(Abort)
	}
}

// pushOrInject publishes job onto the current worker's deque if w is
// non-nil, otherwise into the registry's injection queue. Used by
// both Join and Scope.Spawn for the "am I a worker or a foreign
// caller" branch.
func pushOrInject(reg *Registry, w *WorkerThread, job jobRef) {
	if w != nil {
		w.deque.push(job)
		return
	}
	// context.Background() never cancels; the only error inject can
	// return is ctx.Err(), so this is infallible in practice.
	_ = reg.inject(context.Background(), job)
}

// helpOnce tries to make progress on behalf of a blocked caller: pop
// the owner's own deque, or steal one job, returning whether any work
// was run. Used by Join's busy-help loop and by Scope's opportunistic
// helping while a worker blocks on a nested scope.
func (w *WorkerThread) helpOnce() bool {
	if job, ok := w.deque.pop(); ok {
		job.execute(Execute)
		return true
	}
	if job, ok := w.stealFromRandomVictim(); ok {
		job.execute(Execute)
		return true
	}
	return false
}
