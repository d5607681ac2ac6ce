package forkjoin

import "sync/atomic"

// stackJob is a job whose storage lives in the stack frame of the
// caller of Join. It holds the right-hand closure of a fork-join call,
// an outcome slot, and a latch observed by the caller once execute has
// run exactly once.
type stackJob[R any] struct {
	f func() R

	done    chan struct{}
	started atomic.Bool // guards against double-execute

	result   R
	panicked *panicPayload
}

func newStackJob[R any](f func() R) *stackJob[R] {
	return &stackJob[R]{f: f, done: make(chan struct{})}
}

// execute implements jobRef. Exactly one call, from whichever
// goroutine (owner-on-pop-failure or a thief) wins the race to run it,
// actually invokes f; the call is idempotent from the caller's point
// of view because of the CompareAndSwap guard.
func (j *stackJob[R]) execute(mode Mode) {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	defer close(j.done)

	if mode == Abort {
		return
	}
	j.result, j.panicked = runCatchingPanic(j.f)
}

// wait blocks until execute has run (or is running elsewhere and about
// to finish), then returns the outcome.
func (j *stackJob[R]) wait() (R, *panicPayload) {
	<-j.done
	return j.result, j.panicked
}
