package forkjoin

// Join launches two closures, a and b. a always runs first on the
// calling goroutine; b is published for stealing and may run on a
// thief, or be run inline by the caller if nothing stole it first,
// or run concurrently with a on another worker. Both panic and
// success outcomes are observed before Join returns: if either
// closure panicked, Join re-raises a's panic if it panicked,
// otherwise b's.
func Join[RA, RB any](a func() RA, b func() RB) (RA, RB) {
	w := CurrentWorker()

	job := newStackJob(b)
	pushOrInject(Global(), w, job)

	resultA, panicA := runCatchingPanic(a)

	var resultB RB
	var panicB *panicPayload

	if w != nil {
		if popped, ok := w.deque.pop(); ok {
			// We got B back before any thief took it: run it inline.
			popped.execute(Execute)
		} else {
			// A thief took it; help with other work while we wait,
			// keeping the deque shape invariant by
			// only draining what this goroutine itself owns.
			for !jobDone(job) {
				if !w.helpOnce() {
					break
				}
			}
		}
	}
	resultB, panicB = job.wait()

	switch {
	case panicA != nil:
		panic(panicA.value)
	case panicB != nil:
		panic(panicB.value)
	default:
		return resultA, resultB
	}
}

// jobDone reports whether a stackJob's latch has already fired,
// without blocking.
func jobDone[R any](j *stackJob[R]) bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}
