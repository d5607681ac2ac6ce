package forkjoin

// heapJob is a job associated with a Scope: it owns its closure and
// carries a non-owning back-reference to the scope that created it.
// The scope is known to outlive the job because the scope blocks on
// its live-jobs counter, which was incremented before this job was
// published and is only decremented on completion.
type heapJob struct {
	scope *Scope
	f     func(*Scope)
}

func newHeapJob(s *Scope, f func(*Scope)) *heapJob {
	return &heapJob{scope: s, f: f}
}

// execute implements jobRef. Abort decrements the scope's counter
// without running f, releasing a waiter blocked in a scope that is
// being torn down by the registry.
func (j *heapJob) execute(mode Mode) {
	// Release the leak count before completing the job: the last
	// completion may wake RunScope, which then checks the leak counter.
	j.scope.decrementLeak()

	if mode == Abort {
		j.scope.jobCompletedOk()
		return
	}

	_, payload := runCatchingPanic(func() struct{} {
		j.f(j.scope)
		return struct{}{}
	})
	if payload != nil {
		j.scope.jobPanicked(payload)
	} else {
		j.scope.jobCompletedOk()
	}
}
