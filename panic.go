package forkjoin

import "fmt"

// panicPayload is the value recovered from a user closure's panic. It
// is carried across the goroutine boundary and re-raised at the
// fork-join or scope call that launched the panicking task.
type panicPayload struct {
	value any
}

// String renders the payload the way a top-level panic would, for
// logging purposes only; the payload itself is re-panicked verbatim.
func (p *panicPayload) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", p.value)
}

// runCatchingPanic runs f, converting any panic into a *panicPayload
// instead of letting it unwind past the caller. Exactly one of the
// return values is meaningful: payload is nil unless f panicked.
func runCatchingPanic[R any](f func() R) (result R, payload *panicPayload) {
	defer func() {
		if r := recover(); r != nil {
			payload = &panicPayload{value: r}
		}
	}()
	result = f()
	return
}
