// Package forkjoin provides a data-parallel work-stealing runtime: a
// fixed pool of worker goroutines, each owning a double-ended work
// queue, plus two client-facing primitives built on top of it.
//
// Join launches two closures and returns once both have completed,
// allocating its task entirely on the caller's stack. Scope supports
// an arbitrary number of heap-allocated spawns within a closure and
// guarantees every transitively-spawned task completes before the
// call returns. The forkjoin/iter subpackage lowers bulk,
// split-driven data operations into recursive Join calls.
//
// The runtime supports:
//   - A Chase-Lev-style work-stealing deque per worker
//   - Panic propagation across task boundaries (left-priority for
//     Join, first-wins for Scope)
//   - Foreign (non-worker) goroutine submission via an injection queue
//   - Worker-count resolution from explicit config, an environment
//     variable, an optional TOML file, or hardware parallelism
//   - Optional structured logging and a debug-mode heap-job leak check
package forkjoin
