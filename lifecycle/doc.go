// Package lifecycle implements the asynchronous Unit-of-Work processing
// engine: a cooperative, phase-ordered state machine that drives a message
// through an ordered sequence of phases, accumulates resources and terminal
// hooks along the way, and guarantees deterministic ordering, single-commit
// semantics, and safe fan-out of error/completion notifications even when
// hooks are registered concurrently with execution.
//
// AsyncUnitOfWork is the façade applications use; ProcessingContext holds
// the actual state machine. Handlers are dispatched onto a pluggable
// scheduler.Scheduler — synchronously by default, or concurrently within a
// phase bucket when backed by a goroutine pool.
package lifecycle
