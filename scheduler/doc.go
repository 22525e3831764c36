// Package scheduler provides the pluggable work-dispatch abstraction the
// lifecycle engine and its collaborators submit handlers and terminal hooks
// onto: Inline for synchronous run-on-caller execution, and a goroutine
// Pool for concurrent intra-bucket execution.
package scheduler
