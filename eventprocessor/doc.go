// Package eventprocessor wires envelope, lifecycle, tokenstore, store, and
// deadletter together into a runnable pipeline: one lifecycle.AsyncUnitOfWork
// per envelope, validation and invocation registered on phase.Invocation,
// token advancement on phase.PrepareCommit, a durable envelope snapshot on
// phase.Commit, and dead-letter enqueue wired through OnError. It exists to
// exercise the core lifecycle contract end to end rather than only describe
// it.
package eventprocessor
