// Package deadletter enqueues envelopes that failed processing, keyed by
// envelope ID and recording the phase they failed in and the recorded cause.
// Follows a dirty-tracking
// index pattern: reads never trigger I/O once bootstrapped, writes are
// flushed through to the backing store as they arrive.
package deadletter
