package lifecycle

import "sync/atomic"

// Status is the monotonic lifecycle state of a ProcessingContext. Valid
// transitions are NotStarted->Started, Started->CompletedOK, and
// Started->CompletedError; any other transition is a programming error, not
// a user-facing one, and is never attempted by this package.
type Status int32

const (
	NotStarted Status = iota
	Started
	CompletedOK
	CompletedError
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Started:
		return "STARTED"
	case CompletedOK:
		return "COMPLETED_OK"
	case CompletedError:
		return "COMPLETED_ERROR"
	default:
		return "UNKNOWN"
	}
}

// statusWord is an atomic.Int32-backed Status with CAS transition helpers.
type statusWord struct {
	v atomic.Int32
}

func (w *statusWord) load() Status {
	return Status(w.v.Load())
}

func (w *statusWord) compareAndSwap(from, to Status) bool {
	return w.v.CompareAndSwap(int32(from), int32(to))
}
