package scheduler

import "runtime"

// PoolConfig controls a goroutine-pool Scheduler's worker sizing and queue
// depth. Follows the configuration-only-at-initialization convention used
// throughout this module: a PoolConfig is consumed once by NewPool and never
// retained by the running Pool.
type PoolConfig struct {
	// Workers is the number of goroutines draining the task queue. Zero
	// means auto-detect: runtime.NumCPU(), capped by WorkerCap.
	Workers int `json:"workers"`

	// WorkerCap bounds auto-detected Workers. Ignored when Workers > 0.
	WorkerCap int `json:"worker_cap"`

	// QueueSize is the task channel's buffer capacity. Zero means
	// unbuffered (Submit blocks until a worker is free).
	QueueSize int `json:"queue_size"`
}

// DefaultPoolConfig returns sensible defaults: auto-detected worker count
// capped at 16 (suitable for I/O-bound handler work), and a modest queue
// buffer so bursts of registrations don't immediately block Submit.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:   0,
		WorkerCap: 16,
		QueueSize: 64,
	}
}

// Merge overlays non-zero fields from source onto c.
func (c *PoolConfig) Merge(source *PoolConfig) {
	if source.Workers > 0 {
		c.Workers = source.Workers
	}
	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}
}

func resolveWorkerCount(workers, workerCap int) int {
	if workers > 0 {
		return workers
	}

	n := min(runtime.NumCPU(), workerCap)
	if n <= 0 {
		n = 1
	}
	return n
}
