package lifecycle

// Config controls an AsyncUnitOfWork's observability and scheduling
// defaults. Used only during construction, then transformed into the
// ProcessingContext's internal fields — nothing here is retained or
// re-read afterward.
//
// Example JSON:
//
//	{
//	  "observer": "slog",
//	  "scheduler": "inline"
//	}
type Config struct {
	// Observer names the observability.Observer to resolve via
	// observability.GetObserver ("noop", "slog", ...).
	Observer string `json:"observer"`

	// Scheduler names the scheduler implementation: "inline" (default,
	// run-on-caller) or "pool" (goroutine worker pool, sized by
	// PoolConfig defaults).
	Scheduler string `json:"scheduler"`
}

// DefaultConfig returns the zero-overhead defaults: a noop observer and the
// inline (synchronous, run-on-caller) scheduler.
func DefaultConfig() Config {
	return Config{
		Observer:  "noop",
		Scheduler: "inline",
	}
}

// Merge overlays non-empty fields from source onto c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Scheduler != "" {
		c.Scheduler = source.Scheduler
	}
}
