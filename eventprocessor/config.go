package eventprocessor

// Config selects the named Observer and Scheduler each processed envelope's
// Unit of Work runs with.
type Config struct {
	Observer  string `json:"observer"`
	Scheduler string `json:"scheduler"`
}

// DefaultConfig returns a Config suitable for a single-process demo: no-op
// observability, inline (synchronous) handler dispatch.
func DefaultConfig() *Config {
	return &Config{
		Observer:  "noop",
		Scheduler: "inline",
	}
}

// Merge overlays non-zero fields from source onto c.
func (c *Config) Merge(source *Config) {
	if source == nil {
		return
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Scheduler != "" {
		c.Scheduler = source.Scheduler
	}
}
