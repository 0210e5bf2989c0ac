package sandbox

// Config defines runner configuration
type Config struct {
	MaxCallStack int    // goja call stack depth cap
	EventBuffer  int    // Outbound channel capacity; a full buffer drops, never blocks the VM
	OnDrop       func() // Invoked when a full buffer discards an event; nil to ignore
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxCallStack: 1024,
		EventBuffer:  256,
	}
}
