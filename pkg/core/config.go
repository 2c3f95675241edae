package core

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file path.
	Path string
	// MaxInFlight bounds the number of facade calls allowed to touch
	// storage at once. Further callers queue; they are not rejected.
	MaxInFlight int
	// Logger receives store diagnostics. Defaults to NopLogger.
	Logger Logger
}

// DefaultMaxInFlight is the dispatch bound used when none is configured.
const DefaultMaxInFlight = 16

// DefaultConfig returns the default configuration for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		MaxInFlight: DefaultMaxInFlight,
		Logger:      NopLogger(),
	}
}
