package types

import (
	"errors"
	"log/slog"
	"time"
)

// Memory is the location that opens a private in-memory database.
const Memory = ":memory:"

// DefaultRegexpTimeout bounds one evaluation of the built-in regexp function
// when Config.RegexpTimeout is zero.
const DefaultRegexpTimeout = time.Second

// Config holds the parameters for opening a connection.
type Config struct {
	// Location is a file path, a file: URI, or Memory. Empty means Memory.
	Location string `json:"location" yaml:"location"`

	// ReadOnly opens the database without write access. A missing file is
	// an error instead of being created.
	ReadOnly bool `json:"read_only" yaml:"read_only"`

	// BusyTimeout is how long the engine waits on a locked database before
	// reporting busy. Zero disables waiting.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	// RegexpTimeout bounds one match of the built-in regexp function. A
	// match that runs longer fails the statement. Zero means
	// DefaultRegexpTimeout.
	RegexpTimeout time.Duration `json:"regexp_timeout" yaml:"regexp_timeout"`

	// Logger receives connection lifecycle events. Nil means slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Config validation errors.
var (
	ErrBusyTimeoutInvalid   = errors.New("busy timeout must not be negative")
	ErrRegexpTimeoutInvalid = errors.New("regexp timeout must not be negative")
	ErrReadOnlyMemory       = errors.New("an in-memory database cannot be opened read-only")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.BusyTimeout < 0 {
		return ErrBusyTimeoutInvalid
	}
	if c.RegexpTimeout < 0 {
		return ErrRegexpTimeoutInvalid
	}
	if c.ReadOnly && c.IsMemory() {
		return ErrReadOnlyMemory
	}
	return nil
}

// IsMemory reports whether the Config names an in-memory database.
func (c Config) IsMemory() bool {
	return c.Location == "" || c.Location == Memory
}

// MatchTimeout returns the regexp bound in effect.
func (c Config) MatchTimeout() time.Duration {
	if c.RegexpTimeout == 0 {
		return DefaultRegexpTimeout
	}
	return c.RegexpTimeout
}

// Log returns the configured logger or the process default.
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
