// Package watcher reports changes to the files a livedoc run depends on.
//
// Files are watched through their parent directories so that editors which
// save by writing a temporary file and renaming it over the original keep
// being seen. Rapid changes are coalesced by a Debouncer into batches, and
// Run hands each batch to a callback on a single goroutine.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrIsDirectory     = errors.New("path is a directory")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a change to a watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op is the operation that occurred. Coalesced events carry every
	// operation seen.
	Op Op

	// Timestamp is when the (last) event occurred.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	// WatchedPaths is the number of files being watched.
	WatchedPaths int

	// PendingEvents is the number of events waiting to be delivered.
	PendingEvents int

	// TotalEvents is the total number of events delivered.
	TotalEvents int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error
}

// Watcher monitors individual files.
type Watcher interface {
	// Watch starts watching a file. Its directory must exist; the file
	// itself may not exist yet.
	Watch(path string) error

	// Unwatch stops watching a file.
	Unwatch(path string) error

	// Events returns the channel of file change events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel of watcher errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error

	// Stats returns watcher statistics.
	Stats() Stats

	// IsWatching returns true if the file is being watched.
	IsWatching(path string) bool

	// WatchedPaths returns all files being watched.
	WatchedPaths() []string
}

// Config holds watcher configuration options.
type Config struct {
	// DebounceDelay is the quiet period after the last event before a
	// batch is delivered.
	// Default: 100ms
	DebounceDelay time.Duration

	// BufferSize is the size of the event and error channels.
	// Default: 100
	BufferSize int

	// Logger receives dropped events and watcher errors.
	// Default: discards
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		BufferSize:    100,
		Logger:        slog.New(slog.DiscardHandler),
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(c *Config) {
		c.DebounceDelay = d
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Run delivers batches from d to handle until ctx is cancelled or d is
// closed. Errors are logged. handle runs on the calling goroutine, one
// batch at a time.
func Run(ctx context.Context, d *Debouncer, logger *slog.Logger, handle func([]Event)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-d.Batches():
			if !ok {
				return ErrWatcherClosed
			}
			handle(batch)
		case err, ok := <-d.Errors():
			if !ok {
				return ErrWatcherClosed
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}
