package types

import (
	"errors"
	"fmt"
)

// FsOpError is returned when a filesystem operation fails during a sync.
// It is the only failure kind the synchronizer produces.
type FsOpError struct {
	Op   string // "mkdir", "copy", "symlink", "stat", "walk"
	Path string
	Err  error
}

func (e *FsOpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FsOpError) Unwrap() error {
	return e.Err
}

// From checks if the given error is an FsOpError
func (e *FsOpError) From(err error) bool {
	var fsErr *FsOpError
	return errors.As(err, &fsErr)
}

// SourceNotFoundError is returned when the source root does not exist
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source directory not found: %s", e.Path)
}

// ConfigError is returned for invalid configuration values
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}
