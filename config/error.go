package config

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors.Is for unknown servers and tools.
var ErrNotFound = errors.New("not found")

// ConfigError reports a configuration file that exists but cannot be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %v: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotFoundError names the missing server or tool.
type NotFoundError struct {
	Server string
	Tool   string
}

func (e *NotFoundError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("server %q not found", e.Server)
	}
	return fmt.Sprintf("tool %q not found on server %q", e.Tool, e.Server)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IOError reports a filesystem failure while persisting the registry.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %v %v: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
