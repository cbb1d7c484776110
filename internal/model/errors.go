package model

import (
	"errors"
	"fmt"
)

// dependencyUnavailableError signals a missing external runtime (llama-server).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// insufficientMemoryError reports that the host cannot hold the model.
type insufficientMemoryError struct {
	needMB      uint64
	availableMB uint64
}

func (e insufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient memory: need %d MB, %d MB available", e.needMB, e.availableMB)
}

// IsInsufficientMemory reports whether err came from the memory preflight.
func IsInsufficientMemory(err error) bool {
	var e insufficientMemoryError
	return errors.As(err, &e)
}

// backendError is a non-2xx answer from llama-server.
type backendError struct {
	path   string
	status int
	body   string
}

func (e backendError) Error() string {
	return fmt.Sprintf("llama-server %s: http %d: %s", e.path, e.status, e.body)
}

// StatusCode exposes the upstream status.
func (e backendError) StatusCode() int { return e.status }
