package service

import (
	"errors"
	"fmt"
)

// ErrNoData is returned by Dashboard when no reading has been stored yet.
var ErrNoData = errors.New("no data yet")

const (
	reasonMissing    = "missing field"
	reasonNotNumeric = "not numeric"
)

// ValidationError reports a malformed ingestion field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

// PersistenceError wraps a failed write to the reading store.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist reading: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InternalError wraps a store or render failure while building a response.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error { return e.Err }
