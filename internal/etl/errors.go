package etl

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected      = errors.New("connection not established, call Connect first")
	ErrUnknownPipeline   = errors.New("unknown pipeline")
	ErrDuplicatePipeline = errors.New("pipeline already registered")
)

// ExtractionError wraps an I/O failure while reading the operational store.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// LoadError wraps an I/O failure while writing the analytics store.
type LoadError struct {
	Target string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Target, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
