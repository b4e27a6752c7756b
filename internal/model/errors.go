package model

import (
	"errors"
	"fmt"
)

// ErrMissingInput is returned when a request carries neither text nor URL
var ErrMissingInput = errors.New("provide 'text' or 'url'")

// ErrClassificationParse marks model output that held no usable JSON object
var ErrClassificationParse = errors.New("model output is not a JSON object")

// InputError reports a malformed verification request
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

// FetchError reports a failed retrieval of one URL
type FetchError struct {
	URL        string
	StatusCode int   // Zero for transport errors
	Err        error // Transport or read error, if any
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AnalyticsError reports a failed language or key-phrase call
type AnalyticsError struct {
	Op  string
	Err error
}

func (e *AnalyticsError) Error() string {
	return fmt.Sprintf("analytics %s: %v", e.Op, e.Err)
}

func (e *AnalyticsError) Unwrap() error { return e.Err }

// PersistenceError reports that a verdict could not be recorded
type PersistenceError struct {
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist verdict %s: %v", e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsInputError reports whether err is an InputError
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsPersistenceError reports whether err is a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
