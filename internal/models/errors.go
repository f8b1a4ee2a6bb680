package models

import (
	"errors"
	"fmt"
)

// A RetryableError is a failure worth another attempt
type RetryableError struct {
	Reason string
	Err    error
}

func (e *RetryableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("retryable: %s", e.Reason)
	}
	return fmt.Sprintf("retryable: %s: %v", e.Reason, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError wraps err as retryable
func NewRetryableError(reason string, err error) *RetryableError {
	return &RetryableError{Reason: reason, Err: err}
}

// A PermanentError is a failure that will not succeed on retry
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("permanent: %s", e.Reason)
	}
	return fmt.Sprintf("permanent: %s: %v", e.Reason, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err as permanent
func NewPermanentError(reason string, err error) *PermanentError {
	return &PermanentError{Reason: reason, Err: err}
}

// A DuplicateError reports that the downstream already holds the item
type DuplicateError struct {
	ID  string
	Err error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate item %s", e.ID)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

// A SerializationError is an encode or decode failure of a payload
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("avro %s: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// A TransportError is a failed publish to a topic
type TransportError struct {
	Topic string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsPermanent reports whether err carries a PermanentError
func IsPermanent(err error) bool {
	var target *PermanentError
	return errors.As(err, &target)
}

// IsDuplicate reports whether err carries a DuplicateError
func IsDuplicate(err error) bool {
	var target *DuplicateError
	return errors.As(err, &target)
}

// IsSerialization reports whether err carries a SerializationError
func IsSerialization(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}
