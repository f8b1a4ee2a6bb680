// Package routing decides where an item ordered message goes after each processing attempt
package routing

import (
	"net/http"
	"orderconsumer/internal/models"
)

// An Outcome is the classified result of one processing attempt
type Outcome int

const (
	Success Outcome = iota
	Retryable
	Permanent
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Permanent:
		return "permanent"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Classify maps a processing error to an Outcome, unclassified errors are permanent
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}

	switch {
	case models.IsDuplicate(err):
		return Duplicate
	case models.IsRetryable(err):
		return Retryable
	default:
		return Permanent
	}
}

// ClassifyStatus maps a downstream response status to an Outcome
func ClassifyStatus(code int) Outcome {
	switch code {
	case http.StatusOK, http.StatusCreated:
		return Success
	case http.StatusConflict:
		return Duplicate
	case http.StatusBadRequest, http.StatusUnauthorized:
		return Permanent
	default:
		return Retryable
	}
}
