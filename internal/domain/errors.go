package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedData is returned when the question source fails validation.
	ErrMalformedData = errors.New("malformed question data")
	// ErrInvalidRequest is returned when a requested question count is out of range.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnusableQuestion indicates an option became empty after truncation.
	ErrUnusableQuestion = errors.New("question has an empty option")
	// ErrSessionNotFound is returned when a chat has no active quiz session.
	ErrSessionNotFound = errors.New("quiz session not found")
)

// MalformedDataError points at the offending record of a question source.
type MalformedDataError struct {
	Index  int
	Reason string
}

func (e *MalformedDataError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedData, e.Reason)
	}
	return fmt.Sprintf("%s: record %d: %s", ErrMalformedData, e.Index, e.Reason)
}

func (e *MalformedDataError) Unwrap() error { return ErrMalformedData }

// InvalidRequestError carries the requested count and the bank size so callers
// can tell the user which range is accepted.
type InvalidRequestError struct {
	Requested int
	Max       int
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: question count %d not in [1, %d]", ErrInvalidRequest, e.Requested, e.Max)
}

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }
