package models

import (
	"errors"
	"fmt"
)

// ErrTransport is the sentinel every transport failure matches with errors.Is.
var ErrTransport = errors.New("transport error")

// AIError is the error body returned by the gateway and OpenAI-compatible APIs.
type AIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// TransportError wraps a failed call with the operation and HTTP status, when there was one.
type TransportError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s request failed with status code '%d': %s (%v)", e.Operation, e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s request failed with status code '%d': %s", e.Operation, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s request failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes every TransportError match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
