package internal

import (
	"fmt"
	"strings"
)

// AuthenticationError is returned when the remote system does not mint an
// access token for a deployment path.
type AuthenticationError struct {
	Path string
	Err  error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("authentication error: no token issued for %s", e.Path)
	}
	return fmt.Sprintf("authentication error: %s: %v", e.Path, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// MalformedSourceError represents a proxy document whose first line is not a
// usable embed URL
type MalformedSourceError struct {
	Source string // proxy document name
	Line   string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source [%s] %q: %v", e.Source, e.Line, e.Err)
}

func (e *MalformedSourceError) Unwrap() error {
	return e.Err
}

// ClassificationError represents an artifact that is neither a business
// process nor a data transform.
type ClassificationError struct {
	Name string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification error [%s]: class must extend either %s or %s",
		e.Name, SuperBusinessProcess, SuperDataTransform)
}

// QueryError represents a failed parameterized query
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error [%s]: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// RemoteError represents a non-successful response from the remote system's API
type RemoteError struct {
	Endpoint string
	Status   int
	Messages []string
}

func (e *RemoteError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("remote error [%s]: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("remote error [%s]: status %d: %s", e.Endpoint, e.Status, strings.Join(e.Messages, "; "))
}
