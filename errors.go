package salt

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn is returned by VerifyLogin when the portal does not
// recognize the session.
var ErrNotLoggedIn = errors.New("not logged in, check username and password")

// NetworkError reports a transport failure or a non-success HTTP status.
type NetworkError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: status code error: %d", e.Method, e.URL, e.StatusCode)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports markup that does not have the expected bill list shape.
// Index is the position of the offending bill element in document order.
type ParseError struct {
	Index   int
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("invalid bill element %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("invalid bill element %d: %v (near %q)", e.Index, e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatError reports a malformed date string or an invalid PDF page index.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format %q: %v", e.Input, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
