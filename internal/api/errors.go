// Package api fetches folder listings from the proxying listing API.
package api

import (
	"errors"
	"fmt"
)

// ErrorKind tells transport failures apart from undecodable bodies.
type ErrorKind int

const (
	// ErrorKindTransport covers timeouts, DNS, resets, cancellation and exhausted retries.
	ErrorKindTransport ErrorKind = iota
	// ErrorKindDecode covers bodies that are not JSON or not listing-shaped.
	ErrorKindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "transport"
	case ErrorKindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ErrEmptyInput is returned when a root link is blank after cleaning.
var ErrEmptyInput = errors.New("empty link")

// errMissingStatus marks a JSON body without the "status" field.
var errMissingStatus = errors.New(`missing "status" field`)

// FetchError is returned by Client.Fetch when no listing could be decoded.
type FetchError struct {
	Kind     ErrorKind
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s error: %v", e.Location, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is a transport FetchError.
func IsTransportError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == ErrorKindTransport
}

// IsDecodeError reports whether err is a decode FetchError.
func IsDecodeError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == ErrorKindDecode
}
