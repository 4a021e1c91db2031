package http

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch produced no usable result.
type ErrorKind string

const (
	KindTransport        ErrorKind = "transport"
	KindStatus           ErrorKind = "status"
	KindTooManyRedirects ErrorKind = "too_many_redirects"
	KindDecode           ErrorKind = "decode"
	KindFile             ErrorKind = "file"
)

// Sentinels matched by errors.Is against a *FetchError of the same kind.
var (
	ErrTransport        = errors.New("transport error")
	ErrStatus           = errors.New("unexpected status")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrDecode           = errors.New("decode error")
	ErrFile             = errors.New("file error")
)

// FetchError is the error returned by every fetch and conversion in this
// module. Result is set when a response was received, so callers can still
// inspect the status, headers and body of the failing hop.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
	Result     *FetchResult
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindStatus:
		return ErrStatus
	case KindTooManyRedirects:
		return ErrTooManyRedirects
	case KindDecode:
		return ErrDecode
	default:
		return ErrFile
	}
}

// NewError builds a FetchError of the given kind, copying the status code
// from result when present.
func NewError(kind ErrorKind, url string, err error, result *FetchResult) *FetchError {
	fe := &FetchError{Kind: kind, URL: url, Err: err, Result: result}
	if result != nil {
		fe.StatusCode = result.StatusCode
	}
	return fe
}
