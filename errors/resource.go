package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a resource error.
type ErrorCode string

const (
	// ErrResource indicates a generic XML resource error.
	ErrResource ErrorCode = "resource-error"
	// ErrParse indicates the XML data could not be parsed.
	ErrParse ErrorCode = "resource-parse"
	// ErrBlocked indicates an access-control denial for a resource location.
	ErrBlocked ErrorCode = "resource-blocked"
	// ErrForbidden indicates forbidden XML content detected while defusing.
	ErrForbidden ErrorCode = "resource-forbidden"
	// ErrOS indicates an I/O or network failure while accessing a resource.
	ErrOS ErrorCode = "resource-os"
	// ErrType indicates an argument of an unsupported type.
	ErrType ErrorCode = "resource-type"
	// ErrValue indicates an argument with an invalid value.
	ErrValue ErrorCode = "resource-value"
)

// Resource describes an XML resource error with a classification code,
// the offending URL when one is known, and an optional wrapped cause.
//
//nolint:errname // public API name uses the resource domain term.
type Resource struct {
	Code    ErrorCode
	Message string
	URL     string
	Err     error
}

// Error formats the resource error for display, including code and URL context.
func (e *Resource) Error() string {
	if e == nil {
		return "resource <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.URL != "" {
		b.WriteString(fmt.Sprintf(" (url: %s)", e.URL))
	}
	if e.Err != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Resource) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a resource error with a code and message.
func New(code ErrorCode, msg string) *Resource {
	return &Resource{Code: code, Message: msg}
}

// Newf formats a message and builds a resource error.
func Newf(code ErrorCode, format string, args ...any) *Resource {
	return &Resource{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewWithURL builds a resource error carrying the offending URL.
func NewWithURL(code ErrorCode, url, msg string) *Resource {
	return &Resource{Code: code, Message: msg, URL: url}
}

// Wrap builds a resource error wrapping a cause.
func Wrap(code ErrorCode, msg string, err error) *Resource {
	return &Resource{Code: code, Message: msg, Err: err}
}

// AsResource extracts a resource error from an error chain.
func AsResource(err error) (*Resource, bool) {
	if err == nil {
		return nil, false
	}
	var res *Resource
	if errors.As(err, &res) && res != nil {
		return res, true
	}
	return nil, false
}

// Is reports whether the error chain contains a resource error with the code.
func Is(err error, code ErrorCode) bool {
	res, ok := AsResource(err)
	return ok && res.Code == code
}

// IsBlocked reports whether the error is an access-control denial.
func IsBlocked(err error) bool { return Is(err, ErrBlocked) }

// IsForbidden reports whether the error is a defuser detection.
func IsForbidden(err error) bool { return Is(err, ErrForbidden) }

// IsParse reports whether the error wraps an XML syntax error.
func IsParse(err error) bool { return Is(err, ErrParse) }
