package geonames

import (
	"errors"
	"fmt"
)

// Kind classifies a failed lookup.
type Kind int

const (
	// Service is any other error envelope returned by GeoNames, or a
	// non-retryable HTTP failure without one.
	Service Kind = iota
	// Connection is a transport failure (DNS, TCP, timeout). Not retried here.
	Connection
	// RetryExhausted means every attempt got a retryable HTTP status.
	RetryExhausted
	// Malformed is a success response that is not JSON or lacks fields.
	Malformed
	// Authentication is a rejected or under-privileged account.
	Authentication
	// CreditLimit is an exceeded hourly, daily or weekly quota.
	CreditLimit
	// InvalidDate means the service returned no dates for the request.
	InvalidDate
)

func (k Kind) String() string {
	switch k {
	case Connection:
		return "connection"
	case RetryExhausted:
		return "retry exhausted"
	case Malformed:
		return "malformed response"
	case Authentication:
		return "authentication"
	case CreditLimit:
		return "credit limit"
	case InvalidDate:
		return "invalid date"
	default:
		return "service"
	}
}

// Error is returned by every failing FindTimezone call.
type Error struct {
	Kind Kind
	// Code is the GeoNames status value, zero when not from an envelope.
	Code int
	// Status is the HTTP status of a failed response without an envelope.
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := "geonames " + e.Kind.String() + " error"
	if e.Code != 0 {
		s += fmt.Sprintf(" (%d)", e.Code)
	}
	if e.Status != 0 {
		s += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// IsFatal reports whether the whole batch must stop: further calls would
// fail the same way or burn quota.
func (e *Error) IsFatal() bool {
	return e.Kind == Authentication || e.Kind == CreditLimit
}

// IsFatal reports whether err carries a fatal *Error.
func IsFatal(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.IsFatal()
}

// KindOf returns the Kind of err and whether it is a geonames error at all.
func KindOf(err error) (Kind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return Service, false
}
