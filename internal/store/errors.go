package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/attrstore/internal/attr"
)

// Error is returned by every Store operation that fails.
//
// Errors fall into three categories:
//   - Connection: the database is unreachable or a statement failed
//   - Conversion: a stored value cannot be coerced to the requested type
//   - Usage: the caller broke the channel or transaction protocol
//
// The store never retries. Callers decide whether to roll back.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failed operation ("save", "lookup", "flush", ...).
	Op string

	// Kind is the attribute kind involved, if any.
	Kind string

	// Attribute is the attribute code involved, if any.
	Attribute string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeConnection indicates a storage or statement failure.
	ErrCodeConnection ErrorCode = "CONNECTION"

	// ErrCodeConversion indicates a value that cannot be decoded.
	ErrCodeConversion ErrorCode = "CONVERSION"

	// ErrCodeUsage indicates a programming error by the caller.
	ErrCodeUsage ErrorCode = "USAGE"
)

// Usage sentinels, wrapped in an *Error with ErrCodeUsage.
var (
	ErrChannelNotOpen = errors.New("insert channel not open")
	ErrChannelOpen    = errors.New("insert channel already open")
	ErrPendingInserts = errors.New("insert channels hold unflushed rows")
	ErrClosed         = errors.New("store is closed")
	ErrBufferKind     = errors.New("buffer holds another kind")
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Op)
	if e.Kind != "" {
		b.WriteString(" ")
		b.WriteString(e.Kind)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&b, " attribute %q", e.Attribute)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func connectionError(op string, kind attr.Kind, code string, err error) error {
	return &Error{Code: ErrCodeConnection, Op: op, Kind: kind.Name, Attribute: code, Err: err}
}

func conversionError(op string, kind attr.Kind, code string, err error) error {
	return &Error{Code: ErrCodeConversion, Op: op, Kind: kind.Name, Attribute: code, Err: err}
}

func usageError(op string, kind attr.Kind, err error) error {
	return &Error{Code: ErrCodeUsage, Op: op, Kind: kind.Name, Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsConnectionError reports whether err is a storage failure.
func IsConnectionError(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

// IsConversionError reports whether err is a value conversion failure.
// Bare attr.ErrConversion errors match too.
func IsConversionError(err error) bool {
	return hasCode(err, ErrCodeConversion) || errors.Is(err, attr.ErrConversion)
}

// IsUsageError reports whether err is a protocol violation by the caller.
func IsUsageError(err error) bool {
	return hasCode(err, ErrCodeUsage)
}
