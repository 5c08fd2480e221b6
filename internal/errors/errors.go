package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/trainsync/internal/logger"
)

// Kind classifies a failure so callers can branch on it without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingTime
	KindMalformedTime
	KindOutOfRangeTime
	KindRemoteNotFound
	KindRemoteTransient
	KindStoreAccess
	KindMissingIdentifier
	KindInvalidAction
)

func (k Kind) String() string {
	switch k {
	case KindMissingTime:
		return "missing_time"
	case KindMalformedTime:
		return "malformed_time"
	case KindOutOfRangeTime:
		return "out_of_range_time"
	case KindRemoteNotFound:
		return "remote_not_found"
	case KindRemoteTransient:
		return "remote_transient"
	case KindStoreAccess:
		return "store_access"
	case KindMissingIdentifier:
		return "missing_identifier"
	case KindInvalidAction:
		return "invalid_action"
	default:
		return "unknown"
	}
}

// Error is a failure tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons. They carry only a Kind.
var (
	ErrMissingTime       = &Error{Kind: KindMissingTime}
	ErrMalformedTime     = &Error{Kind: KindMalformedTime}
	ErrOutOfRangeTime    = &Error{Kind: KindOutOfRangeTime}
	ErrRemoteNotFound    = &Error{Kind: KindRemoteNotFound}
	ErrRemoteTransient   = &Error{Kind: KindRemoteTransient}
	ErrStoreAccess       = &Error{Kind: KindStoreAccess}
	ErrMissingIdentifier = &Error{Kind: KindMissingIdentifier}
	ErrInvalidAction     = &Error{Kind: KindInvalidAction}
)

// New returns an Error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err marks an absent remote task or event.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrRemoteNotFound)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
