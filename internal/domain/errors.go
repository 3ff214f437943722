package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure for routing: user-facing kinds are rendered
// back to the sender as chat text, everything else collapses to a generic
// failure message with the full chain logged internally.
type ErrorKind string

const (
	KindParse            ErrorKind = "parse"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindFlagged          ErrorKind = "flagged"
	KindNothingToRepeat  ErrorKind = "nothing_to_repeat"
	KindConfig           ErrorKind = "config"
	KindUpstream         ErrorKind = "upstream"
	KindPersistence      ErrorKind = "persistence"

	// KindValueTooLarge is the persistence sub-kind a property store returns
	// when a value exceeds its size limit. Only this kind triggers the
	// drop-oldest-and-retry save loop in the history ledger.
	KindValueTooLarge ErrorKind = "value_too_large"
)

// Error is the tagged error variant used across the bot: a kind, a message
// and an optional nested cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// E constructs a leaf error of the given kind.
func E(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef constructs a leaf error with a formatted message.
func Ef(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps cause with a kind and message, preserving the chain.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the outermost tagged error in err's chain, or
// empty when no tagged error is present.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsUserFacing reports whether err should be rendered to the sender verbatim
// rather than collapsed into a generic failure message.
func IsUserFacing(err error) bool {
	switch KindOf(err) {
	case KindParse, KindUnauthorized, KindInvalidArguments, KindFlagged, KindNothingToRepeat:
		return true
	}
	return false
}

// IsValueTooLarge reports whether err's chain contains a store size-limit
// failure.
func IsValueTooLarge(err error) bool {
	for err != nil {
		var e *Error
		if errors.As(err, &e) {
			if e.Kind == KindValueTooLarge {
				return true
			}
			err = e.Cause
			continue
		}
		err = errors.Unwrap(err)
	}
	return false
}

// FormatCauseChain renders err and every nested cause on a single line,
// joined by "caused by", for internal logging.
func FormatCauseChain(err error) string {
	var parts []string
	for err != nil {
		var e *Error
		if errors.As(err, &e) {
			parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind, e.Message))
			err = e.Cause
			continue
		}
		parts = append(parts, err.Error())
		err = errors.Unwrap(err)
	}
	return strings.Join(parts, " caused by ")
}
