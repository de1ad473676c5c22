package archie

import (
	"errors"
	"fmt"
)

// Kind tags which failure domain an Error came from.
type Kind int

const (
	// KindEnvironment: configuration or secret loading failed before any network activity.
	KindEnvironment Kind = iota + 1
	// KindAPI: the generation backend failed (client construction, request build or execution).
	KindAPI
	// KindRequest: an HTTP-layer failure while extracting a source page.
	KindRequest
	// KindGeneral: an extraction failure outside the network layer.
	KindGeneral
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "Environment"
	case KindAPI:
		return "API"
	case KindRequest:
		return "Request"
	case KindGeneral:
		return "General"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type surfaced by this package.
// For KindAPI the message is the nested error's description; the nested
// error itself stays reachable through errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// EnvironmentError reports a configuration failure.
func EnvironmentError(format string, args ...any) *Error {
	return &Error{Kind: KindEnvironment, Message: fmt.Sprintf(format, args...)}
}

// APIError wraps a failure from a generation backend.
func APIError(err error) *Error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindAPI, Message: msg, Err: err}
}

// RequestError reports an HTTP-layer failure, prefixing the cause with stage.
func RequestError(stage string, err error) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf("%s: %v", stage, err), Err: err}
}

// GeneralError reports a non-network extraction failure.
func GeneralError(msg string) *Error {
	return &Error{Kind: KindGeneral, Message: msg}
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
