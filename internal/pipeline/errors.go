package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	// KindTransport means a collaborator call failed (network, auth, rate limit, timeout).
	KindTransport Kind = "transport"
	// KindShape means a collaborator answered without the expected fields.
	KindShape Kind = "shape"
	// KindConfiguration means a requested strategy or credential is missing.
	KindConfiguration Kind = "configuration"
)

// Error is the only error shape a pipeline returns.
type Error struct {
	Kind    Kind
	Domain  string
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Domain != "" {
		prefix = e.Domain + " " + prefix
	}
	if e.Stage != "" {
		prefix += " error in " + string(e.Stage)
	} else {
		prefix += " error"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return prefix + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// TransportError builds a KindTransport error.
func TransportError(msg string, err error) *Error {
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// ShapeError builds a KindShape error.
func ShapeError(format string, args ...any) *Error {
	return &Error{Kind: KindShape, Message: fmt.Sprintf(format, args...)}
}

// ConfigError builds a KindConfiguration error.
func ConfigError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a pipeline *Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}

// annotate converts any stage failure into an *Error carrying domain and
// stage. Foreign errors are classified by the stage that raised them.
func annotate(err error, domain string, stage Stage) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		out := *pe
		if out.Domain == "" {
			out.Domain = domain
		}
		if out.Stage == "" {
			out.Stage = stage
		}
		return &out
	}

	kind := KindTransport
	switch stage {
	case StageNormalize, StageFilter:
		kind = KindShape
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timed out"
	}
	return &Error{Kind: kind, Domain: domain, Stage: stage, Message: msg, Err: err}
}
