// Package apperr gives domain errors a transport-neutral kind and a message
// that is safe to show to API callers. The HTTP layer maps kinds to status
// codes; domain packages never import it.
package apperr

import "errors"

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooLarge
	KindUnavailable
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooLarge:
		return "too_large"
	case KindUnavailable:
		return "unavailable"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Public is implemented by errors whose message may be returned to callers.
type Public interface {
	error
	Kind() Kind
	PublicMessage() string
}

// Detailed errors attach structured details to the failure envelope.
type Detailed interface {
	PublicDetails() any
}

// Error is a sentinel-friendly Public error. Compare with errors.Is.
type Error struct {
	kind    Kind
	message string
	details any
	parent  *Error
}

// New returns a sentinel of kind whose public text is message.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// WithDetails returns a sentinel carrying details in the failure envelope.
func (e *Error) WithDetails(details any) *Error {
	parent := e
	if e.parent != nil {
		parent = e.parent
	}
	return &Error{kind: e.kind, message: e.message, details: details, parent: parent}
}

func (e *Error) Error() string         { return e.message }
func (e *Error) Kind() Kind            { return e.kind }
func (e *Error) PublicMessage() string { return e.message }
func (e *Error) PublicDetails() any    { return e.details }

// Is lets a WithDetails copy match its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.parent != nil && t == e.parent
}

// KindOf reports the kind of the first Public error in err's chain.
func KindOf(err error) Kind {
	var p Public
	if errors.As(err, &p) {
		return p.Kind()
	}
	return KindInternal
}
