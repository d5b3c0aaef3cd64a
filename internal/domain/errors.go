package domain

import "errors"

// ErrorKind classifies failures for transport mapping.
type ErrorKind int

const (
	KindServer ErrorKind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindForbidden
	KindConflict
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "server"
	}
}

// Error is a classified failure surfaced to API callers. Message is safe to
// show to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// ValidationError reports bad or missing input.
func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ValidationFields reports bad input with per-field messages.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// AuthenticationError reports a missing, invalid or expired credential.
func AuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// AuthorizationError reports a denied resource; it renders like not-found.
func AuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// ForbiddenError reports an action the caller may not perform.
func ForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// ConflictError reports a uniqueness violation.
func ConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NotFoundError reports an absent row.
func NotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// ServerError wraps an unexpected failure.
func ServerError(message string, err error) *Error {
	return &Error{Kind: KindServer, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindServer.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServer
}

// Shared client-facing messages.
const (
	MsgProjectNotFound   = "Project not found or access denied"
	MsgTaskNotFound      = "Task not found or access denied"
	MsgTaskCreateDenied  = "No permission to create tasks in this project"
	MsgAssigneeNotMember = "Assignee must be a member of the project"
	MsgNoFieldsToUpdate  = "No fields to update"
)
