package chat

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps one of them.
var (
	// ErrValidation marks input that can never succeed as given.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to an unknown room, identity or membership.
	ErrNotFound = errors.New("not found")
)

// Validation errors.
var (
	ErrNameEmpty      = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrNameTooLong    = fmt.Errorf("%w: name exceeds maximum length", ErrValidation)
	ErrNameInvalid    = fmt.Errorf("%w: name contains invalid characters", ErrValidation)
	ErrAvatarTooLong  = fmt.Errorf("%w: avatar exceeds maximum length", ErrValidation)
	ErrMessageEmpty   = fmt.Errorf("%w: message text cannot be empty", ErrValidation)
	ErrMessageTooLong = fmt.Errorf("%w: message exceeds maximum length", ErrValidation)
	ErrMessageInvalid = fmt.Errorf("%w: message contains invalid characters", ErrValidation)
	ErrMessageKind    = fmt.Errorf("%w: unknown message kind", ErrValidation)
	ErrRoomMembers    = fmt.Errorf("%w: a room needs at least two distinct members", ErrValidation)
	ErrRoomNameEmpty  = fmt.Errorf("%w: room name cannot be empty", ErrValidation)
	ErrRoomNameLong   = fmt.Errorf("%w: room name exceeds maximum length", ErrValidation)
	ErrSelfRoom       = fmt.Errorf("%w: cannot open a room with yourself", ErrValidation)
	ErrMissingField   = fmt.Errorf("%w: required field missing", ErrValidation)
)

// Not-found errors.
var (
	ErrRoomNotFound     = fmt.Errorf("%w: room", ErrNotFound)
	ErrIdentityNotFound = fmt.Errorf("%w: identity", ErrNotFound)
	ErrNotMember        = fmt.Errorf("%w: not a member of room", ErrNotFound)
)

// Fault kinds carried across the request-reply boundary.
const (
	FaultValidation = "validation"
	FaultNotFound   = "not_found"
)

// Fault is the serialisable form of a classified error.
type Fault struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Err rebuilds an error that still matches ErrValidation or ErrNotFound.
func (f *Fault) Err() error {
	if f == nil {
		return nil
	}
	switch f.Kind {
	case FaultValidation:
		return &faultError{class: ErrValidation, msg: f.Message}
	case FaultNotFound:
		return &faultError{class: ErrNotFound, msg: f.Message}
	}
	return errors.New(f.Message)
}

// faultFrom classifies err. Unclassified errors return nil so the caller can
// surface them as transport failures.
func faultFrom(err error) *Fault {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return &Fault{Kind: FaultValidation, Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return &Fault{Kind: FaultNotFound, Message: err.Error()}
	}
	return nil
}

type faultError struct {
	class error
	msg   string
}

func (e *faultError) Error() string { return e.msg }
func (e *faultError) Unwrap() error { return e.class }
