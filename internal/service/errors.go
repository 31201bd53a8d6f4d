package service

import "errors"

// Error kinds returned by the booking flow. Match them with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrRange           = errors.New("duration out of range")
	ErrPayment         = errors.New("payment rejected")
	ErrConflict        = errors.New("time range conflict")
	ErrExternalService = errors.New("external service failure")
)

// Error carries a message that is safe to show to the customer.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
