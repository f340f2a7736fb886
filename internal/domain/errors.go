package domain

import "errors"

// Error kinds. Transports map them to status codes with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Error carries a user facing message and unwraps to its kind.
type Error struct {
	kind error
	msg  string
}

func NewError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func Invalid(msg string) error {
	return NewError(ErrInvalidInput, msg)
}

var (
	ErrProductNotFound    = NewError(ErrNotFound, "product not found")
	ErrBookingNotFound    = NewError(ErrNotFound, "booking not found")
	ErrPaymentNotFound    = NewError(ErrNotFound, "payment not found")
	ErrUserNotFound       = NewError(ErrNotFound, "user not found")
	ErrPaymentExists      = NewError(ErrConflict, "payment already exists for this booking")
	ErrEmailTaken         = NewError(ErrConflict, "email already registered")
	ErrNotOwner           = NewError(ErrForbidden, "not authorized")
	ErrAdminRequired      = NewError(ErrForbidden, "admin access required")
	ErrInvalidCredentials = NewError(ErrUnauthorized, "invalid email or password")
	ErrSelfDelete         = NewError(ErrInvalidInput, "cannot delete your own account")
)
