package library

import (
	"errors"
	"fmt"
)

// Result is what every public operation hands back to the front end: a
// success flag, a message fit for display, and the payload. Err is nil on
// success and otherwise wraps one of the package's sentinel errors.
type Result[T any] struct {
	Success bool
	Message string
	Value   T
	Err     error
}

func succeed[T any](v T, format string, args ...any) Result[T] {
	return Result[T]{Success: true, Message: fmt.Sprintf(format, args...), Value: v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Message: err.Error(), Err: err}
}

// Is reports whether the result failed with target.
func (r Result[T]) Is(target error) bool {
	return r.Err != nil && errors.Is(r.Err, target)
}

// Unwrap returns the payload and the failure as a plain Go pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// storageErr tags err as a storage failure and keeps the driver detail in the
// message.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// classify keeps domain errors as they are and tags everything else as a
// storage failure.
func classify(err error) error {
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return storageErr(err)
}

var domainErrors = []error{
	ErrInvalidInput, ErrPasswordMismatch, ErrPasswordTooShort,
	ErrBookNotFound, ErrMemberNotFound, ErrIssueNotFound, ErrFineNotFound, ErrUserNotFound,
	ErrBookUnavailable, ErrBookOnLoan, ErrMemberInactive, ErrLoanLimitReached, ErrUnpaidFines,
	ErrAlreadyReturned, ErrFineSettled, ErrDuplicate,
	ErrInvalidCredentials, ErrAccountDisabled, ErrNotAuthenticated, ErrForbidden,
	ErrStorage,
}
