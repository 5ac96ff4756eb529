package library

import "errors"

// Validation failures.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// Lookups that found nothing.
var (
	ErrBookNotFound   = errors.New("book not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrIssueNotFound  = errors.New("loan record not found")
	ErrFineNotFound   = errors.New("fine not found")
	ErrUserNotFound   = errors.New("user not found")
)

// Business rule violations.
var (
	ErrBookUnavailable  = errors.New("book is not available for issue")
	ErrBookOnLoan       = errors.New("book is currently on loan")
	ErrMemberInactive   = errors.New("member account is not active")
	ErrLoanLimitReached = errors.New("member has reached the loan limit")
	ErrUnpaidFines      = errors.New("member has unpaid fines over the limit")
	ErrAlreadyReturned  = errors.New("book has already been returned")
	ErrFineSettled      = errors.New("fine has already been settled")
	ErrDuplicate        = errors.New("record already exists")
)

// Authentication and authorization.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrNotAuthenticated   = errors.New("not logged in")
	ErrForbidden          = errors.New("operation not permitted for this account")
)

// ErrStorage wraps failures of the underlying database.
var ErrStorage = errors.New("storage failure")
