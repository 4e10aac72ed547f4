package circulation

import "errors"

// Kind classifies a circulation failure. Kinds are stable strings so API
// clients can tell them apart.
type Kind string

const (
	KindPatronNotFound           Kind = "patron_not_found"
	KindBookNotFound             Kind = "book_not_found"
	KindBorrowingNotFound        Kind = "borrowing_not_found"
	KindPatronNotActive          Kind = "patron_not_active"
	KindBorrowingLimitReached    Kind = "borrowing_limit_reached"
	KindNoCopyAvailable          Kind = "no_copy_available"
	KindRenewalLimitReached      Kind = "renewal_limit_reached"
	KindBorrowingNotActive       Kind = "borrowing_not_active"
	KindBorrowingAlreadyReturned Kind = "borrowing_already_returned"
	KindBorrowingOverdue         Kind = "borrowing_overdue"
	KindInvalidRequest           Kind = "invalid_request"
	KindConcurrencyConflict      Kind = "concurrency_conflict"
)

// Error is a classified circulation failure carrying a message fit for
// end users.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrPatronNotFound           = &Error{KindPatronNotFound, "patron not found"}
	ErrBookNotFound             = &Error{KindBookNotFound, "book not found"}
	ErrBorrowingNotFound        = &Error{KindBorrowingNotFound, "borrowing not found"}
	ErrPatronNotActive          = &Error{KindPatronNotActive, "patron account is not active"}
	ErrBorrowingLimitReached    = &Error{KindBorrowingLimitReached, "patron has reached the borrowing limit"}
	ErrNoCopyAvailable          = &Error{KindNoCopyAvailable, "no copy of this book is available"}
	ErrRenewalLimitReached      = &Error{KindRenewalLimitReached, "renewal limit reached"}
	ErrBorrowingNotActive       = &Error{KindBorrowingNotActive, "borrowing is not active"}
	ErrBorrowingAlreadyReturned = &Error{KindBorrowingAlreadyReturned, "book has already been returned"}
	ErrBorrowingOverdue         = &Error{KindBorrowingOverdue, "overdue borrowings cannot be renewed"}
	ErrInvalidRequest           = &Error{KindInvalidRequest, "invalid request"}
	ErrConcurrencyConflict      = &Error{KindConcurrencyConflict, "the loan was changed by another request, try again"}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of a circulation error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// errConflict marks a lost optimistic race inside a single attempt.
var errConflict = errors.New("concurrent update")
