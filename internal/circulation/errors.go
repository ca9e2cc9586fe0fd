package circulation

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow failure. Transport layers map kinds to
// status codes; see internal/http.
type Kind string

const (
	KindNotAuthenticated      Kind = "not_authenticated"
	KindForbidden             Kind = "forbidden"
	KindNotFound              Kind = "not_found"
	KindBookUnavailable       Kind = "book_unavailable"
	KindBookNoLongerAvailable Kind = "book_no_longer_available"
	KindLimitExceeded         Kind = "limit_exceeded"
	KindDuplicateRequest      Kind = "duplicate_request"
	KindNoActiveLoan          Kind = "no_active_loan"
	KindValidationFailed      Kind = "validation_failed"
	KindInvalidCredentials    Kind = "invalid_credentials"
)

// Error is a workflow failure with the identifiers it concerns.
type Error struct {
	Kind      Kind
	Message   string
	RequestID uint
	BookID    uint
	Requester string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches on kind, and on message too when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func (e *Error) WithBook(id uint) *Error {
	c := *e
	c.BookID = id
	return &c
}

func (e *Error) WithRequest(id uint) *Error {
	c := *e
	c.RequestID = id
	return &c
}

func (e *Error) WithRequester(username string) *Error {
	c := *e
	c.Requester = username
	return &c
}

// Fields returns the identifiers set on the error, keyed for JSON output.
func (e *Error) Fields() map[string]any {
	fields := map[string]any{}
	if e.RequestID != 0 {
		fields["request_id"] = e.RequestID
	}
	if e.BookID != 0 {
		fields["book_id"] = e.BookID
	}
	if e.Requester != "" {
		fields["requester"] = e.Requester
	}
	return fields
}

var (
	ErrNotAuthenticated      = &Error{Kind: KindNotAuthenticated, Message: "please log in first"}
	ErrForbidden             = &Error{Kind: KindForbidden, Message: "librarian access required"}
	ErrBookNotFound          = &Error{Kind: KindNotFound, Message: "book not found"}
	ErrRequestNotFound       = &Error{Kind: KindNotFound, Message: "request not found or already processed"}
	ErrAccountNotFound       = &Error{Kind: KindNotFound, Message: "account not found"}
	ErrLoanNotFound          = &Error{Kind: KindNotFound, Message: "loan not found"}
	ErrBookUnavailable       = &Error{Kind: KindBookUnavailable, Message: "book is not available"}
	ErrBookNoLongerAvailable = &Error{Kind: KindBookNoLongerAvailable, Message: "book no longer available"}
	ErrLimitExceeded         = &Error{Kind: KindLimitExceeded, Message: "checkout limit reached"}
	ErrDuplicateRequest      = &Error{Kind: KindDuplicateRequest, Message: "a matching request is already pending"}
	ErrNoActiveLoan          = &Error{Kind: KindNoActiveLoan, Message: "no active checkout found for this book"}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials, Message: "invalid username or password"}

	// ErrValidationFailed matches every validation error regardless of message.
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
)

// Validation builds a ValidationFailed error with a caller-facing message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the workflow kind from err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
