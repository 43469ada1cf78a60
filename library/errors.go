package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation, permission and lookup failures.
var (
	ErrFailedValidation = errors.New("failed validation")
	ErrNotPermitted     = errors.New("not permitted")
	ErrDuplicateRecord  = errors.New("duplicate record")
	ErrStudentNotFound  = errors.New("student not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrLoanNotFound     = errors.New("loan not found")
	ErrEmployeeNotFound = errors.New("employee not found")
)

// Loan issue failures.
var (
	ErrNoBorrower        = errors.New("loan needs a borrower")
	ErrNoBooks           = errors.New("loan needs at least one book")
	ErrTooManyBooks      = errors.New("too many books in one loan")
	ErrDuplicateBook     = errors.New("duplicate book in loan")
	ErrBookUnavailable   = errors.New("book has no available copies")
	ErrBorrowCapExceeded = errors.New("student borrowing cap exceeded")
	ErrAlreadyBorrowed   = errors.New("student already holds this book")
)

// State conflicts. ErrInvalidState is the umbrella every specific reason wraps.
var (
	ErrInvalidState     = errors.New("invalid state for operation")
	ErrRenewalLimit     = errors.New("renewal limit reached")
	ErrLoanOverdue      = errors.New("loan is overdue")
	ErrBookNotInLoan    = errors.New("book is not part of this loan")
	ErrNothingToReturn  = errors.New("books already returned")
	ErrNotBorrowed      = errors.New("student does not hold this book")
	ErrOverReturn       = errors.New("all copies already on the shelf")
	ErrNoFine           = errors.New("loan has no fine to settle")
	ErrFineAlreadyPaid  = errors.New("fine already settled")
	ErrEmployeeInactive = errors.New("employee is inactive")
	ErrEmployeeActive   = errors.New("employee is already active")
	ErrCopiesOnLoan     = errors.New("copies still on loan")
)

// Reading room failures.
var (
	ErrRoomClosed      = errors.New("reading room is closed")
	ErrSeatOutOfRange  = errors.New("seat out of range")
	ErrSeatUnavailable = errors.New("seat is occupied or out of service")
	ErrSeatNotOccupied = errors.New("seat is not occupied")
)

// stateError ties a specific reason to ErrInvalidState so callers can match
// either one with errors.Is.
type stateError struct {
	reason error
	detail string
}

func (e *stateError) Error() string {
	if e.detail == "" {
		return e.reason.Error()
	}
	return e.reason.Error() + ": " + e.detail
}

func (e *stateError) Is(target error) bool {
	return target == ErrInvalidState || target == e.reason
}

func (e *stateError) Unwrap() error { return e.reason }

func stateConflict(reason error, format string, args ...any) error {
	return &stateError{reason: reason, detail: fmt.Sprintf(format, args...)}
}

// ValidationError maps offending fields to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "failed validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrFailedValidation }

// problems collects field errors the same way for every entity.
type problems map[string]string

func (p problems) check(ok bool, field, message string) {
	if ok {
		return
	}
	if _, exists := p[field]; !exists {
		p[field] = message
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(p)}
}

// ErrCorruptSnapshot marks a stored snapshot whose checksum does not match.
var ErrCorruptSnapshot = errors.New("snapshot checksum mismatch")
