package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Loan terms.
const (
	LoanDays        = 7
	MaxBooksPerLoan = 5
	MaxRenewals     = 2
	DueSoonDays     = 3
)

// FinePerDay is charged per overdue day for each book.
var FinePerDay = decimal.RequireFromString("0.50")

type LoanStatus string

const (
	StatusActive            LoanStatus = "active"
	StatusConfirmed         LoanStatus = "confirmed"
	StatusReturned          LoanStatus = "returned"
	StatusCancelled         LoanStatus = "cancelled"
	StatusOverdue           LoanStatus = "overdue"
	StatusPartiallyReturned LoanStatus = "partially_returned"
)

// Open reports whether books of a loan in this status can still be out.
func (s LoanStatus) Open() bool {
	return s == StatusActive || s == StatusConfirmed || s == StatusPartiallyReturned
}

func (s LoanStatus) valid() bool {
	switch s {
	case StatusActive, StatusConfirmed, StatusReturned, StatusCancelled, StatusPartiallyReturned:
		return true
	}
	return false
}

// Loan lends one or more books to one student. StudentID and ISBNs are the
// persisted references; Student and Books are resolved after loading.
type Loan struct {
	ID            int             `json:"id"`
	StudentID     string          `json:"student_id"`
	ISBNs         []string        `json:"isbns"`
	LoanDate      time.Time       `json:"loan_date"`
	DueDate       time.Time       `json:"due_date"`
	ReturnedAt    *time.Time      `json:"returned_at,omitempty"`
	Status        LoanStatus      `json:"status"`
	Fine          decimal.Decimal `json:"fine"`
	FinePaid      bool            `json:"fine_paid"`
	FinePaidAt    *time.Time      `json:"fine_paid_at,omitempty"`
	Renewals      int             `json:"renewals"`
	LastRenewalAt *time.Time      `json:"last_renewal_at,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	ReturnedISBNs []string        `json:"returned_isbns,omitempty"`

	Student *Student `json:"-"`
	Books   []*Book  `json:"-"`
}

// Issue checks every precondition first and only then takes the books off the
// shelf, so a failed issue leaves books and student untouched.
func Issue(id int, student *Student, books []*Book, now time.Time) (*Loan, error) {
	if student == nil {
		return nil, ErrNoBorrower
	}
	if len(books) == 0 {
		return nil, ErrNoBooks
	}
	if len(books) > MaxBooksPerLoan {
		return nil, fmt.Errorf("%w: %d books, at most %d", ErrTooManyBooks, len(books), MaxBooksPerLoan)
	}

	seen := make(map[string]bool, len(books))
	for _, b := range books {
		if b == nil {
			return nil, ErrBookNotFound
		}
		if seen[b.Key()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBook, b.ISBN)
		}
		seen[b.Key()] = true
		if !b.IsAvailable() {
			return nil, fmt.Errorf("%w: %q", ErrBookUnavailable, b.Title)
		}
		if student.Holds(b.ISBN) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyBorrowed, b.ISBN)
		}
	}
	if limit := student.MaxAllowed(now); len(student.Borrowed)+len(books) > limit {
		return nil, fmt.Errorf("%w: holds %d, asked for %d, limit is %d",
			ErrBorrowCapExceeded, len(student.Borrowed), len(books), limit)
	}

	loan := &Loan{
		ID:        id,
		StudentID: student.Key(),
		LoanDate:  now,
		DueDate:   now.AddDate(0, 0, LoanDays),
		Status:    StatusActive,
		Fine:      decimal.Zero,
		Student:   student,
	}
	for _, b := range books {
		// Preconditions above guarantee neither call fails.
		_ = b.CheckOut()
		_ = student.AddBorrowed(b, now)
		loan.ISBNs = append(loan.ISBNs, b.ISBN)
		loan.Books = append(loan.Books, b)
	}
	return loan, nil
}

// Confirm moves an active loan to confirmed.
func (l *Loan) Confirm() error {
	if l.Status != StatusActive {
		return stateConflict(ErrInvalidState, "loan %d is %s, only active loans can be confirmed", l.ID, l.Status)
	}
	l.Status = StatusConfirmed
	return nil
}

// Cancel flips an active loan to cancelled. Restoring copies and the
// student's borrowed list is up to the caller.
func (l *Loan) Cancel() error {
	if l.Status != StatusActive {
		return stateConflict(ErrInvalidState, "loan %d is %s, only active loans can be cancelled", l.ID, l.Status)
	}
	l.Status = StatusCancelled
	return nil
}

// Renew extends the due date by days.
func (l *Loan) Renew(days int, now time.Time) error {
	if days <= 0 {
		return &ValidationError{Fields: map[string]string{"days": "must be positive"}}
	}
	if l.Status != StatusActive && l.Status != StatusConfirmed {
		return stateConflict(ErrInvalidState, "loan %d is %s", l.ID, l.Status)
	}
	if l.Renewals >= MaxRenewals {
		return stateConflict(ErrRenewalLimit, "loan %d was renewed %d times", l.ID, l.Renewals)
	}
	if overdue := l.DaysOverdue(now); overdue > 0 {
		return stateConflict(ErrLoanOverdue, "loan %d is %d days late", l.ID, overdue)
	}
	at := now
	l.DueDate = l.DueDate.AddDate(0, 0, days)
	l.Renewals++
	l.LastRenewalAt = &at
	return nil
}

// CanRenew mirrors the checks Renew performs.
func (l *Loan) CanRenew(now time.Time) bool {
	return (l.Status == StatusActive || l.Status == StatusConfirmed) &&
		l.Renewals < MaxRenewals && l.DaysOverdue(now) == 0
}

// Return brings back every book still out and fixes the fine, charged on the
// full book count of the loan.
func (l *Loan) Return(now time.Time) error {
	if !l.Status.Open() {
		return stateConflict(ErrInvalidState, "loan %d is %s", l.ID, l.Status)
	}
	if err := l.checkIn(l.Outstanding()); err != nil {
		return err
	}
	l.complete(now)
	return nil
}

// ReturnSome brings back the given books. When nothing remains out the loan is
// completed exactly as a full return.
func (l *Loan) ReturnSome(isbns []string, now time.Time) error {
	if !l.Status.Open() {
		return stateConflict(ErrInvalidState, "loan %d is %s", l.ID, l.Status)
	}
	if len(isbns) == 0 {
		return &ValidationError{Fields: map[string]string{"isbns": "must name at least one book"}}
	}

	var pending []string
	seen := map[string]bool{}
	for _, isbn := range isbns {
		key := isbnKey(isbn)
		original, ok := l.isbnFor(key)
		if !ok {
			return stateConflict(ErrBookNotInLoan, "%s in loan %d", isbn, l.ID)
		}
		if seen[key] || l.isReturned(key) {
			continue
		}
		seen[key] = true
		pending = append(pending, original)
	}
	if len(pending) == 0 {
		return stateConflict(ErrNothingToReturn, "loan %d", l.ID)
	}

	if err := l.checkIn(pending); err != nil {
		return err
	}
	l.ReturnedISBNs = append(l.ReturnedISBNs, pending...)
	if len(l.Outstanding()) == 0 {
		l.complete(now)
		return nil
	}
	l.Status = StatusPartiallyReturned
	return nil
}

// checkIn puts the given books back on the shelf and releases them from the
// student. Every copy is checked first so an over-return changes nothing.
func (l *Loan) checkIn(isbns []string) error {
	books := make([]*Book, 0, len(isbns))
	for _, isbn := range isbns {
		if b := l.book(isbn); b != nil {
			if b.AvailableCopies >= b.TotalCopies {
				return stateConflict(ErrOverReturn, "%q has %d of %d copies", b.Title, b.AvailableCopies, b.TotalCopies)
			}
			books = append(books, b)
		}
	}
	for _, b := range books {
		_ = b.CheckIn()
		if l.Student != nil && l.Student.Holds(b.ISBN) {
			_ = l.Student.RemoveBorrowed(b)
		}
	}
	return nil
}

func (l *Loan) complete(now time.Time) {
	at := now
	l.ReturnedAt = &at
	l.Status = StatusReturned
	l.ReturnedISBNs = append([]string(nil), l.ISBNs...)
	l.Fine = finePer(l.DaysOverdue(now), len(l.ISBNs))
}

func finePer(days, books int) decimal.Decimal {
	if days <= 0 || books <= 0 {
		return decimal.Zero
	}
	return FinePerDay.Mul(decimal.NewFromInt(int64(days))).Mul(decimal.NewFromInt(int64(books)))
}

// EstimateFine is what the loan would owe if the remaining books came back at
// now. Unlike the fine fixed on return it only counts books still out.
func (l *Loan) EstimateFine(now time.Time) decimal.Decimal {
	if l.Status == StatusReturned || l.Status == StatusCancelled {
		return l.Fine
	}
	return finePer(l.DaysOverdue(now), len(l.Outstanding()))
}

// DaysOverdue counts whole calendar days past the due date, measured at the
// return date once the loan is returned.
func (l *Loan) DaysOverdue(now time.Time) int {
	at := now
	if l.ReturnedAt != nil {
		at = *l.ReturnedAt
	}
	if days := daysBetween(l.DueDate, at); days > 0 {
		return days
	}
	return 0
}

// DaysRemaining counts calendar days until the due date, zero once past it.
func (l *Loan) DaysRemaining(now time.Time) int {
	if days := daysBetween(now, l.DueDate); days > 0 {
		return days
	}
	return 0
}

// EffectiveStatus reports Overdue for open loans past their due date.
func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.Status.Open() && l.DaysOverdue(now) > 0 {
		return StatusOverdue
	}
	return l.Status
}

// SettleFine records payment of the fine of a returned loan.
func (l *Loan) SettleFine(now time.Time) error {
	if l.Status != StatusReturned {
		return stateConflict(ErrInvalidState, "loan %d is %s", l.ID, l.Status)
	}
	if !l.Fine.IsPositive() {
		return stateConflict(ErrNoFine, "loan %d", l.ID)
	}
	if l.FinePaid {
		return stateConflict(ErrFineAlreadyPaid, "loan %d", l.ID)
	}
	at := now
	l.FinePaid = true
	l.FinePaidAt = &at
	return nil
}

// Outstanding lists the ISBNs of the loan not yet brought back.
func (l *Loan) Outstanding() []string {
	if l.Status == StatusReturned || l.Status == StatusCancelled {
		return nil
	}
	var out []string
	for _, isbn := range l.ISBNs {
		if !l.isReturned(isbnKey(isbn)) {
			out = append(out, isbn)
		}
	}
	return out
}

// Summary is a one-line description for listings.
func (l *Loan) Summary(now time.Time) string {
	status := l.EffectiveStatus(now)
	var detail string
	switch status {
	case StatusReturned:
		detail = "fine " + l.Fine.StringFixed(2)
		if l.FinePaid {
			detail += " (paid)"
		}
	case StatusOverdue:
		detail = fmt.Sprintf("%d days late, fine so far %s", l.DaysOverdue(now), l.EstimateFine(now).StringFixed(2))
	case StatusCancelled:
		detail = "cancelled"
	default:
		detail = fmt.Sprintf("due %s, %d days left", l.DueDate.Format(time.DateOnly), l.DaysRemaining(now))
	}
	return fmt.Sprintf("Loan #%d - %s - %d book(s) - %s - %s",
		l.ID, l.StudentID, len(l.ISBNs), strings.ReplaceAll(string(status), "_", " "), detail)
}

func (l *Loan) isbnFor(key string) (string, bool) {
	for _, isbn := range l.ISBNs {
		if isbnKey(isbn) == key {
			return isbn, true
		}
	}
	return "", false
}

func (l *Loan) isReturned(key string) bool {
	for _, isbn := range l.ReturnedISBNs {
		if isbnKey(isbn) == key {
			return true
		}
	}
	return false
}

func (l *Loan) book(isbn string) *Book {
	key := isbnKey(isbn)
	for _, b := range l.Books {
		if b != nil && b.Key() == key {
			return b
		}
	}
	return nil
}

// Link resolves the persisted references against loaded collections. Missing
// books are left out of Books; the ISBN list is kept as stored.
func (l *Loan) Link(students map[string]*Student, books map[string]*Book) {
	l.Student = students[strings.TrimSpace(l.StudentID)]
	l.Books = l.Books[:0]
	for _, isbn := range l.ISBNs {
		if b, ok := books[isbnKey(isbn)]; ok {
			l.Books = append(l.Books, b)
		}
	}
}

// validate checks a loan restored from storage.
func (l *Loan) validate(now time.Time) error {
	if l.Status == StatusOverdue {
		l.Status = StatusActive
	}
	v := problems{}
	v.check(l.ID > 0, "id", "must be positive")
	v.check(strings.TrimSpace(l.StudentID) != "", "student_id", "must be provided")
	v.check(len(l.ISBNs) > 0, "isbns", "must not be empty")
	v.check(len(l.ISBNs) <= MaxBooksPerLoan, "isbns", fmt.Sprintf("must not have more than %d books", MaxBooksPerLoan))
	seen := map[string]bool{}
	for _, isbn := range l.ISBNs {
		v.check(!seen[isbnKey(isbn)], "isbns", "must not repeat a book")
		seen[isbnKey(isbn)] = true
	}
	returned := map[string]bool{}
	for _, isbn := range l.ReturnedISBNs {
		key := isbnKey(isbn)
		v.check(seen[key], "returned_isbns", "must only name books of the loan")
		v.check(!returned[key], "returned_isbns", "must not repeat a book")
		returned[key] = true
	}
	v.check(!l.LoanDate.IsZero(), "loan_date", "must be provided")
	v.check(!l.LoanDate.After(now), "loan_date", "must not be in the future")
	v.check(l.DueDate.After(l.LoanDate), "due_date", "must be after loan_date")
	if l.Status == StatusReturned {
		v.check(l.ReturnedAt != nil, "returned_at", "must be set on a returned loan")
	}
	v.check(l.Status.valid(), "status", "is unknown")
	v.check(!l.Fine.IsNegative(), "fine", "must not be negative")
	v.check(l.Renewals >= 0 && l.Renewals <= MaxRenewals, "renewals", fmt.Sprintf("must be between 0 and %d", MaxRenewals))
	return v.err()
}
