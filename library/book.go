package library

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxCopies       = 1000
	earliestPrint   = 1450
	defaultLanguage = "Spanish"
)

// Book is a catalog entry. AvailableCopies only changes through loans.
type Book struct {
	Title           string `json:"title" validate:"required,min=2,max=100"`
	Author          string `json:"author" validate:"required,min=3,max=50"`
	ISBN            string `json:"isbn" validate:"required,isbn"`
	Genre           string `json:"genre" validate:"required,min=3"`
	Year            int    `json:"year"`
	Publisher       string `json:"publisher" validate:"required,min=2"`
	Language        string `json:"language" validate:"required"`
	TotalCopies     int    `json:"total_copies" validate:"gte=0,lte=1000"`
	AvailableCopies int    `json:"available_copies"`
}

// NewBook validates b and returns a catalog entry with every copy on the shelf.
func NewBook(b Book, now time.Time) (*Book, error) {
	b.AvailableCopies = b.TotalCopies
	if err := b.Validate(now); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate normalizes the text fields and checks every rule, including the
// copy-count invariant restored records must respect.
func (b *Book) Validate(now time.Time) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Genre = strings.TrimSpace(b.Genre)
	b.Publisher = strings.TrimSpace(b.Publisher)
	b.Language = strings.TrimSpace(b.Language)
	if b.Language == "" {
		b.Language = defaultLanguage
	}

	v := problems{}
	checkStruct(b, v)
	v.check(b.Year >= earliestPrint, "year", fmt.Sprintf("must not be before %d", earliestPrint))
	v.check(b.Year <= now.Year()+1, "year", fmt.Sprintf("must not be after %d", now.Year()+1))
	v.check(b.AvailableCopies >= 0, "available_copies", "must not be negative")
	v.check(b.AvailableCopies <= b.TotalCopies, "available_copies", "must not exceed total_copies")
	return v.err()
}

// Key is the comparison form of the ISBN.
func (b *Book) Key() string { return isbnKey(b.ISBN) }

func (b *Book) IsAvailable() bool { return b.AvailableCopies > 0 }

// OnLoan is the number of copies currently lent out.
func (b *Book) OnLoan() int { return b.TotalCopies - b.AvailableCopies }

// CheckOut takes one copy off the shelf.
func (b *Book) CheckOut() error {
	if b.AvailableCopies <= 0 {
		return fmt.Errorf("%w: %q", ErrBookUnavailable, b.Title)
	}
	b.AvailableCopies--
	return nil
}

// CheckIn puts one copy back. It fails when every copy is already on the shelf.
func (b *Book) CheckIn() error {
	if b.AvailableCopies >= b.TotalCopies {
		return stateConflict(ErrOverReturn, "%q has %d of %d copies", b.Title, b.AvailableCopies, b.TotalCopies)
	}
	b.AvailableCopies++
	return nil
}

// SetTotalCopies changes the size of the collection, keeping lent copies lent.
func (b *Book) SetTotalCopies(total int) error {
	v := problems{}
	v.check(total >= 0, "total_copies", "must not be negative")
	v.check(total <= maxCopies, "total_copies", fmt.Sprintf("must not be more than %d", maxCopies))
	if err := v.err(); err != nil {
		return err
	}
	lent := b.OnLoan()
	if total < lent {
		return stateConflict(ErrCopiesOnLoan, "%d copies of %q are lent", lent, b.Title)
	}
	b.TotalCopies = total
	b.AvailableCopies = total - lent
	return nil
}

// LoanState describes availability for listings.
func (b *Book) LoanState() string {
	switch {
	case b.TotalCopies == 0:
		return "no copies"
	case b.AvailableCopies == b.TotalCopies:
		return "all copies available"
	case b.AvailableCopies == 0:
		return "none available"
	default:
		return fmt.Sprintf("%d of %d available", b.AvailableCopies, b.TotalCopies)
	}
}

func (b *Book) String() string {
	return fmt.Sprintf("%s by %s (ISBN %s)", b.Title, b.Author, b.ISBN)
}
