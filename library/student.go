package library

import (
	"fmt"
	"strings"
	"time"
)

// Borrowing caps by age and program.
const (
	capYoung        = 2
	capMinor        = 3
	capPostgraduate = 5
	capDefault      = 3
)

var postgraduateWords = []string{
	"postgrado", "posgrado", "maestria", "doctorado",
	"postgraduate", "master", "doctorate", "phd",
}

// Student is a person who can borrow books. Borrowed mirrors the unreturned
// books of the student's open loans and is never persisted.
type Student struct {
	Person
	Career   string  `json:"career" validate:"required,min=3"`
	Borrowed []*Book `json:"-"`
}

func NewStudent(p Person, career string, now time.Time) (*Student, error) {
	s := &Student{Person: p, Career: career}
	if err := s.Validate(now); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks a student about to be registered.
func (s *Student) Validate(now time.Time) error { return s.validate(now, true) }

// validate checks the stored fields; registering adds the age window.
func (s *Student) validate(now time.Time, registering bool) error {
	s.normalize()
	s.Career = strings.TrimSpace(s.Career)

	v := problems{}
	checkStruct(s, v)
	s.checkBirthDate(now, v)
	if registering {
		s.checkAgeWindow(now, v)
	}
	return v.err()
}

// MaxAllowed is the number of books the student may hold at once.
func (s *Student) MaxAllowed(now time.Time) int {
	age := s.Age(now)
	switch {
	case age < 16:
		return capYoung
	case age < 18:
		return capMinor
	case isPostgraduate(s.Career):
		return capPostgraduate
	default:
		return capDefault
	}
}

func (s *Student) CanBorrow(now time.Time) bool {
	return len(s.Borrowed) < s.MaxAllowed(now)
}

// Holds reports whether the student currently has a copy of isbn.
func (s *Student) Holds(isbn string) bool {
	key := isbnKey(isbn)
	for _, b := range s.Borrowed {
		if b.Key() == key {
			return true
		}
	}
	return false
}

// AddBorrowed records b as held. Only the loan flow calls it.
func (s *Student) AddBorrowed(b *Book, now time.Time) error {
	if s.Holds(b.ISBN) {
		return fmt.Errorf("%w: %s", ErrAlreadyBorrowed, b.ISBN)
	}
	if !s.CanBorrow(now) {
		return fmt.Errorf("%w: limit is %d", ErrBorrowCapExceeded, s.MaxAllowed(now))
	}
	s.Borrowed = append(s.Borrowed, b)
	return nil
}

// RemoveBorrowed drops b from the held list. Only the loan flow calls it.
func (s *Student) RemoveBorrowed(b *Book) error {
	key := b.Key()
	for i, held := range s.Borrowed {
		if held.Key() == key {
			s.Borrowed = append(s.Borrowed[:i], s.Borrowed[i+1:]...)
			return nil
		}
	}
	return stateConflict(ErrNotBorrowed, "%s", b.ISBN)
}

// AcademicLevel classifies the student by age, then by program.
func (s *Student) AcademicLevel(now time.Time) string {
	age := s.Age(now)
	career := fold(s.Career)
	switch {
	case age < 12:
		return "Primary"
	case age < 15:
		return "Lower Secondary"
	case age < 18:
		return "Upper Secondary"
	case containsAny(career, "doctorado", "doctorate", "phd"):
		return "Doctorate"
	case containsAny(career, "maestria", "master"):
		return "Master"
	case isPostgraduate(career):
		return "Postgraduate"
	default:
		return "Undergraduate"
	}
}

func isPostgraduate(career string) bool {
	return containsAny(fold(career), postgraduateWords...)
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
