package library

import (
	"strings"
	"time"
)

// Kind names one persisted collection.
type Kind string

const (
	KindStudents  Kind = "students"
	KindBooks     Kind = "books"
	KindLoans     Kind = "loans"
	KindEmployees Kind = "employees"
)

// Kinds lists every collection in the order it must be loaded.
var Kinds = []Kind{KindStudents, KindBooks, KindEmployees, KindLoans}

var earliestBirthDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Person holds the identity and contact fields shared by students and employees.
type Person struct {
	Name      string    `json:"name" validate:"required,min=5,max=40"`
	Identity  string    `json:"identity" validate:"required,min=13"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone" validate:"required,phone"`
	BirthDate time.Time `json:"birth_date"`
	Address   string    `json:"address" validate:"required,min=5"`
}

// Key is the lookup key used by loans to reference a person.
func (p *Person) Key() string { return strings.TrimSpace(p.Identity) }

func (p *Person) Age(now time.Time) int { return ageAt(p.BirthDate, now) }

func (p *Person) IsAdult(now time.Time) bool { return p.Age(now) >= 18 }

func (p *Person) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Identity = strings.TrimSpace(p.Identity)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = digitsOnly(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
}

// checkBirthDate covers the date rules struct tags cannot express. They hold
// for stored records as well as new registrations.
func (p *Person) checkBirthDate(now time.Time, v problems) {
	switch {
	case p.BirthDate.IsZero():
		v.check(false, "birth_date", "must be provided")
	case p.BirthDate.After(now):
		v.check(false, "birth_date", "must not be in the future")
	case p.BirthDate.Before(earliestBirthDate):
		v.check(false, "birth_date", "must not be before 1900-01-01")
	}
}

// checkAgeWindow applies at registration only.
func (p *Person) checkAgeWindow(now time.Time, v problems) {
	if _, bad := v["birth_date"]; bad {
		return
	}
	age := p.Age(now)
	v.check(age >= 7, "birth_date", "age must be at least 7")
	v.check(age <= 90, "birth_date", "age must not be more than 90")
}
