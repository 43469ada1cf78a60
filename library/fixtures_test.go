package library

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

// Valid ISBN-13s used across tests.
const (
	isbnQuixote  = "978-0-306-40615-7"
	isbnOdyssey  = "9780140449136"
	isbn1984     = "9780451524935"
	isbnMockbird = "9780061120084"
	isbnGatsby   = "9780743273565"
	isbnCatcher  = "9780316769488"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func testPerson(identity string, age int) Person {
	return Person{
		Name:      "Ana Maria Lopez",
		Identity:  identity,
		Email:     "Ana.Lopez@Example.com",
		Phone:     "+504 9999-8888",
		BirthDate: testNow.AddDate(-age, 0, 0),
		Address:   "Colonia Centro 123",
	}
}

func newTestStudent(t *testing.T, identity string, age int, career string) *Student {
	t.Helper()
	s, err := NewStudent(testPerson(identity, age), career, testNow)
	require.NoError(t, err)
	return s
}

func bookInput(isbn string, copies int) Book {
	return Book{
		Title:       "Don Quixote " + isbn[len(isbn)-3:],
		Author:      "Miguel de Cervantes",
		ISBN:        isbn,
		Genre:       "Novel",
		Year:        1605,
		Publisher:   "Penguin",
		TotalCopies: copies,
	}
}

func newTestBook(t *testing.T, isbn string, copies int) *Book {
	t.Helper()
	b, err := NewBook(bookInput(isbn, copies), testNow)
	require.NoError(t, err)
	return b
}

func employeeInput(identity string, role Role) Employee {
	position, salary := "Librarian", int64(15000)
	switch role {
	case Supervisor:
		position, salary = "Supervisor", 20000
	case Administrator:
		position, salary = "Administrator", 25000
	}
	return Employee{
		Person:   testPerson(identity, 35),
		Position: position,
		Shift:    "morning",
		HireDate: testNow.AddDate(-5, 0, 0),
		Salary:   decimal.NewFromInt(salary),
		Role:     role,
	}
}

func newTestEmployee(t *testing.T, identity string, role Role) *Employee {
	t.Helper()
	e, err := NewEmployee(employeeInput(identity, role), testNow)
	require.NoError(t, err)
	return e
}

// newManager returns a manager over a file store in a temp dir, with an
// administrator already hired, and the clock driving it.
func newManager(t *testing.T) (*LibraryManager, *Employee, *clock) {
	t.Helper()
	dir := t.TempDir()
	return openManager(t, dir, &clock{now: testNow})
}

func openManager(t *testing.T, dir string, c *clock) (*LibraryManager, *Employee, *clock) {
	t.Helper()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	room, err := NewReadingRoom("Main Room", "Ground floor", 2, 3, 8*time.Hour, 20*time.Hour)
	require.NoError(t, err)
	mgr, err := NewLibraryManager(store, WithClock(c.Now), WithReadingRoom(room))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	admin := testPerson("0801198000001", 45)
	admin.Name = "Head Administrator"
	e, _, err := mgr.EnsureDefaultAdmin(admin)
	require.NoError(t, err)
	if e == nil {
		e, err = mgr.EmployeeByIdentity("0801198000001")
		require.NoError(t, err)
	}
	return mgr, e, c
}

// stock registers one book per ISBN with the given number of copies.
func stock(t *testing.T, mgr *LibraryManager, admin *Employee, copies int, isbns ...string) {
	t.Helper()
	for _, isbn := range isbns {
		_, err := mgr.RegisterBook(admin, bookInput(isbn, copies))
		require.NoError(t, err)
	}
}

func enroll(t *testing.T, mgr *LibraryManager, admin *Employee, identity string, age int, career string) *Student {
	t.Helper()
	s, err := mgr.RegisterStudent(admin, testPerson(identity, age), career)
	require.NoError(t, err)
	return s
}
