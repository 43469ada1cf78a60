package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hire(t *testing.T, mgr *LibraryManager, admin *Employee, identity string, role Role) *Employee {
	t.Helper()
	e, err := mgr.HireEmployee(admin, employeeInput(identity, role))
	require.NoError(t, err)
	return e
}

func TestLoanScenario(t *testing.T) {
	mgr, admin, _ := newManager(t)
	stock(t, mgr, admin, 1, isbnQuixote)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")
	b, err := mgr.Book(isbnQuixote)
	require.NoError(t, err)

	l, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote})
	require.NoError(t, err)
	assert.Equal(t, 1, l.ID)
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, 0, b.AvailableCopies)
	assert.Equal(t, []*Book{b}, s.Borrowed)

	returned, err := mgr.ReturnLoan(admin, l.ID)
	require.NoError(t, err)
	assert.Same(t, l, returned)
	assert.Equal(t, StatusReturned, l.Status)
	assert.True(t, l.Fine.IsZero())
	assert.Equal(t, 1, b.AvailableCopies)
	assert.Empty(t, s.Borrowed)

	_, err = mgr.ReturnLoan(admin, l.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = mgr.ReturnLoan(admin, 42)
	require.ErrorIs(t, err, ErrLoanNotFound)
}

func TestIssueLoanOverCapChangesNothing(t *testing.T) {
	mgr, admin, _ := newManager(t)
	stock(t, mgr, admin, 1, isbnQuixote, isbnOdyssey, isbn1984, isbnGatsby)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")

	_, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote, isbnOdyssey, isbn1984})
	require.NoError(t, err)

	_, err = mgr.IssueLoan(admin, s.Key(), []string{isbnGatsby})
	require.ErrorIs(t, err, ErrBorrowCapExceeded)
	gatsby, _ := mgr.Book(isbnGatsby)
	assert.Equal(t, 1, gatsby.AvailableCopies)
	assert.Len(t, s.Borrowed, 3)
	assert.Equal(t, 1, mgr.Counts()[KindLoans])

	_, err = mgr.IssueLoan(admin, "0000000000000", []string{isbnGatsby})
	require.ErrorIs(t, err, ErrStudentNotFound)
	_, err = mgr.IssueLoan(admin, s.Key(), []string{isbnCatcher})
	require.ErrorIs(t, err, ErrBookNotFound)

	// Failed attempts do not consume loan ids.
	_, err = mgr.ReturnLoan(admin, 1)
	require.NoError(t, err)
	l, err := mgr.IssueLoan(admin, s.Key(), []string{isbnGatsby})
	require.NoError(t, err)
	assert.Equal(t, 2, l.ID)
}

func TestConfirmLoanTwice(t *testing.T) {
	mgr, admin, _ := newManager(t)
	stock(t, mgr, admin, 1, isbnQuixote)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")
	l, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote})
	require.NoError(t, err)

	require.NoError(t, mgr.ConfirmLoan(admin, l.ID))
	require.ErrorIs(t, mgr.ConfirmLoan(admin, l.ID), ErrInvalidState)
	assert.Equal(t, StatusConfirmed, l.Status)
}

func TestCancelLoanRestoresShelf(t *testing.T) {
	mgr, admin, _ := newManager(t)
	librarian := hire(t, mgr, admin, "0801198500001", Librarian)
	supervisor := hire(t, mgr, admin, "0801198500002", Supervisor)
	stock(t, mgr, admin, 2, isbnQuixote, isbnOdyssey)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")

	l, err := mgr.IssueLoan(librarian, s.Key(), []string{isbnQuixote, isbnOdyssey})
	require.NoError(t, err)

	require.ErrorIs(t, mgr.CancelLoan(librarian, l.ID), ErrNotPermitted)
	assert.Equal(t, StatusActive, l.Status)

	require.NoError(t, mgr.CancelLoan(supervisor, l.ID))
	assert.Equal(t, StatusCancelled, l.Status)
	for _, b := range l.Books {
		assert.Equal(t, 2, b.AvailableCopies, b.ISBN)
	}
	assert.Empty(t, s.Borrowed)
	require.ErrorIs(t, mgr.CancelLoan(supervisor, l.ID), ErrInvalidState)
}

func TestPermissionDenied(t *testing.T) {
	mgr, admin, _ := newManager(t)
	librarian := hire(t, mgr, admin, "0801198500001", Librarian)
	stock(t, mgr, admin, 1, isbnQuixote)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")

	_, err := mgr.Report(librarian)
	require.ErrorIs(t, err, ErrNotPermitted)
	_, err = mgr.HireEmployee(librarian, employeeInput("0801198500009", Librarian))
	require.ErrorIs(t, err, ErrNotPermitted)
	_, err = mgr.IssueLoan(nil, s.Key(), []string{isbnQuixote})
	require.ErrorIs(t, err, ErrNotPermitted)

	require.NoError(t, mgr.DeactivateEmployee(admin, librarian.Number, "contract ended"))
	_, err = mgr.IssueLoan(librarian, s.Key(), []string{isbnQuixote})
	require.ErrorIs(t, err, ErrNotPermitted)
	_, err = mgr.Login(librarian.Number, librarian.Identity)
	require.ErrorIs(t, err, ErrNotPermitted)

	b, _ := mgr.Book(isbnQuixote)
	assert.Equal(t, 1, b.AvailableCopies)
	assert.Zero(t, mgr.Counts()[KindLoans])
}

func TestLoanLifecycleThroughManager(t *testing.T) {
	mgr, admin, c := newManager(t)
	librarian := hire(t, mgr, admin, "0801198500001", Librarian)
	stock(t, mgr, admin, 1, isbnQuixote, isbnOdyssey)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")
	l, err := mgr.IssueLoan(librarian, s.Key(), []string{isbnQuixote, isbnOdyssey})
	require.NoError(t, err)
	due := l.DueDate

	require.NoError(t, mgr.RenewLoan(librarian, l.ID, 0))
	assert.Equal(t, due.AddDate(0, 0, LoanDays), l.DueDate)
	require.ErrorIs(t, mgr.RenewLoan(librarian, l.ID, -1), ErrFailedValidation)
	require.NoError(t, mgr.SetLoanNotes(librarian, l.ID, "  cover torn  "))
	assert.Equal(t, "cover torn", l.Notes)

	c.advance(16 * day)
	_, err = mgr.ReturnPartial(librarian, l.ID, []string{isbnQuixote})
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyReturned, l.Status)
	assert.Len(t, s.Borrowed, 1)

	c.advance(day)
	returned, err := mgr.ReturnPartial(librarian, l.ID, []string{isbnOdyssey})
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	assert.Equal(t, "3.00", l.Fine.StringFixed(2))

	require.ErrorIs(t, mgr.SettleFine(librarian, l.ID), ErrNotPermitted)
	require.NoError(t, mgr.SettleFine(admin, l.ID))
	assert.True(t, l.FinePaid)

	recent := librarian.RecentActivity(1)
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0].Action, "partially returned")
}

func TestSnapshotsAreWritten(t *testing.T) {
	dir := t.TempDir()
	mgr, admin, _ := openManager(t, dir, &clock{now: testNow})
	stock(t, mgr, admin, 1, isbnQuixote)

	for _, kind := range Kinds {
		_, err := os.Stat(filepath.Join(dir, string(kind)+".json"))
		require.NoError(t, err, kind)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "books.json"))
	require.NoError(t, err)
	books, skipped, err := decodeRecords[Book](KindBooks, raw)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, books, 1)
	assert.Equal(t, 1, books[0].AvailableCopies)
}

func TestReloadRelinksLoans(t *testing.T) {
	dir := t.TempDir()
	c := &clock{now: testNow}
	mgr, admin, _ := openManager(t, dir, c)
	hire(t, mgr, admin, "0801198500001", Librarian)
	stock(t, mgr, admin, 1, isbnQuixote, isbnOdyssey, isbn1984, isbnGatsby)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")
	enroll(t, mgr, admin, "0801200000002", 22, "Medicine")

	first, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote, isbnOdyssey})
	require.NoError(t, err)
	_, err = mgr.ReturnPartial(admin, first.ID, []string{isbnQuixote})
	require.NoError(t, err)
	second, err := mgr.IssueLoan(admin, "0801200000002", []string{isbn1984})
	require.NoError(t, err)
	require.NoError(t, mgr.ConfirmLoan(admin, second.ID))
	third, err := mgr.IssueLoan(admin, s.Key(), []string{isbnGatsby})
	require.NoError(t, err)
	require.NoError(t, mgr.CancelLoan(admin, third.ID))

	again, admin2, _ := openManager(t, dir, c)
	assert.Equal(t, map[Kind]int{KindStudents: 2, KindBooks: 4, KindLoans: 3, KindEmployees: 2}, again.Counts())
	assert.Empty(t, again.LoadProblems())

	student, err := again.Student(s.Key())
	require.NoError(t, err)
	require.Len(t, student.Borrowed, 1)
	assert.Equal(t, isbnOdyssey, student.Borrowed[0].ISBN)

	loan, err := again.Loan(first.ID)
	require.NoError(t, err)
	assert.Same(t, student, loan.Student)
	assert.Equal(t, StatusPartiallyReturned, loan.Status)
	assert.Equal(t, []string{isbnOdyssey}, loan.Outstanding())

	other, _ := again.Student("0801200000002")
	assert.Len(t, other.Borrowed, 1)

	gatsby, _ := again.Book(isbnGatsby)
	assert.Equal(t, 1, gatsby.AvailableCopies)

	next, err := again.IssueLoan(admin2, "0801200000002", []string{isbnGatsby})
	require.NoError(t, err)
	assert.Equal(t, 4, next.ID)
	e := hire(t, again, admin2, "0801198500002", Supervisor)
	assert.Equal(t, 3, e.Number)

	// Finishing the reloaded loan puts the remaining copy back.
	_, err = again.ReturnLoan(admin2, first.ID)
	require.NoError(t, err)
	odyssey, _ := again.Book(isbnOdyssey)
	assert.Equal(t, 1, odyssey.AvailableCopies)
	assert.Empty(t, student.Borrowed)
}

func writeSnapshot(t *testing.T, dir string, kind Kind, payload string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(kind)+".json"), []byte(payload), 0o644))
}

func TestReloadKeepsPeopleWhoAgedOut(t *testing.T) {
	dir := t.TempDir()
	c := &clock{now: testNow}
	mgr, admin, _ := openManager(t, dir, c)
	stock(t, mgr, admin, 1, isbnQuixote)
	s := enroll(t, mgr, admin, "0801193500001", 90, "Historia")
	in := employeeInput("0801193500002", Librarian)
	in.Person = testPerson("0801193500002", 90)
	_, err := mgr.HireEmployee(admin, in)
	require.NoError(t, err)
	l, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote})
	require.NoError(t, err)

	c.advance(400 * day)
	again, admin2, _ := openManager(t, dir, c)
	assert.Empty(t, again.LoadProblems())
	assert.Equal(t, map[Kind]int{KindStudents: 1, KindBooks: 1, KindLoans: 1, KindEmployees: 2}, again.Counts())

	loan, err := again.Loan(l.ID)
	require.NoError(t, err)
	require.NotNil(t, loan.Student)
	assert.Equal(t, 91, loan.Student.Age(c.Now()))
	require.Len(t, loan.Student.Borrowed, 1)

	require.NoError(t, again.ConfirmLoan(admin2, l.ID))
	third, _, _ := openManager(t, dir, c)
	assert.Equal(t, 1, third.Counts()[KindStudents])

	// Registration still applies the age window.
	_, err = again.RegisterStudent(admin2, testPerson("0801193400003", 91), "Historia")
	require.ErrorIs(t, err, ErrFailedValidation)
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, KindStudents, `[
		{"name":"Ana Maria Lopez","identity":"0801200000001","email":"ana@example.com","phone":"99998888",
		 "birth_date":"2005-03-10T00:00:00Z","address":"Colonia Centro 123","career":"Law School"},
		{"name":"Ana Maria Lopez","identity":"0801200000001","email":"ana@example.com","phone":"99998888",
		 "birth_date":"2005-03-10T00:00:00Z","address":"Colonia Centro 123","career":"Law School"},
		{"name":"Bad Email Person","identity":"0801200000002","email":"nope","phone":"99998888",
		 "birth_date":"2005-03-10T00:00:00Z","address":"Colonia Centro 123","career":"Law School"},
		42
	]`)
	writeSnapshot(t, dir, KindBooks, `{"title":"not an array"}`)
	writeSnapshot(t, dir, KindLoans, `[
		{"id":7,"student_id":"0801200000001","isbns":["9780140449136"],"loan_date":"2025-03-01T10:00:00Z",
		 "due_date":"2025-03-08T10:00:00Z","status":"overdue","fine":"0"},
		{"id":8,"student_id":"0801200000001","isbns":[],"loan_date":"2025-03-01T10:00:00Z",
		 "due_date":"2025-03-08T10:00:00Z","status":"active","fine":"0"}
	]`)

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	mgr, err := NewLibraryManager(store, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	assert.Equal(t, map[Kind]int{KindStudents: 1, KindBooks: 0, KindLoans: 1, KindEmployees: 0}, mgr.Counts())
	problems := mgr.LoadProblems()
	kinds := map[Kind]int{}
	for _, p := range problems {
		kinds[p.Kind]++
	}
	assert.Equal(t, map[Kind]int{KindStudents: 3, KindBooks: 1, KindLoans: 1}, kinds)

	// The loan references a book that did not load; it stays, unlinked.
	l, err := mgr.Loan(7)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, l.Status)
	assert.NotNil(t, l.Student)
	assert.Empty(t, l.Books)

	admin, _, err := mgr.EnsureDefaultAdmin(testPerson("0801198000001", 45))
	require.NoError(t, err)
	next, err := mgr.IssueLoan(admin, "0801200000001", nil)
	require.ErrorIs(t, err, ErrNoBooks)
	assert.Nil(t, next)
}

func TestMissingFilesGiveEmptyLibrary(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "fresh"))
	require.NoError(t, err)
	mgr, err := NewLibraryManager(store)
	require.NoError(t, err)

	for _, kind := range Kinds {
		assert.Zero(t, mgr.Counts()[kind], kind)
	}
	assert.Empty(t, mgr.LoadProblems())
}

func TestEnsureDefaultAdmin(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	mgr, err := NewLibraryManager(store, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	bad := testPerson("0801", 45)
	_, created, err := mgr.EnsureDefaultAdmin(bad)
	require.ErrorIs(t, err, ErrFailedValidation)
	assert.False(t, created)

	admin, created, err := mgr.EnsureDefaultAdmin(testPerson("0801198000001", 45))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, admin.Number)
	assert.Equal(t, Administrator, admin.Role)

	again, created, err := mgr.EnsureDefaultAdmin(testPerson("0801198000002", 45))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, again)

	got, err := mgr.Login(1, " 0801198000001 ")
	require.NoError(t, err)
	assert.Same(t, admin, got)
	_, err = mgr.Login(1, "0801198000002")
	require.ErrorIs(t, err, ErrNotPermitted)
	_, err = mgr.Login(99, "0801198000001")
	require.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestEmployeeManagement(t *testing.T) {
	mgr, admin, _ := newManager(t)
	e := hire(t, mgr, admin, "0801198500001", Librarian)
	assert.Equal(t, 2, e.Number)

	_, err := mgr.HireEmployee(admin, employeeInput("0801198500001", Supervisor))
	require.ErrorIs(t, err, ErrDuplicateRecord)

	require.NoError(t, mgr.ChangeShift(admin, e.Number, "afternoon"))
	assert.Equal(t, "Afternoon", e.Shift)
	require.NoError(t, mgr.UpdateSalary(admin, e.Number, decimal.NewFromInt(18000)))
	assert.Equal(t, "18000.00", e.Salary.StringFixed(2))
	require.ErrorIs(t, mgr.UpdateSalary(admin, 77, decimal.NewFromInt(18000)), ErrEmployeeNotFound)

	require.ErrorIs(t, mgr.DeactivateEmployee(admin, e.Number, ""), ErrFailedValidation)
	require.NoError(t, mgr.DeactivateEmployee(admin, e.Number, "leave of absence"))
	assert.False(t, e.Active)
	require.NoError(t, mgr.ReactivateEmployee(admin, e.Number))
	assert.True(t, e.Active)

	list, err := mgr.Employees(e)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Contains(t, admin.RecentActivity(1)[0].Action, "hired employee #2")
}

func TestDueSoon(t *testing.T) {
	mgr, admin, c := newManager(t)
	stock(t, mgr, admin, 1, isbnQuixote, isbnOdyssey, isbn1984)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")

	c.now = testNow.AddDate(0, 0, -10)
	late, err := mgr.IssueLoan(admin, s.Key(), []string{isbn1984})
	require.NoError(t, err)
	c.now = testNow.AddDate(0, 0, -5)
	soon, err := mgr.IssueLoan(admin, s.Key(), []string{isbnOdyssey})
	require.NoError(t, err)
	c.now = testNow
	later, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote})
	require.NoError(t, err)

	due, err := mgr.DueSoon(admin, 0)
	require.NoError(t, err)
	assert.Equal(t, []*Loan{soon}, due)

	due, err = mgr.DueSoon(admin, LoanDays)
	require.NoError(t, err)
	assert.Equal(t, []*Loan{soon, later}, due)
	assert.Equal(t, StatusOverdue, late.EffectiveStatus(mgr.Now()))
}

func TestSearchBooks(t *testing.T) {
	mgr, admin, _ := newManager(t)
	quijote := bookInput(isbnQuixote, 1)
	quijote.Title = "El Ingenioso Hidalgo Don Quijote"
	cien := bookInput(isbnOdyssey, 1)
	cien.Title, cien.Author = "Cien Años de Soledad", "Gabriel García Márquez"
	for _, in := range []Book{quijote, cien} {
		_, err := mgr.RegisterBook(admin, in)
		require.NoError(t, err)
	}

	found, err := mgr.SearchBooks(admin, "ANOS")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, isbnOdyssey, found[0].ISBN)

	peregrino := bookInput(isbn1984, 1)
	peregrino.Title = "Años de Peregrinación"
	_, err = mgr.RegisterBook(admin, peregrino)
	require.NoError(t, err)

	found, err = mgr.SearchBooks(admin, "años")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, isbn1984, found[0].ISBN)

	found, err = mgr.SearchBooks(admin, "  ")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = mgr.RegisterBook(admin, quijote)
	require.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestSearchBooksWithIndex(t *testing.T) {
	db := tempDB(t)
	mgr, err := NewLibraryManager(db, WithClock(func() time.Time { return testNow }), WithSearchIndex(db))
	require.NoError(t, err)
	admin, _, err := mgr.EnsureDefaultAdmin(testPerson("0801198000001", 45))
	require.NoError(t, err)
	cien := bookInput(isbnOdyssey, 1)
	cien.Title = "Cien Años de Soledad"
	_, err = mgr.RegisterBook(admin, cien)
	require.NoError(t, err)

	found, err := mgr.SearchBooks(admin, "soledad")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Cien Años de Soledad", found[0].Title)
}

func TestSetTotalCopiesThroughManager(t *testing.T) {
	mgr, admin, _ := newManager(t)
	stock(t, mgr, admin, 2, isbnQuixote)
	s := enroll(t, mgr, admin, "0801200000001", 20, "Law School")
	_, err := mgr.IssueLoan(admin, s.Key(), []string{isbnQuixote})
	require.NoError(t, err)

	require.ErrorIs(t, mgr.SetTotalCopies(admin, isbnQuixote, 0), ErrCopiesOnLoan)
	require.NoError(t, mgr.SetTotalCopies(admin, isbnQuixote, 4))
	b, _ := mgr.Book(isbnQuixote)
	assert.Equal(t, 3, b.AvailableCopies)
	require.ErrorIs(t, mgr.SetTotalCopies(admin, isbnCatcher, 4), ErrBookNotFound)
}

func TestReadingRoomThroughManager(t *testing.T) {
	mgr, admin, c := newManager(t)
	librarian := hire(t, mgr, admin, "0801198500001", Librarian)

	require.NoError(t, mgr.OccupySeat(librarian, 0, 0))
	require.ErrorIs(t, mgr.OccupySeat(librarian, 0, 0), ErrSeatUnavailable)
	require.ErrorIs(t, mgr.ConfigureRoomHours(librarian, 6*time.Hour, 22*time.Hour), ErrNotPermitted)
	require.ErrorIs(t, mgr.SetSeatOutOfService(librarian, 1, 1, true), ErrNotPermitted)
	require.NoError(t, mgr.SetSeatOutOfService(admin, 1, 1, true))
	require.NoError(t, mgr.ReleaseSeat(librarian, 0, 0))
	assert.Equal(t, 0, mgr.Room().Occupied())

	c.now = time.Date(2025, 3, 10, 21, 30, 0, 0, time.UTC)
	require.ErrorIs(t, mgr.OccupySeat(librarian, 0, 0), ErrRoomClosed)
	require.NoError(t, mgr.ConfigureRoomHours(admin, 6*time.Hour, 22*time.Hour))
	require.NoError(t, mgr.OccupySeat(librarian, 0, 0))

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	bare, err := NewLibraryManager(store)
	require.NoError(t, err)
	require.ErrorIs(t, bare.OccupySeat(admin, 0, 0), ErrRoomClosed)
}
