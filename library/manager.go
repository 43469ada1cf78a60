package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
)

const searchCacheTTL = time.Minute

// LibraryManager owns the in-memory collections and is the only way the
// console changes them. Every mutation checks the acting employee first and
// saves a full snapshot afterwards.
type LibraryManager struct {
	store  Store
	index  SearchIndex
	logger *slog.Logger
	now    func() time.Time
	room   *ReadingRoom

	students  []*Student
	books     []*Book
	loans     []*Loan
	employees []*Employee

	studentsByID map[string]*Student
	booksByISBN  map[string]*Book

	nextLoanID         int
	nextEmployeeNumber int

	searchCache *ttlcache.Cache[string, []*Book]
	problems    []RecordProblem
}

type Option func(*LibraryManager)

func WithLogger(logger *slog.Logger) Option {
	return func(lm *LibraryManager) { lm.logger = logger }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) { lm.now = now }
}

// WithSearchIndex keeps idx in step with the catalog and answers searches from it.
func WithSearchIndex(idx SearchIndex) Option {
	return func(lm *LibraryManager) { lm.index = idx }
}

func WithReadingRoom(room *ReadingRoom) Option {
	return func(lm *LibraryManager) { lm.room = room }
}

// NewLibraryManager loads every collection from store. Bad records are logged
// and skipped; only a failing store is an error.
func NewLibraryManager(store Store, opts ...Option) (*LibraryManager, error) {
	lm := &LibraryManager{
		store:              store,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:                time.Now,
		studentsByID:       map[string]*Student{},
		booksByISBN:        map[string]*Book{},
		nextLoanID:         1,
		nextEmployeeNumber: 1,
		searchCache:        ttlcache.New(ttlcache.WithTTL[string, []*Book](searchCacheTTL)),
	}
	for _, opt := range opts {
		opt(lm)
	}
	if err := lm.load(); err != nil {
		return nil, err
	}
	if lm.index != nil {
		if err := lm.index.IndexBooks(lm.books); err != nil {
			lm.logger.Error("index catalog", "error", err)
		}
	}
	return lm, nil
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// Now is the manager's clock.
func (lm *LibraryManager) Now() time.Time { return lm.now() }

// LoadProblems lists the records skipped during the last load.
func (lm *LibraryManager) LoadProblems() []RecordProblem { return lm.problems }

// ------------------ Loading ------------------

func (lm *LibraryManager) payload(kind Kind) ([]byte, error) {
	payload, err := lm.store.Load(kind)
	if errors.Is(err, ErrCorruptSnapshot) {
		lm.skip(RecordProblem{Kind: kind, Index: -1, Reason: err.Error()})
		return nil, nil
	}
	return payload, err
}

func (lm *LibraryManager) skip(p RecordProblem) {
	lm.problems = append(lm.problems, p)
	lm.logger.Warn("skipped record", "kind", p.Kind, "index", p.Index, "reason", p.Reason)
}

func loadKind[T any](lm *LibraryManager, kind Kind) ([]*T, error) {
	payload, err := lm.payload(kind)
	if err != nil {
		return nil, err
	}
	records, skipped, err := decodeRecords[T](kind, payload)
	if err != nil {
		lm.skip(RecordProblem{Kind: kind, Index: -1, Reason: err.Error()})
		return nil, nil
	}
	for _, p := range skipped {
		lm.skip(p)
	}
	return records, nil
}

func (lm *LibraryManager) load() error {
	now := lm.now()

	students, err := loadKind[Student](lm, KindStudents)
	if err != nil {
		return err
	}
	for i, s := range students {
		if err := s.validate(now, false); err != nil {
			lm.skip(RecordProblem{KindStudents, i, err.Error()})
			continue
		}
		if _, dup := lm.studentsByID[s.Key()]; dup {
			lm.skip(RecordProblem{KindStudents, i, "duplicate identity " + s.Key()})
			continue
		}
		lm.addStudent(s)
	}

	books, err := loadKind[Book](lm, KindBooks)
	if err != nil {
		return err
	}
	for i, b := range books {
		if err := b.Validate(now); err != nil {
			lm.skip(RecordProblem{KindBooks, i, err.Error()})
			continue
		}
		if _, dup := lm.booksByISBN[b.Key()]; dup {
			lm.skip(RecordProblem{KindBooks, i, "duplicate isbn " + b.ISBN})
			continue
		}
		lm.addBook(b)
	}

	employees, err := loadKind[Employee](lm, KindEmployees)
	if err != nil {
		return err
	}
	numbers := map[int]bool{}
	for i, e := range employees {
		if err := e.validate(now, false); err != nil {
			lm.skip(RecordProblem{KindEmployees, i, err.Error()})
			continue
		}
		if e.Number <= 0 || numbers[e.Number] {
			lm.skip(RecordProblem{KindEmployees, i, fmt.Sprintf("bad or duplicate number %d", e.Number)})
			continue
		}
		numbers[e.Number] = true
		lm.employees = append(lm.employees, e)
		if e.Number >= lm.nextEmployeeNumber {
			lm.nextEmployeeNumber = e.Number + 1
		}
	}

	loans, err := loadKind[Loan](lm, KindLoans)
	if err != nil {
		return err
	}
	ids := map[int]bool{}
	for i, l := range loans {
		if err := l.validate(now); err != nil {
			lm.skip(RecordProblem{KindLoans, i, err.Error()})
			continue
		}
		if ids[l.ID] {
			lm.skip(RecordProblem{KindLoans, i, fmt.Sprintf("duplicate id %d", l.ID)})
			continue
		}
		ids[l.ID] = true
		lm.loans = append(lm.loans, l)
		if l.ID >= lm.nextLoanID {
			lm.nextLoanID = l.ID + 1
		}
	}

	lm.relink()
	lm.logger.Info("library loaded",
		"students", len(lm.students), "books", len(lm.books),
		"employees", len(lm.employees), "loans", len(lm.loans),
		"skipped", len(lm.problems))
	return nil
}

// relink resolves loan references and rebuilds every student's borrowed list
// from the books still out on open loans.
func (lm *LibraryManager) relink() {
	for _, s := range lm.students {
		s.Borrowed = nil
	}
	for _, l := range lm.loans {
		l.Link(lm.studentsByID, lm.booksByISBN)
		if l.Student == nil {
			lm.logger.Warn("loan references unknown student", "loan_id", l.ID, "student", l.StudentID)
		}
		if len(l.Books) != len(l.ISBNs) {
			lm.logger.Warn("loan references unknown books", "loan_id", l.ID, "isbns", l.ISBNs)
		}
		if l.Student == nil || !l.Status.Open() {
			continue
		}
		for _, isbn := range l.Outstanding() {
			b := l.book(isbn)
			if b == nil || l.Student.Holds(b.ISBN) {
				continue
			}
			l.Student.Borrowed = append(l.Student.Borrowed, b)
		}
	}
	now := lm.now()
	for _, s := range lm.students {
		if len(s.Borrowed) > s.MaxAllowed(now) {
			lm.logger.Warn("student holds more than allowed", "student", s.Key(), "held", len(s.Borrowed))
		}
	}
}

func (lm *LibraryManager) addStudent(s *Student) {
	lm.students = append(lm.students, s)
	lm.studentsByID[s.Key()] = s
}

func (lm *LibraryManager) addBook(b *Book) {
	lm.books = append(lm.books, b)
	lm.booksByISBN[b.Key()] = b
}

// ------------------ Saving ------------------

// Save writes every collection to the store and refreshes the search index.
func (lm *LibraryManager) Save() error {
	var errs []error
	save := func(kind Kind, payload []byte, err error) {
		if err == nil {
			err = lm.store.Save(kind, payload)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", kind, err))
		}
	}
	payload, err := encodeRecords(lm.students)
	save(KindStudents, payload, err)
	payload, err = encodeRecords(lm.books)
	save(KindBooks, payload, err)
	payload, err = encodeRecords(lm.employees)
	save(KindEmployees, payload, err)
	payload, err = encodeRecords(lm.loans)
	save(KindLoans, payload, err)

	if lm.index != nil {
		if err := lm.index.IndexBooks(lm.books); err != nil {
			errs = append(errs, fmt.Errorf("index catalog: %w", err))
		}
	}
	return errors.Join(errs...)
}

// persist saves after a committed mutation. The mutation stands even when
// the write fails, so the error is only logged.
func (lm *LibraryManager) persist() {
	if err := lm.Save(); err != nil {
		lm.logger.Error("save snapshot", "error", err)
	}
}

// ------------------ Permissions ------------------

func (lm *LibraryManager) authorize(by *Employee, op Operation) error {
	if by == nil {
		lm.logger.Warn("permission denied", "operation", op, "reason", "no employee")
		return fmt.Errorf("%w: %s requires an employee", ErrNotPermitted, op)
	}
	if !by.CanPerform(op) {
		lm.logger.Warn("permission denied", "operation", op, "employee", by.Number, "role", by.Role, "active", by.Active)
		return fmt.Errorf("%w: %s (%s) cannot %s", ErrNotPermitted, by.Name, by.Role, op)
	}
	return nil
}

// Login returns the active employee with number whose identity matches.
func (lm *LibraryManager) Login(number int, identity string) (*Employee, error) {
	e, err := lm.employee(number)
	if err != nil {
		return nil, err
	}
	if e.Key() != strings.TrimSpace(identity) || !e.Active {
		lm.logger.Warn("login refused", "employee", number)
		return nil, fmt.Errorf("%w: wrong identity or inactive employee", ErrNotPermitted)
	}
	return e, nil
}

// ------------------ Lookups ------------------

func (lm *LibraryManager) student(identity string) (*Student, error) {
	s, ok := lm.studentsByID[strings.TrimSpace(identity)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, identity)
	}
	return s, nil
}

func (lm *LibraryManager) book(isbn string) (*Book, error) {
	b, ok := lm.booksByISBN[isbnKey(isbn)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, isbn)
	}
	return b, nil
}

func (lm *LibraryManager) loan(id int) (*Loan, error) {
	for _, l := range lm.loans {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrLoanNotFound, id)
}

func (lm *LibraryManager) employee(number int) (*Employee, error) {
	for _, e := range lm.employees {
		if e.Number == number {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: #%d", ErrEmployeeNotFound, number)
}

// EmployeeByIdentity finds an employee by identity document.
func (lm *LibraryManager) EmployeeByIdentity(identity string) (*Employee, error) {
	key := strings.TrimSpace(identity)
	for _, e := range lm.employees {
		if e.Key() == key {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: identity %s", ErrEmployeeNotFound, key)
}

// Counts reports how many records of each kind are loaded.
func (lm *LibraryManager) Counts() map[Kind]int {
	return map[Kind]int{
		KindStudents:  len(lm.students),
		KindBooks:     len(lm.books),
		KindLoans:     len(lm.loans),
		KindEmployees: len(lm.employees),
	}
}

func (lm *LibraryManager) Student(identity string) (*Student, error) { return lm.student(identity) }
func (lm *LibraryManager) Book(isbn string) (*Book, error)           { return lm.book(isbn) }
func (lm *LibraryManager) Loan(id int) (*Loan, error)                { return lm.loan(id) }
func (lm *LibraryManager) Employee(number int) (*Employee, error)    { return lm.employee(number) }

// ------------------ Loans ------------------

// IssueLoan lends the books named by isbns to the student.
func (lm *LibraryManager) IssueLoan(by *Employee, studentID string, isbns []string) (*Loan, error) {
	if err := lm.authorize(by, OpLoan); err != nil {
		return nil, err
	}
	s, err := lm.student(studentID)
	if err != nil {
		return nil, err
	}
	books := make([]*Book, 0, len(isbns))
	for _, isbn := range isbns {
		b, err := lm.book(isbn)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	now := lm.now()
	l, err := Issue(lm.nextLoanID, s, books, now)
	if err != nil {
		return nil, err
	}
	lm.nextLoanID++
	lm.loans = append(lm.loans, l)
	by.record(now, "issued loan #%d to %s", l.ID, s.Key())
	lm.logger.Info("loan issued", "loan_id", l.ID, "student", s.Key(), "isbns", l.ISBNs, "employee", by.Number)
	lm.persist()
	return l, nil
}

func (lm *LibraryManager) ConfirmLoan(by *Employee, id int) error {
	return lm.mutateLoan(by, OpConfirmLoan, id, "confirmed", func(l *Loan, _ time.Time) error {
		return l.Confirm()
	})
}

// CancelLoan cancels an active loan and puts its books back on the shelf.
func (lm *LibraryManager) CancelLoan(by *Employee, id int) error {
	return lm.mutateLoan(by, OpCancelLoan, id, "cancelled", func(l *Loan, _ time.Time) error {
		out := append([]*Book(nil), l.Books...)
		if err := l.Cancel(); err != nil {
			return err
		}
		for _, b := range out {
			if err := b.CheckIn(); err != nil {
				lm.logger.Warn("restore cancelled copy", "loan_id", l.ID, "isbn", b.ISBN, "error", err)
			}
			if l.Student != nil && l.Student.Holds(b.ISBN) {
				_ = l.Student.RemoveBorrowed(b)
			}
		}
		return nil
	})
}

// RenewLoan extends the due date by days, or by the standard term when days is zero.
func (lm *LibraryManager) RenewLoan(by *Employee, id, days int) error {
	if days == 0 {
		days = LoanDays
	}
	return lm.mutateLoan(by, OpLoan, id, "renewed", func(l *Loan, now time.Time) error {
		return l.Renew(days, now)
	})
}

func (lm *LibraryManager) ReturnLoan(by *Employee, id int) (*Loan, error) {
	var returned *Loan
	err := lm.mutateLoan(by, OpReturn, id, "returned", func(l *Loan, now time.Time) error {
		returned = l
		return l.Return(now)
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

func (lm *LibraryManager) ReturnPartial(by *Employee, id int, isbns []string) (*Loan, error) {
	var returned *Loan
	err := lm.mutateLoan(by, OpReturn, id, "partially returned", func(l *Loan, now time.Time) error {
		returned = l
		return l.ReturnSome(isbns, now)
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

func (lm *LibraryManager) SettleFine(by *Employee, id int) error {
	return lm.mutateLoan(by, OpManageFines, id, "fine settled", func(l *Loan, now time.Time) error {
		return l.SettleFine(now)
	})
}

// SetLoanNotes replaces the free-text notes of a loan.
func (lm *LibraryManager) SetLoanNotes(by *Employee, id int, notes string) error {
	return lm.mutateLoan(by, OpLoan, id, "notes updated", func(l *Loan, _ time.Time) error {
		l.Notes = strings.TrimSpace(notes)
		return nil
	})
}

func (lm *LibraryManager) mutateLoan(by *Employee, op Operation, id int, action string, fn func(*Loan, time.Time) error) error {
	if err := lm.authorize(by, op); err != nil {
		return err
	}
	l, err := lm.loan(id)
	if err != nil {
		return err
	}
	now := lm.now()
	if err := fn(l, now); err != nil {
		return err
	}
	by.record(now, "loan #%d %s", l.ID, action)
	lm.logger.Info("loan "+action, "loan_id", l.ID, "student", l.StudentID, "status", l.Status,
		"fine", l.Fine.StringFixed(2), "employee", by.Number)
	lm.persist()
	return nil
}

// ------------------ Catalog ------------------

func (lm *LibraryManager) RegisterBook(by *Employee, input Book) (*Book, error) {
	if err := lm.authorize(by, OpAddBook); err != nil {
		return nil, err
	}
	now := lm.now()
	b, err := NewBook(input, now)
	if err != nil {
		return nil, err
	}
	if _, dup := lm.booksByISBN[b.Key()]; dup {
		return nil, fmt.Errorf("%w: isbn %s", ErrDuplicateRecord, b.ISBN)
	}
	lm.addBook(b)
	lm.searchCache.DeleteAll()
	by.record(now, "registered book %s", b.ISBN)
	lm.logger.Info("book registered", "isbn", b.ISBN, "copies", b.TotalCopies, "employee", by.Number)
	lm.persist()
	return b, nil
}

func (lm *LibraryManager) SetTotalCopies(by *Employee, isbn string, total int) error {
	if err := lm.authorize(by, OpModifyBook); err != nil {
		return err
	}
	b, err := lm.book(isbn)
	if err != nil {
		return err
	}
	if err := b.SetTotalCopies(total); err != nil {
		return err
	}
	lm.searchCache.DeleteAll()
	by.record(lm.now(), "set copies of %s to %d", b.ISBN, total)
	lm.logger.Info("book copies changed", "isbn", b.ISBN, "copies", total, "employee", by.Number)
	lm.persist()
	return nil
}

// SearchBooks matches query against title, author, genre and ISBN, ignoring
// case and accents.
func (lm *LibraryManager) SearchBooks(by *Employee, query string) ([]*Book, error) {
	if err := lm.authorize(by, OpSearch); err != nil {
		return nil, err
	}
	key := fold(query)
	if key == "" {
		return []*Book{}, nil
	}
	if item := lm.searchCache.Get(key); item != nil {
		return item.Value(), nil
	}

	var results []*Book
	if lm.index != nil {
		isbns, err := lm.index.SearchBooks(key)
		if err != nil {
			return nil, fmt.Errorf("search index: %w", err)
		}
		for _, isbn := range isbns {
			if b, ok := lm.booksByISBN[isbnKey(isbn)]; ok {
				results = append(results, b)
			}
		}
	} else {
		for _, b := range lm.books {
			if strings.Contains(fold(strings.Join([]string{b.Title, b.Author, b.Genre, b.ISBN}, " ")), key) {
				results = append(results, b)
			}
		}
		sort.SliceStable(results, func(i, j int) bool { return results[i].Title < results[j].Title })
	}
	if results == nil {
		results = []*Book{}
	}
	lm.searchCache.Set(key, results, ttlcache.DefaultTTL)
	return results, nil
}

// ------------------ People ------------------

func (lm *LibraryManager) RegisterStudent(by *Employee, p Person, career string) (*Student, error) {
	if err := lm.authorize(by, OpAddStudent); err != nil {
		return nil, err
	}
	now := lm.now()
	s, err := NewStudent(p, career, now)
	if err != nil {
		return nil, err
	}
	if _, dup := lm.studentsByID[s.Key()]; dup {
		return nil, fmt.Errorf("%w: identity %s", ErrDuplicateRecord, s.Key())
	}
	lm.addStudent(s)
	by.record(now, "registered student %s", s.Key())
	lm.logger.Info("student registered", "student", s.Key(), "employee", by.Number)
	lm.persist()
	return s, nil
}

func (lm *LibraryManager) HireEmployee(by *Employee, input Employee) (*Employee, error) {
	if err := lm.authorize(by, OpAddEmployee); err != nil {
		return nil, err
	}
	e, err := lm.hire(input)
	if err != nil {
		return nil, err
	}
	by.record(lm.now(), "hired employee #%d", e.Number)
	lm.persist()
	return e, nil
}

func (lm *LibraryManager) hire(input Employee) (*Employee, error) {
	e, err := NewEmployee(input, lm.now())
	if err != nil {
		return nil, err
	}
	for _, other := range lm.employees {
		if other.Key() == e.Key() {
			return nil, fmt.Errorf("%w: identity %s", ErrDuplicateRecord, e.Key())
		}
	}
	e.Number = lm.nextEmployeeNumber
	lm.nextEmployeeNumber++
	lm.employees = append(lm.employees, e)
	lm.logger.Info("employee hired", "employee", e.Number, "role", e.Role)
	return e, nil
}

// EnsureDefaultAdmin creates an administrator from p when no employee exists,
// so a fresh install can be operated at all.
func (lm *LibraryManager) EnsureDefaultAdmin(p Person) (*Employee, bool, error) {
	if len(lm.employees) > 0 {
		return nil, false, nil
	}
	e, err := lm.hire(Employee{
		Person:   p,
		Position: "Administrator",
		Shift:    "Full",
		HireDate: lm.now(),
		Salary:   decimal.NewFromInt(25000),
		Role:     Administrator,
	})
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap administrator: %w", err)
	}
	lm.persist()
	return e, true, nil
}

func (lm *LibraryManager) ChangeShift(by *Employee, number int, shift string) error {
	return lm.mutateEmployee(by, OpModifyEmployee, number, "shift changed", func(e *Employee, now time.Time) error {
		return e.ChangeShift(shift, now)
	})
}

func (lm *LibraryManager) UpdateSalary(by *Employee, number int, amount decimal.Decimal) error {
	return lm.mutateEmployee(by, OpModifySalaries, number, "salary updated", func(e *Employee, now time.Time) error {
		return e.UpdateSalary(amount, by, now)
	})
}

func (lm *LibraryManager) DeactivateEmployee(by *Employee, number int, reason string) error {
	return lm.mutateEmployee(by, OpDeactivateEmployee, number, "employee deactivated", func(e *Employee, now time.Time) error {
		return e.Deactivate(reason, by, now)
	})
}

func (lm *LibraryManager) ReactivateEmployee(by *Employee, number int) error {
	return lm.mutateEmployee(by, OpDeactivateEmployee, number, "employee reactivated", func(e *Employee, now time.Time) error {
		return e.Reactivate(by, now)
	})
}

func (lm *LibraryManager) mutateEmployee(by *Employee, op Operation, number int, action string, fn func(*Employee, time.Time) error) error {
	if err := lm.authorize(by, op); err != nil {
		return err
	}
	e, err := lm.employee(number)
	if err != nil {
		return err
	}
	if err := fn(e, lm.now()); err != nil {
		return err
	}
	lm.logger.Info(action, "employee", e.Number, "by", by.Number)
	lm.persist()
	return nil
}

// ------------------ Listings ------------------

func (lm *LibraryManager) Books(by *Employee) ([]*Book, error) {
	if err := lm.authorize(by, OpList); err != nil {
		return nil, err
	}
	return append([]*Book(nil), lm.books...), nil
}

func (lm *LibraryManager) Students(by *Employee) ([]*Student, error) {
	if err := lm.authorize(by, OpList); err != nil {
		return nil, err
	}
	return append([]*Student(nil), lm.students...), nil
}

func (lm *LibraryManager) Loans(by *Employee) ([]*Loan, error) {
	if err := lm.authorize(by, OpList); err != nil {
		return nil, err
	}
	return append([]*Loan(nil), lm.loans...), nil
}

func (lm *LibraryManager) Employees(by *Employee) ([]*Employee, error) {
	if err := lm.authorize(by, OpList); err != nil {
		return nil, err
	}
	return append([]*Employee(nil), lm.employees...), nil
}

// DueSoon lists active and confirmed loans due within the next days, earliest
// first. A non-positive days uses the default window.
func (lm *LibraryManager) DueSoon(by *Employee, days int) ([]*Loan, error) {
	if err := lm.authorize(by, OpList); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DueSoonDays
	}
	now := lm.now()
	var due []*Loan
	for _, l := range lm.loans {
		if l.Status != StatusActive && l.Status != StatusConfirmed {
			continue
		}
		if until := daysBetween(now, l.DueDate); until >= 0 && until <= days {
			due = append(due, l)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].DueDate.Before(due[j].DueDate) })
	return due, nil
}

// ------------------ Reading room ------------------

// Room returns the reading room, or nil when none is configured.
func (lm *LibraryManager) Room() *ReadingRoom { return lm.room }

func (lm *LibraryManager) roomFor(by *Employee, op Operation) (*ReadingRoom, error) {
	if err := lm.authorize(by, op); err != nil {
		return nil, err
	}
	if lm.room == nil {
		return nil, fmt.Errorf("%w: no reading room configured", ErrRoomClosed)
	}
	return lm.room, nil
}

func (lm *LibraryManager) OccupySeat(by *Employee, row, col int) error {
	room, err := lm.roomFor(by, OpList)
	if err != nil {
		return err
	}
	return room.Occupy(row, col, lm.now())
}

func (lm *LibraryManager) ReleaseSeat(by *Employee, row, col int) error {
	room, err := lm.roomFor(by, OpList)
	if err != nil {
		return err
	}
	return room.Release(row, col)
}

func (lm *LibraryManager) ConfigureRoomHours(by *Employee, opens, closes time.Duration) error {
	room, err := lm.roomFor(by, OpConfigureRoom)
	if err != nil {
		return err
	}
	if err := room.SetHours(opens, closes); err != nil {
		return err
	}
	lm.logger.Info("reading room hours changed", "opens", FormatClock(opens), "closes", FormatClock(closes), "employee", by.Number)
	return nil
}

func (lm *LibraryManager) SetSeatOutOfService(by *Employee, row, col int, out bool) error {
	room, err := lm.roomFor(by, OpConfigureRoom)
	if err != nil {
		return err
	}
	return room.SetOutOfService(row, col, out)
}
