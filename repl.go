package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"library-desk/library"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const maxLoginAttempts = 3

func isTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// terminalWidth falls back to 80 columns when stdout is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
		return w
	}
	return 80
}

func rule() string { return strings.Repeat("-", min(terminalWidth(), 120)) }

// readSecret reads a line without echo when hidden is set, or a plain line
// from sc otherwise.
func readSecret(sc *bufio.Scanner, prompt string, hidden bool) (string, bool) {
	fmt.Print(prompt)
	if hidden {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(string(b)), true
	}
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt(sc *bufio.Scanner, label string) (int, bool) {
	text, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		fmt.Println("Invalid number.")
		return 0, false
	}
	return n, true
}

func promptDate(sc *bufio.Scanner, label string) (time.Time, bool) {
	text, ok := prompt(sc, label+" (YYYY-MM-DD): ")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, text, time.Local)
	if err != nil {
		fmt.Println("Invalid date.")
		return time.Time{}, false
	}
	return t, true
}

func promptISBNs(sc *bufio.Scanner, label string) ([]string, bool) {
	text, ok := prompt(sc, label+" (comma separated): ")
	if !ok {
		return nil, false
	}
	var isbns []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			isbns = append(isbns, p)
		}
	}
	return isbns, true
}

func confirm(sc *bufio.Scanner, label string) bool {
	answer, ok := prompt(sc, label+" [y/N]: ")
	return ok && strings.EqualFold(answer, "y")
}

// printError renders permission, state and validation failures differently.
func printError(err error) {
	var verr *library.ValidationError
	switch {
	case errors.As(err, &verr):
		fmt.Println("Invalid data:")
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s %s\n", k, verr.Fields[k])
		}
	case errors.Is(err, library.ErrNotPermitted):
		fmt.Printf("Not authorized: %v\n", err)
	case errors.Is(err, library.ErrInvalidState):
		fmt.Printf("Invalid operation: %v\n", err)
	default:
		fmt.Printf("Error: %v\n", err)
	}
}

func login(sc *bufio.Scanner, mgr *library.LibraryManager, hidden bool) (*library.Employee, bool) {
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		number, ok := promptInt(sc, "Employee number: ")
		if !ok {
			if sc.Err() != nil {
				return nil, false
			}
			continue
		}
		identity, ok := readSecret(sc, "Identity: ", hidden)
		if !ok {
			return nil, false
		}
		e, err := mgr.Login(number, identity)
		if err == nil {
			fmt.Printf("Welcome, %s (%s).\n", e.Name, e.Role)
			return e, true
		}
		printError(err)
	}
	fmt.Println("Too many failed attempts.")
	return nil, false
}

func runConsole(a *app, in io.Reader) error {
	sc := bufio.NewScanner(in)
	mgr := a.mgr
	hidden := in == io.Reader(os.Stdin) && isTerminal()

	fmt.Println("Welcome to the Library Front Desk!")
	user, ok := login(sc, mgr, hidden)
	if !ok {
		return errors.New("no employee logged in")
	}
	a.logger.Info("session started", "employee", user.Number)

	printMenu()
	for {
		fmt.Print("\n> ")
		if !sc.Scan() {
			break
		}
		cmd := strings.ToLower(strings.TrimSpace(sc.Text()))

		switch cmd {
		case "":
		case "help":
			printMenu()

		case "add student":
			handleAddStudent(sc, mgr, user)
		case "list students":
			handleListStudents(mgr, user)
		case "show student":
			handleShowStudent(sc, mgr, user)

		case "add book":
			handleAddBook(sc, mgr, user)
		case "list books":
			handleListBooks(mgr, user)
		case "search book":
			handleSearchBooks(sc, mgr, user)
		case "set copies":
			handleSetCopies(sc, mgr, user)

		case "loan":
			handleIssueLoan(sc, mgr, user)
		case "confirm loan":
			handleLoanAction(sc, "Loan ID to confirm: ", func(id int) error { return mgr.ConfirmLoan(user, id) }, "Loan confirmed.")
		case "cancel loan":
			handleLoanAction(sc, "Loan ID to cancel: ", func(id int) error { return mgr.CancelLoan(user, id) }, "Loan cancelled and copies restored.")
		case "renew":
			handleRenew(sc, mgr, user)
		case "return":
			handleReturn(sc, mgr, user)
		case "partial return":
			handlePartialReturn(sc, mgr, user)
		case "list loans":
			handleListLoans(mgr, user)
		case "due soon":
			handleDueSoon(sc, mgr, user)
		case "settle fine":
			handleLoanAction(sc, "Loan ID whose fine is paid: ", func(id int) error { return mgr.SettleFine(user, id) }, "Fine settled.")
		case "loan notes":
			handleLoanNotes(sc, mgr, user)

		case "room":
			handleShowRoom(mgr)
		case "occupy seat":
			handleSeat(sc, func(r, c int) error { return mgr.OccupySeat(user, r, c) }, "Seat occupied.")
		case "release seat":
			handleSeat(sc, func(r, c int) error { return mgr.ReleaseSeat(user, r, c) }, "Seat released.")
		case "room hours":
			handleRoomHours(sc, mgr, user)
		case "seat service":
			handleSeatService(sc, mgr, user)

		case "add employee":
			handleAddEmployee(sc, mgr, user)
		case "list employees":
			handleListEmployees(mgr, user)
		case "change shift":
			handleChangeShift(sc, mgr, user)
		case "update salary":
			handleUpdateSalary(sc, mgr, user)
		case "deactivate employee":
			handleDeactivate(sc, mgr, user)
		case "reactivate employee":
			handleEmployeeAction(sc, "Employee number to reactivate: ", func(n int) error { return mgr.ReactivateEmployee(user, n) }, "Employee reactivated.")
		case "activity":
			handleActivity(sc, mgr, user)

		case "report":
			handleReport(mgr, user)
		case "students by age":
			handleStudentsByAge(mgr, user)
		case "employee report":
			handleEmployeeReport(mgr, user)

		case "switch user":
			if next, ok := login(sc, mgr, hidden); ok {
				a.logger.Info("user switched", "from", user.Number, "to", next.Number)
				user = next
			}
		case "save":
			if err := mgr.Save(); err != nil {
				printError(err)
			} else {
				fmt.Println("Saved.")
			}
		case "exit":
			if err := mgr.Save(); err != nil {
				printError(err)
			}
			a.logger.Info("session ended", "employee", user.Number)
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type 'help' to see the available commands.")
		}
	}
	return mgr.Save()
}

func printMenu() {
	fmt.Println("Available commands:")
	fmt.Println("  Students:  add student, list students, show student")
	fmt.Println("  Books:     add book, list books, search book, set copies")
	fmt.Println("  Loans:     loan, confirm loan, cancel loan, renew, return, partial return,")
	fmt.Println("             list loans, due soon, settle fine, loan notes")
	fmt.Println("  Room:      room, occupy seat, release seat, room hours, seat service")
	fmt.Println("  Employees: add employee, list employees, change shift, update salary,")
	fmt.Println("             deactivate employee, reactivate employee, activity")
	fmt.Println("  Reports:   report, students by age, employee report")
	fmt.Println("  System:    switch user, save, help, exit")
}

// ------------------ Students ------------------

func promptPerson(sc *bufio.Scanner) (library.Person, bool) {
	var p library.Person
	var ok bool
	if p.Name, ok = prompt(sc, "Full name: "); !ok {
		return p, false
	}
	if p.Identity, ok = prompt(sc, "Identity number: "); !ok {
		return p, false
	}
	if p.Email, ok = prompt(sc, "Email: "); !ok {
		return p, false
	}
	if p.Phone, ok = prompt(sc, "Phone: "); !ok {
		return p, false
	}
	if p.BirthDate, ok = promptDate(sc, "Birth date"); !ok {
		return p, false
	}
	if p.Address, ok = prompt(sc, "Address: "); !ok {
		return p, false
	}
	return p, true
}

func handleAddStudent(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	p, ok := promptPerson(sc)
	if !ok {
		return
	}
	career, ok := prompt(sc, "Career or program: ")
	if !ok {
		return
	}
	s, err := mgr.RegisterStudent(user, p, career)
	if err != nil {
		printError(err)
		return
	}
	fmt.Printf("Student %s registered. May borrow up to %d books.\n", s.Name, s.MaxAllowed(mgr.Now()))
}

func handleListStudents(mgr *library.LibraryManager, user *library.Employee) {
	students, err := mgr.Students(user)
	if err != nil {
		printError(err)
		return
	}
	if len(students) == 0 {
		fmt.Println("No students registered.")
		return
	}
	now := mgr.Now()
	fmt.Printf("%-15s %-30s %-5s %-25s %s\n", "Identity", "Name", "Age", "Career", "Borrowed")
	fmt.Println(rule())
	for _, s := range students {
		fmt.Printf("%-15s %-30s %-5d %-25s %d/%d\n",
			truncateString(s.Identity, 15),
			truncateString(s.Name, 30),
			s.Age(now),
			truncateString(s.Career, 25),
			len(s.Borrowed), s.MaxAllowed(now))
	}
}

func handleShowStudent(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	if !user.CanPerform(library.OpList) {
		printError(fmt.Errorf("%w: list", library.ErrNotPermitted))
		return
	}
	identity, ok := prompt(sc, "Student identity: ")
	if !ok {
		return
	}
	s, err := mgr.Student(identity)
	if err != nil {
		printError(err)
		return
	}
	now := mgr.Now()
	fmt.Println(rule())
	fmt.Printf("Name:     %s\n", s.Name)
	fmt.Printf("Identity: %s\n", s.Identity)
	fmt.Printf("Email:    %s  Phone: %s\n", s.Email, s.Phone)
	fmt.Printf("Age:      %d (%s)\n", s.Age(now), s.AcademicLevel(now))
	fmt.Printf("Career:   %s\n", s.Career)
	fmt.Printf("Borrowed: %d of %d allowed\n", len(s.Borrowed), s.MaxAllowed(now))
	for _, b := range s.Borrowed {
		fmt.Printf("  - %s\n", b)
	}
}

// ------------------ Books ------------------

func handleAddBook(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	var b library.Book
	var ok bool
	if b.Title, ok = prompt(sc, "Title: "); !ok {
		return
	}
	if b.Author, ok = prompt(sc, "Author: "); !ok {
		return
	}
	if b.ISBN, ok = prompt(sc, "ISBN: "); !ok {
		return
	}
	if b.Genre, ok = prompt(sc, "Genre: "); !ok {
		return
	}
	if b.Year, ok = promptInt(sc, "Publication year: "); !ok {
		return
	}
	if b.Publisher, ok = prompt(sc, "Publisher: "); !ok {
		return
	}
	if b.Language, ok = prompt(sc, "Language (empty for Spanish): "); !ok {
		return
	}
	if b.TotalCopies, ok = promptInt(sc, "Copies: "); !ok {
		return
	}
	book, err := mgr.RegisterBook(user, b)
	if err != nil {
		printError(err)
		return
	}
	fmt.Printf("Book registered: %s\n", book)
}

func handleListBooks(mgr *library.LibraryManager, user *library.Employee) {
	books, err := mgr.Books(user)
	if err != nil {
		printError(err)
		return
	}
	printBooks(books)
}

func printBooks(books []*library.Book) {
	if len(books) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-17s %-30s %-20s %-12s %s\n", "ISBN", "Title", "Author", "Genre", "Availability")
	fmt.Println(rule())
	for _, b := range books {
		fmt.Printf("%-17s %-30s %-20s %-12s %s\n",
			truncateString(b.ISBN, 17),
			truncateString(b.Title, 30),
			truncateString(b.Author, 20),
			truncateString(b.Genre, 12),
			b.LoanState())
	}
}

func handleSearchBooks(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	q, ok := prompt(sc, "Search: ")
	if !ok {
		return
	}
	books, err := mgr.SearchBooks(user, q)
	if err != nil {
		printError(err)
		return
	}
	printBooks(books)
}

func handleSetCopies(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	isbn, ok := prompt(sc, "ISBN: ")
	if !ok {
		return
	}
	total, ok := promptInt(sc, "New total copies: ")
	if !ok {
		return
	}
	if err := mgr.SetTotalCopies(user, isbn, total); err != nil {
		printError(err)
		return
	}
	fmt.Println("Copies updated.")
}

// ------------------ Loans ------------------

func handleIssueLoan(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	studentID, ok := prompt(sc, "Student identity: ")
	if !ok {
		return
	}
	isbns, ok := promptISBNs(sc, fmt.Sprintf("ISBNs, up to %d", library.MaxBooksPerLoan))
	if !ok {
		return
	}
	l, err := mgr.IssueLoan(user, studentID, isbns)
	if err != nil {
		printError(err)
		return
	}
	fmt.Printf("Loan #%d issued. Due %s.\n", l.ID, l.DueDate.Format(time.DateOnly))
}

func handleLoanAction(sc *bufio.Scanner, label string, action func(id int) error, done string) {
	id, ok := promptInt(sc, label)
	if !ok {
		return
	}
	if err := action(id); err != nil {
		printError(err)
		return
	}
	fmt.Println(done)
}

func handleRenew(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	id, ok := promptInt(sc, "Loan ID: ")
	if !ok {
		return
	}
	text, ok := prompt(sc, fmt.Sprintf("Days (empty for %d): ", library.LoanDays))
	if !ok {
		return
	}
	days := 0
	if text != "" {
		n, err := strconv.Atoi(text)
		if err != nil {
			fmt.Println("Invalid number.")
			return
		}
		days = n
	}
	if err := mgr.RenewLoan(user, id, days); err != nil {
		printError(err)
		return
	}
	l, _ := mgr.Loan(id)
	fmt.Printf("Loan renewed. New due date %s (%d of %d renewals used).\n",
		l.DueDate.Format(time.DateOnly), l.Renewals, library.MaxRenewals)
}

func handleReturn(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	id, ok := promptInt(sc, "Loan ID: ")
	if !ok {
		return
	}
	l, err := mgr.ReturnLoan(user, id)
	if err != nil {
		printError(err)
		return
	}
	printReturn(l, mgr.Now())
}

func handlePartialReturn(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	id, ok := promptInt(sc, "Loan ID: ")
	if !ok {
		return
	}
	isbns, ok := promptISBNs(sc, "ISBNs being returned")
	if !ok {
		return
	}
	l, err := mgr.ReturnPartial(user, id, isbns)
	if err != nil {
		printError(err)
		return
	}
	if l.Status == library.StatusReturned {
		printReturn(l, mgr.Now())
		return
	}
	fmt.Printf("Books received. Still out: %s\n", strings.Join(l.Outstanding(), ", "))
}

func printReturn(l *library.Loan, now time.Time) {
	if l.Fine.IsPositive() {
		fmt.Printf("Loan #%d returned %d day(s) late. Fine: %s\n", l.ID, l.DaysOverdue(now), l.Fine.StringFixed(2))
		return
	}
	fmt.Printf("Loan #%d returned on time. No fine.\n", l.ID)
}

func handleListLoans(mgr *library.LibraryManager, user *library.Employee) {
	loans, err := mgr.Loans(user)
	if err != nil {
		printError(err)
		return
	}
	printLoans(loans, mgr.Now())
}

func printLoans(loans []*library.Loan, now time.Time) {
	if len(loans) == 0 {
		fmt.Println("No loans found.")
		return
	}
	fmt.Println(rule())
	for _, l := range loans {
		fmt.Println(l.Summary(now))
		if l.Notes != "" {
			fmt.Printf("    notes: %s\n", l.Notes)
		}
	}
}

func handleDueSoon(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	text, ok := prompt(sc, fmt.Sprintf("Within how many days (empty for %d): ", library.DueSoonDays))
	if !ok {
		return
	}
	days, _ := strconv.Atoi(text)
	loans, err := mgr.DueSoon(user, days)
	if err != nil {
		printError(err)
		return
	}
	printLoans(loans, mgr.Now())
}

func handleLoanNotes(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	id, ok := promptInt(sc, "Loan ID: ")
	if !ok {
		return
	}
	notes, ok := prompt(sc, "Notes: ")
	if !ok {
		return
	}
	if err := mgr.SetLoanNotes(user, id, notes); err != nil {
		printError(err)
		return
	}
	fmt.Println("Notes saved.")
}

// ------------------ Reading room ------------------

func handleShowRoom(mgr *library.LibraryManager) {
	room := mgr.Room()
	if room == nil {
		fmt.Println("No reading room configured.")
		return
	}
	state := "closed"
	if room.IsOpen(mgr.Now()) {
		state = "open"
	}
	fmt.Printf("--- %s (%s) ---\n", room.Name, room.Location)
	fmt.Printf("Hours: %s - %s | %s\n", library.FormatClock(room.Opens), library.FormatClock(room.Closes), state)
	fmt.Println("Seats (D=available, O=occupied, F=out of service):")
	for _, line := range room.Grid() {
		fmt.Println(line)
	}
	fmt.Printf("Occupied: %d/%d\n", room.Occupied(), room.Capacity())
}

func promptSeat(sc *bufio.Scanner) (int, int, bool) {
	row, ok := promptInt(sc, "Row: ")
	if !ok {
		return 0, 0, false
	}
	col, ok := promptInt(sc, "Column: ")
	if !ok {
		return 0, 0, false
	}
	return row - 1, col - 1, true
}

func handleSeat(sc *bufio.Scanner, action func(r, c int) error, done string) {
	r, c, ok := promptSeat(sc)
	if !ok {
		return
	}
	if err := action(r, c); err != nil {
		printError(err)
		return
	}
	fmt.Println(done)
}

func handleRoomHours(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	opensText, ok := prompt(sc, "Opens (HH:MM): ")
	if !ok {
		return
	}
	closesText, ok := prompt(sc, "Closes (HH:MM): ")
	if !ok {
		return
	}
	opens, err := library.ParseClock(opensText)
	if err != nil {
		printError(err)
		return
	}
	closes, err := library.ParseClock(closesText)
	if err != nil {
		printError(err)
		return
	}
	if err := mgr.ConfigureRoomHours(user, opens, closes); err != nil {
		printError(err)
		return
	}
	fmt.Println("Hours updated.")
}

func handleSeatService(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	r, c, ok := promptSeat(sc)
	if !ok {
		return
	}
	out := confirm(sc, "Take the seat out of service? (no puts it back)")
	if err := mgr.SetSeatOutOfService(user, r, c, out); err != nil {
		printError(err)
		return
	}
	fmt.Println("Seat updated.")
}

// ------------------ Employees ------------------

func handleAddEmployee(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	if !user.CanPerform(library.OpAddEmployee) {
		printError(fmt.Errorf("%w: add_employee", library.ErrNotPermitted))
		return
	}
	p, ok := promptPerson(sc)
	if !ok {
		return
	}
	e := library.Employee{Person: p}
	if e.Position, ok = prompt(sc, "Position: "); !ok {
		return
	}
	if e.Shift, ok = prompt(sc, "Shift (Morning, Afternoon, Night, Full, Mixed): "); !ok {
		return
	}
	if e.HireDate, ok = promptDate(sc, "Hire date"); !ok {
		return
	}
	salaryText, ok := prompt(sc, "Salary: ")
	if !ok {
		return
	}
	salary, err := decimal.NewFromString(salaryText)
	if err != nil {
		fmt.Println("Invalid amount.")
		return
	}
	e.Salary = salary
	roleText, ok := prompt(sc, "Role (Librarian, Supervisor, Administrator): ")
	if !ok {
		return
	}
	if e.Role, err = library.ParseRole(roleText); err != nil {
		printError(err)
		return
	}

	hired, err := mgr.HireEmployee(user, e)
	if err != nil {
		printError(err)
		return
	}
	fmt.Printf("Employee #%d hired.\n", hired.Number)
}

func handleListEmployees(mgr *library.LibraryManager, user *library.Employee) {
	employees, err := mgr.Employees(user)
	if err != nil {
		printError(err)
		return
	}
	if len(employees) == 0 {
		fmt.Println("No employees.")
		return
	}
	now := mgr.Now()
	fmt.Println(rule())
	for _, e := range employees {
		onShift := ""
		if e.OnShift(now) {
			onShift = " [on shift]"
		}
		fmt.Println(e.Summary() + onShift)
	}
}

func handleEmployeeAction(sc *bufio.Scanner, label string, action func(number int) error, done string) {
	number, ok := promptInt(sc, label)
	if !ok {
		return
	}
	if err := action(number); err != nil {
		printError(err)
		return
	}
	fmt.Println(done)
}

func handleChangeShift(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	number, ok := promptInt(sc, "Employee number: ")
	if !ok {
		return
	}
	shift, ok := prompt(sc, "New shift: ")
	if !ok {
		return
	}
	if err := mgr.ChangeShift(user, number, shift); err != nil {
		printError(err)
		return
	}
	fmt.Println("Shift changed.")
}

func handleUpdateSalary(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	number, ok := promptInt(sc, "Employee number: ")
	if !ok {
		return
	}
	e, err := mgr.Employee(number)
	if err != nil {
		printError(err)
		return
	}
	text, ok := prompt(sc, fmt.Sprintf("New salary (current %s): ", e.Salary.StringFixed(2)))
	if !ok {
		return
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		fmt.Println("Invalid amount.")
		return
	}
	if change := e.SalaryChangePercent(amount); change.Abs().GreaterThan(decimal.NewFromInt(50)) {
		if !confirm(sc, fmt.Sprintf("That is a %s%% change. Continue?", change.StringFixed(1))) {
			fmt.Println("Salary unchanged.")
			return
		}
	}
	if err := mgr.UpdateSalary(user, number, amount); err != nil {
		printError(err)
		return
	}
	fmt.Println("Salary updated.")
}

func handleDeactivate(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	number, ok := promptInt(sc, "Employee number: ")
	if !ok {
		return
	}
	reason, ok := prompt(sc, "Reason: ")
	if !ok {
		return
	}
	if err := mgr.DeactivateEmployee(user, number, reason); err != nil {
		printError(err)
		return
	}
	fmt.Println("Employee deactivated.")
}

func handleActivity(sc *bufio.Scanner, mgr *library.LibraryManager, user *library.Employee) {
	number, ok := promptInt(sc, "Employee number (0 for yourself): ")
	if !ok {
		return
	}
	e := user
	if number != 0 && number != user.Number {
		if !user.CanPerform(library.OpModifyEmployee) {
			printError(fmt.Errorf("%w: modify_employee", library.ErrNotPermitted))
			return
		}
		var err error
		if e, err = mgr.Employee(number); err != nil {
			printError(err)
			return
		}
	}
	entries := e.RecentActivity(10)
	if len(entries) == 0 {
		fmt.Println("No activity recorded.")
		return
	}
	for _, a := range entries {
		fmt.Printf("[%s] %s\n", a.At.Format("2006-01-02 15:04:05"), a.Action)
	}
}

// ------------------ Reports ------------------

func handleReport(mgr *library.LibraryManager, user *library.Employee) {
	r, err := mgr.Report(user)
	if err != nil {
		printError(err)
		return
	}
	printReport(r)
}

func printReport(r *library.Report) {
	fmt.Println(rule())
	fmt.Printf("Library report, %s\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Println(rule())
	fmt.Printf("Titles: %d  Copies: %d  Available: %d  Lent: %d\n", r.Titles, r.TotalCopies, r.AvailableCopies, r.LentCopies)
	fmt.Printf("Students: %d  With books: %d  Average age: %.1f\n", r.Students, r.StudentsWithBooks, r.AverageStudentAge)

	statuses := make([]string, 0, len(r.LoansByStatus))
	for s := range r.LoansByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	fmt.Print("Loans:")
	for _, s := range statuses {
		fmt.Printf(" %s=%d", s, r.LoansByStatus[library.LoanStatus(s)])
	}
	fmt.Printf("  Overdue now: %d\n", r.OverdueLoans)
	fmt.Printf("Fines: %d totalling %s (unpaid %s, average %s)\n",
		r.FinedLoans, r.FinesTotal.StringFixed(2), r.FinesUnpaid.StringFixed(2), r.AverageFine.StringFixed(2))
	if len(r.MostLoaned) > 0 {
		fmt.Println("Most loaned:")
		for i, bc := range r.MostLoaned {
			fmt.Printf("  %d. %s %s (%d)\n", i+1, bc.ISBN, truncateString(bc.Title, 40), bc.Loans)
		}
	}
}

func handleStudentsByAge(mgr *library.LibraryManager, user *library.Employee) {
	groups, err := mgr.StudentsByAge(user)
	if err != nil {
		printError(err)
		return
	}
	levels := make([]string, 0, len(groups))
	for level := range groups {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	for _, level := range levels {
		fmt.Printf("%s (%d)\n", level, len(groups[level]))
		for _, s := range groups[level] {
			fmt.Printf("  - %s (%s)\n", s.Name, s.Identity)
		}
	}
}

func handleEmployeeReport(mgr *library.LibraryManager, user *library.Employee) {
	lines, err := mgr.EmployeeReport(user)
	if err != nil {
		printError(err)
		return
	}
	fmt.Printf("%-6s %-30s %-14s %-8s %-6s %-9s %s\n", "No.", "Name", "Role", "Active", "Years", "Vacation", "Bonus")
	fmt.Println(rule())
	for _, l := range lines {
		active := "yes"
		if !l.Active {
			active = "no"
		}
		fmt.Printf("%-6d %-30s %-14s %-8s %-6d %-9d %s\n",
			l.Number, truncateString(l.Name, 30), l.Role, active, l.YearsOfService, l.VacationDays, l.SeniorityBonus.StringFixed(2))
	}
}

func truncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	r := []rune(s)
	return string(r[:maxLength-3]) + "..."
}
