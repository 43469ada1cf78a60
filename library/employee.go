package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role orders employees by privilege.
type Role int

const (
	Librarian Role = iota
	Supervisor
	Administrator
)

var roleNames = map[Role]string{
	Librarian:     "Librarian",
	Supervisor:    "Supervisor",
	Administrator: "Administrator",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Operation is a permission key checked before any mutation.
type Operation string

const (
	OpLoan               Operation = "loan"
	OpReturn             Operation = "return"
	OpSearch             Operation = "search"
	OpList               Operation = "list"
	OpAddBook            Operation = "add_book"
	OpModifyBook         Operation = "modify_book"
	OpAddStudent         Operation = "add_student"
	OpConfirmLoan        Operation = "confirm_loan"
	OpGenerateReports    Operation = "generate_reports"
	OpManageFines        Operation = "manage_fines"
	OpConfigureRoom      Operation = "configure_room"
	OpCancelLoan         Operation = "cancel_loan"
	OpAddEmployee        Operation = "add_employee"
	OpModifyEmployee     Operation = "modify_employee"
	OpDeleteData         Operation = "delete_data"
	OpConfigureSystem    Operation = "configure_system"
	OpDeactivateEmployee Operation = "deactivate_employee"
	OpModifySalaries     Operation = "modify_salaries"
)

// minimumRole is the least privileged role allowed to perform each operation.
var minimumRole = map[Operation]Role{
	OpLoan:   Librarian,
	OpReturn: Librarian,
	OpSearch: Librarian,
	OpList:   Librarian,

	OpAddBook:     Librarian,
	OpModifyBook:  Librarian,
	OpAddStudent:  Librarian,
	OpConfirmLoan: Librarian,

	OpGenerateReports: Supervisor,
	OpManageFines:     Supervisor,
	OpConfigureRoom:   Supervisor,
	OpCancelLoan:      Supervisor,

	OpAddEmployee:        Administrator,
	OpModifyEmployee:     Administrator,
	OpDeleteData:         Administrator,
	OpConfigureSystem:    Administrator,
	OpDeactivateEmployee: Administrator,
	OpModifySalaries:     Administrator,
}

// Permits is the permission table as a pure function. Unknown operations and
// inactive employees are always refused.
func Permits(role Role, active bool, op Operation) bool {
	if !active {
		return false
	}
	key := Operation(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(op))), "-", "_"))
	least, ok := minimumRole[key]
	return ok && role >= least
}

const (
	minSalary   = 13000
	maxSalary   = 200000
	maxActivity = 100
)

var earliestHire = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Minimum salary by a word contained in the position title.
var positionMinimums = []struct {
	word    string
	minimum int64
}{
	{"assistant", 13000},
	{"librarian", 15000},
	{"supervisor", 20000},
	{"administrator", 25000},
	{"head", 30000},
}

// Shifts maps each shift to its working hours [start, end] in minutes after midnight.
var Shifts = map[string][2]int{
	"Morning":   {6 * 60, 14 * 60},
	"Afternoon": {14 * 60, 22 * 60},
	"Night":     {22 * 60, 6 * 60},
	"Full":      {8 * 60, 17 * 60},
	"Mixed":     {10 * 60, 19 * 60},
}

// Activity is one line of an employee's history.
type Activity struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
}

type Employee struct {
	Person
	Number             int             `json:"number"`
	Position           string          `json:"position" validate:"required,min=3,max=50,letters"`
	Shift              string          `json:"shift" validate:"required"`
	HireDate           time.Time       `json:"hire_date"`
	Salary             decimal.Decimal `json:"salary"`
	Role               Role            `json:"role"`
	Active             bool            `json:"active"`
	DeactivationReason string          `json:"deactivation_reason,omitempty"`
	DeactivatedAt      *time.Time      `json:"deactivated_at,omitempty"`
	Activity           []Activity      `json:"activity,omitempty"`
}

// NewEmployee validates e and returns it active, with a first history entry.
// The employee number is assigned by the manager.
func NewEmployee(e Employee, now time.Time) (*Employee, error) {
	e.Active = true
	e.DeactivationReason = ""
	e.DeactivatedAt = nil
	e.Activity = nil
	if err := e.Validate(now); err != nil {
		return nil, err
	}
	e.record(now, "hired as %s (%s)", e.Position, e.Role)
	return &e, nil
}

func (e *Employee) Validate(now time.Time) error { return e.validate(now, true) }

func (e *Employee) validate(now time.Time, registering bool) error {
	e.normalize()
	e.Position = strings.TrimSpace(e.Position)
	e.Shift = canonicalShift(e.Shift)

	v := problems{}
	checkStruct(e, v)
	e.checkBirthDate(now, v)
	if registering {
		e.checkAgeWindow(now, v)
	}
	_, known := Shifts[e.Shift]
	v.check(known, "shift", "must be one of Morning, Afternoon, Night, Full, Mixed")
	if _, ok := roleNames[e.Role]; !ok {
		v.check(false, "role", "is unknown")
	}

	switch {
	case e.HireDate.IsZero():
		v.check(false, "hire_date", "must be provided")
	case e.HireDate.After(now):
		v.check(false, "hire_date", "must not be in the future")
	case e.HireDate.Before(earliestHire):
		v.check(false, "hire_date", "must not be before 1980-01-01")
	case !e.BirthDate.IsZero() && e.HireDate.Before(e.BirthDate.AddDate(18, 0, 0)):
		v.check(false, "hire_date", "must not be before the 18th birthday")
	}

	checkSalary(e.Position, e.Salary, v)
	return v.err()
}

func checkSalary(position string, salary decimal.Decimal, v problems) {
	v.check(salary.GreaterThanOrEqual(decimal.NewFromInt(minSalary)), "salary", fmt.Sprintf("must be at least %d", minSalary))
	v.check(salary.LessThanOrEqual(decimal.NewFromInt(maxSalary)), "salary", fmt.Sprintf("must not be more than %d", maxSalary))
	title := fold(position)
	for _, pm := range positionMinimums {
		if strings.Contains(title, pm.word) {
			v.check(salary.GreaterThanOrEqual(decimal.NewFromInt(pm.minimum)), "salary",
				fmt.Sprintf("must be at least %d for a %s", pm.minimum, pm.word))
		}
	}
}

func canonicalShift(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// CanPerform reports whether the employee may carry out op.
func (e *Employee) CanPerform(op Operation) bool {
	return Permits(e.Role, e.Active, op)
}

func (e *Employee) record(now time.Time, format string, args ...any) {
	e.Activity = append(e.Activity, Activity{At: now, Action: fmt.Sprintf(format, args...)})
	if n := len(e.Activity); n > maxActivity {
		e.Activity = append([]Activity(nil), e.Activity[n-maxActivity:]...)
	}
}

// Record adds a free-form entry to the activity history.
func (e *Employee) Record(now time.Time, action string) { e.record(now, "%s", action) }

// RecentActivity returns up to n entries, newest first.
func (e *Employee) RecentActivity(n int) []Activity {
	if n > len(e.Activity) {
		n = len(e.Activity)
	}
	out := make([]Activity, 0, n)
	for i := len(e.Activity) - 1; i >= len(e.Activity)-n; i-- {
		out = append(out, e.Activity[i])
	}
	return out
}

func requireAdministrator(by *Employee) error {
	if by == nil || !by.Active || by.Role != Administrator {
		return fmt.Errorf("%w: only an active administrator can do this", ErrNotPermitted)
	}
	return nil
}

// Deactivate marks the employee inactive. by must be an active administrator.
func (e *Employee) Deactivate(reason string, by *Employee, now time.Time) error {
	if err := requireAdministrator(by); err != nil {
		return err
	}
	if !e.Active {
		return stateConflict(ErrEmployeeInactive, "employee #%d", e.Number)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &ValidationError{Fields: map[string]string{"reason": "must be provided"}}
	}
	at := now
	e.Active = false
	e.DeactivationReason = reason
	e.DeactivatedAt = &at
	e.record(now, "deactivated by %s (#%d): %s", by.Name, by.Number, reason)
	return nil
}

// Reactivate restores an inactive employee. by must be an active administrator.
func (e *Employee) Reactivate(by *Employee, now time.Time) error {
	if err := requireAdministrator(by); err != nil {
		return err
	}
	if e.Active {
		return stateConflict(ErrEmployeeActive, "employee #%d", e.Number)
	}
	e.Active = true
	e.DeactivationReason = ""
	e.DeactivatedAt = nil
	e.record(now, "reactivated by %s (#%d)", by.Name, by.Number)
	return nil
}

func (e *Employee) ChangeShift(shift string, now time.Time) error {
	canonical := canonicalShift(shift)
	if _, ok := Shifts[canonical]; !ok {
		return &ValidationError{Fields: map[string]string{"shift": "must be one of Morning, Afternoon, Night, Full, Mixed"}}
	}
	previous := e.Shift
	e.Shift = canonical
	e.record(now, "shift changed from %s to %s", previous, canonical)
	return nil
}

// SalaryChangePercent is the relative change amount would mean, in percent.
func (e *Employee) SalaryChangePercent(amount decimal.Decimal) decimal.Decimal {
	if e.Salary.IsZero() {
		return decimal.Zero
	}
	return amount.Sub(e.Salary).Div(e.Salary).Mul(decimal.NewFromInt(100)).Round(2)
}

// UpdateSalary sets a new salary. by must be an active administrator.
func (e *Employee) UpdateSalary(amount decimal.Decimal, by *Employee, now time.Time) error {
	if err := requireAdministrator(by); err != nil {
		return err
	}
	v := problems{}
	checkSalary(e.Position, amount, v)
	if err := v.err(); err != nil {
		return err
	}
	previous := e.Salary
	e.Salary = amount
	e.record(now, "salary changed from %s to %s by %s (#%d)", previous.StringFixed(2), amount.StringFixed(2), by.Name, by.Number)
	return nil
}

// YearsOfService counts whole years since the hire date.
func (e *Employee) YearsOfService(now time.Time) int {
	if e.HireDate.IsZero() || now.Before(e.HireDate) {
		return 0
	}
	return ageAt(e.HireDate, now)
}

// SeniorityBonus is the bonus amount earned by years of service.
func (e *Employee) SeniorityBonus(now time.Time) decimal.Decimal {
	var pct int64
	switch years := e.YearsOfService(now); {
	case years >= 20:
		pct = 20
	case years >= 15:
		pct = 15
	case years >= 10:
		pct = 10
	case years >= 5:
		pct = 5
	case years >= 3:
		pct = 3
	}
	return e.Salary.Mul(decimal.New(pct, -2)).Round(2)
}

func (e *Employee) VacationDays(now time.Time) int {
	switch years := e.YearsOfService(now); {
	case years < 1:
		return 0
	case years < 2:
		return 10
	case years < 3:
		return 12
	case years < 5:
		return 14
	default:
		return 20
	}
}

// OnShift reports whether now falls inside the employee's working hours.
func (e *Employee) OnShift(now time.Time) bool {
	if !e.Active {
		return false
	}
	hours, ok := Shifts[e.Shift]
	if !ok {
		return true
	}
	minute := now.Hour()*60 + now.Minute()
	start, end := hours[0], hours[1]
	if start > end {
		return minute >= start || minute <= end
	}
	return minute >= start && minute <= end
}

func (e *Employee) Summary() string {
	state := "active"
	if !e.Active {
		state = "inactive"
	}
	return fmt.Sprintf("Employee #%d - %s - %s (%s) - %s", e.Number, e.Name, e.Position, e.Role, state)
}
