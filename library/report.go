package library

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Report aggregates the state of the library at one moment.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	Titles          int `json:"titles"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	LentCopies      int `json:"lent_copies"`

	Students          int                `json:"students"`
	StudentsWithBooks int                `json:"students_with_books"`
	AverageStudentAge float64            `json:"average_student_age"`
	LoansByStatus     map[LoanStatus]int `json:"loans_by_status"`
	OverdueLoans      int                `json:"overdue_loans"`

	FinesTotal  decimal.Decimal `json:"fines_total"`
	FinesUnpaid decimal.Decimal `json:"fines_unpaid"`
	FinedLoans  int             `json:"fined_loans"`
	AverageFine decimal.Decimal `json:"average_fine"`

	MostLoaned []BookCount `json:"most_loaned"`
}

type BookCount struct {
	ISBN  string `json:"isbn"`
	Title string `json:"title"`
	Loans int    `json:"loans"`
}

const mostLoanedLimit = 5

func (lm *LibraryManager) Report(by *Employee) (*Report, error) {
	if err := lm.authorize(by, OpGenerateReports); err != nil {
		return nil, err
	}
	now := lm.now()
	r := &Report{
		GeneratedAt:   now,
		LoansByStatus: map[LoanStatus]int{},
		FinesTotal:    decimal.Zero,
		FinesUnpaid:   decimal.Zero,
		AverageFine:   decimal.Zero,
	}

	r.Titles = len(lm.books)
	for _, b := range lm.books {
		r.TotalCopies += b.TotalCopies
		r.AvailableCopies += b.AvailableCopies
	}
	r.LentCopies = r.TotalCopies - r.AvailableCopies

	r.Students = len(lm.students)
	ageSum := 0
	for _, s := range lm.students {
		ageSum += s.Age(now)
		if len(s.Borrowed) > 0 {
			r.StudentsWithBooks++
		}
	}
	if r.Students > 0 {
		r.AverageStudentAge = float64(ageSum) / float64(r.Students)
	}

	counts := map[string]int{}
	for _, l := range lm.loans {
		status := l.EffectiveStatus(now)
		r.LoansByStatus[l.Status]++
		if status == StatusOverdue {
			r.OverdueLoans++
		}
		if l.Fine.IsPositive() {
			r.FinedLoans++
			r.FinesTotal = r.FinesTotal.Add(l.Fine)
			if !l.FinePaid {
				r.FinesUnpaid = r.FinesUnpaid.Add(l.Fine)
			}
		}
		if l.Status == StatusCancelled {
			continue
		}
		for _, isbn := range l.ISBNs {
			counts[isbnKey(isbn)]++
		}
	}
	if r.FinedLoans > 0 {
		r.AverageFine = r.FinesTotal.Div(decimal.NewFromInt(int64(r.FinedLoans))).Round(2)
	}
	r.MostLoaned = lm.mostLoaned(counts)
	return r, nil
}

func (lm *LibraryManager) mostLoaned(counts map[string]int) []BookCount {
	ranked := make([]BookCount, 0, len(counts))
	for key, n := range counts {
		bc := BookCount{ISBN: key, Loans: n}
		if b, ok := lm.booksByISBN[key]; ok {
			bc.ISBN, bc.Title = b.ISBN, b.Title
		}
		ranked = append(ranked, bc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Loans != ranked[j].Loans {
			return ranked[i].Loans > ranked[j].Loans
		}
		return ranked[i].ISBN < ranked[j].ISBN
	})
	if len(ranked) > mostLoanedLimit {
		ranked = ranked[:mostLoanedLimit]
	}
	return ranked
}

// StudentsByAge groups students by academic level.
func (lm *LibraryManager) StudentsByAge(by *Employee) (map[string][]*Student, error) {
	if err := lm.authorize(by, OpGenerateReports); err != nil {
		return nil, err
	}
	now := lm.now()
	groups := map[string][]*Student{}
	for _, s := range lm.students {
		level := s.AcademicLevel(now)
		groups[level] = append(groups[level], s)
	}
	return groups, nil
}

// EmployeeLine is one row of the staff report.
type EmployeeLine struct {
	Number         int             `json:"number"`
	Name           string          `json:"name"`
	Role           Role            `json:"role"`
	Active         bool            `json:"active"`
	YearsOfService int             `json:"years_of_service"`
	VacationDays   int             `json:"vacation_days"`
	SeniorityBonus decimal.Decimal `json:"seniority_bonus"`
}

// EmployeeReport lists active employees first, then inactive ones, each by number.
func (lm *LibraryManager) EmployeeReport(by *Employee) ([]EmployeeLine, error) {
	if err := lm.authorize(by, OpGenerateReports); err != nil {
		return nil, err
	}
	now := lm.now()
	lines := make([]EmployeeLine, 0, len(lm.employees))
	for _, e := range lm.employees {
		lines = append(lines, EmployeeLine{
			Number:         e.Number,
			Name:           e.Name,
			Role:           e.Role,
			Active:         e.Active,
			YearsOfService: e.YearsOfService(now),
			VacationDays:   e.VacationDays(now),
			SeniorityBonus: e.SeniorityBonus(now),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Active != lines[j].Active {
			return lines[i].Active
		}
		return lines[i].Number < lines[j].Number
	})
	return lines, nil
}
