package library

import (
	"fmt"
	"strings"
	"time"
)

type SeatState byte

const (
	SeatAvailable    SeatState = 'D'
	SeatOccupied     SeatState = 'O'
	SeatOutOfService SeatState = 'F'
)

// ReadingRoom is a grid of seats open between two times of day. Rows and
// columns are zero based. The room is not persisted.
type ReadingRoom struct {
	Name     string
	Location string
	Opens    time.Duration
	Closes   time.Duration

	seats    [][]SeatState
	occupied int
}

func NewReadingRoom(name, location string, rows, columns int, opens, closes time.Duration) (*ReadingRoom, error) {
	v := problems{}
	v.check(strings.TrimSpace(name) != "", "name", "must be provided")
	v.check(strings.TrimSpace(location) != "", "location", "must be provided")
	v.check(rows > 0, "rows", "must be positive")
	v.check(columns > 0, "columns", "must be positive")
	checkHours(opens, closes, v)
	if err := v.err(); err != nil {
		return nil, err
	}

	seats := make([][]SeatState, rows)
	for i := range seats {
		seats[i] = make([]SeatState, columns)
		for j := range seats[i] {
			seats[i][j] = SeatAvailable
		}
	}
	return &ReadingRoom{
		Name:     strings.TrimSpace(name),
		Location: strings.TrimSpace(location),
		Opens:    opens,
		Closes:   closes,
		seats:    seats,
	}, nil
}

func checkHours(opens, closes time.Duration, v problems) {
	day := 24 * time.Hour
	v.check(opens >= 0 && opens < day, "opens", "must be a time of day")
	v.check(closes >= 0 && closes < day, "closes", "must be a time of day")
	v.check(closes > opens, "closes", "must be after opens")
}

// ParseClock reads an "HH:MM" time of day.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func (r *ReadingRoom) Rows() int    { return len(r.seats) }
func (r *ReadingRoom) Columns() int { return len(r.seats[0]) }
func (r *ReadingRoom) Capacity() int {
	return r.Rows() * r.Columns()
}
func (r *ReadingRoom) Occupied() int { return r.occupied }

// IsOpen reports whether now falls within opening hours, bounds included.
func (r *ReadingRoom) IsOpen(now time.Time) bool {
	since := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second
	return since >= r.Opens && since <= r.Closes
}

// SetHours changes the opening hours.
func (r *ReadingRoom) SetHours(opens, closes time.Duration) error {
	v := problems{}
	checkHours(opens, closes, v)
	if err := v.err(); err != nil {
		return err
	}
	r.Opens, r.Closes = opens, closes
	return nil
}

func (r *ReadingRoom) Seat(row, col int) (SeatState, error) {
	if !r.inRange(row, col) {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrSeatOutOfRange, row+1, col+1)
	}
	return r.seats[row][col], nil
}

func (r *ReadingRoom) Occupy(row, col int, now time.Time) error {
	if !r.IsOpen(now) {
		return fmt.Errorf("%w: open %s-%s", ErrRoomClosed, FormatClock(r.Opens), FormatClock(r.Closes))
	}
	if !r.inRange(row, col) {
		return fmt.Errorf("%w: (%d,%d)", ErrSeatOutOfRange, row+1, col+1)
	}
	if r.seats[row][col] != SeatAvailable {
		return fmt.Errorf("%w: (%d,%d)", ErrSeatUnavailable, row+1, col+1)
	}
	r.seats[row][col] = SeatOccupied
	r.occupied++
	return nil
}

func (r *ReadingRoom) Release(row, col int) error {
	if !r.inRange(row, col) {
		return fmt.Errorf("%w: (%d,%d)", ErrSeatOutOfRange, row+1, col+1)
	}
	if r.seats[row][col] != SeatOccupied {
		return fmt.Errorf("%w: (%d,%d)", ErrSeatNotOccupied, row+1, col+1)
	}
	r.seats[row][col] = SeatAvailable
	r.occupied--
	return nil
}

// SetOutOfService takes a free seat out of use, or puts it back.
func (r *ReadingRoom) SetOutOfService(row, col int, out bool) error {
	if !r.inRange(row, col) {
		return fmt.Errorf("%w: (%d,%d)", ErrSeatOutOfRange, row+1, col+1)
	}
	switch {
	case r.seats[row][col] == SeatOccupied:
		return fmt.Errorf("%w: (%d,%d)", ErrSeatUnavailable, row+1, col+1)
	case out:
		r.seats[row][col] = SeatOutOfService
	default:
		r.seats[row][col] = SeatAvailable
	}
	return nil
}

// Grid renders one line per row.
func (r *ReadingRoom) Grid() []string {
	lines := make([]string, 0, len(r.seats))
	for i, row := range r.seats {
		var b strings.Builder
		fmt.Fprintf(&b, "Row %2d: ", i+1)
		for _, s := range row {
			b.WriteByte(byte(s))
			b.WriteByte(' ')
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return lines
}

func (r *ReadingRoom) inRange(row, col int) bool {
	return row >= 0 && row < len(r.seats) && col >= 0 && col < len(r.seats[row])
}
