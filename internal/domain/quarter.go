package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnrecognizedQuarter flags a quarter label outside Q1..Q4.
var ErrUnrecognizedQuarter = errors.New("unrecognized quarter label")

// Quarter is a calendar quarter label.
type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// Valid reports whether q is one of Q1..Q4.
func (q Quarter) Valid() bool {
	switch q {
	case Q1, Q2, Q3, Q4:
		return true
	}
	return false
}

// ObligationStatus enumerates ledger states.
type ObligationStatus string

const (
	ObligationPending   ObligationStatus = "pending"
	ObligationCompleted ObligationStatus = "completed"
	ObligationMissed    ObligationStatus = "missed"
)

// QuarterObligation is the unique ledger row per (user, quarter, year).
type QuarterObligation struct {
	ID           string
	UserID       string
	Quarter      Quarter
	Year         int
	Status       ObligationStatus
	DueDate      time.Time
	VerifiedAt   *time.Time
	SubmissionID *string
}

// QuarterPeriod identifies one quarter of one year.
type QuarterPeriod struct {
	Quarter Quarter
	Year    int
}

// Label renders the period as "Q1-2025".
func (p QuarterPeriod) Label() string {
	return fmt.Sprintf("%s-%d", p.Quarter, p.Year)
}

// ParseQuarterLabel parses "Q1-2025" style labels.
func ParseQuarterLabel(label string) (QuarterPeriod, error) {
	q, y, ok := strings.Cut(strings.TrimSpace(label), "-")
	if !ok {
		return QuarterPeriod{}, fmt.Errorf("%w: %q", ErrUnrecognizedQuarter, label)
	}
	quarter := Quarter(strings.ToUpper(q))
	if !quarter.Valid() {
		return QuarterPeriod{}, fmt.Errorf("%w: %q", ErrUnrecognizedQuarter, label)
	}
	year, err := strconv.Atoi(y)
	if err != nil || year < 1900 || year > 9999 {
		return QuarterPeriod{}, fmt.Errorf("%w: bad year in %q", ErrUnrecognizedQuarter, label)
	}
	return QuarterPeriod{Quarter: quarter, Year: year}, nil
}

// PeriodOf returns the quarter containing t (UTC).
func PeriodOf(t time.Time) QuarterPeriod {
	t = t.UTC()
	n := (int(t.Month())-1)/3 + 1
	return QuarterPeriod{Quarter: Quarter("Q" + strconv.Itoa(n)), Year: t.Year()}
}

// DueDate is the 15th of the middle month of the quarter. An unrecognized
// label yields January 15 together with ErrUnrecognizedQuarter so callers
// decide whether to accept the fallback.
func DueDate(q Quarter, year int) (time.Time, error) {
	var month time.Month
	switch q {
	case Q1:
		month = time.February
	case Q2:
		month = time.May
	case Q3:
		month = time.August
	case Q4:
		month = time.November
	default:
		return time.Date(year, time.January, 15, 0, 0, 0, 0, time.UTC), fmt.Errorf("%w: %q", ErrUnrecognizedQuarter, q)
	}
	return time.Date(year, month, 15, 0, 0, 0, 0, time.UTC), nil
}
