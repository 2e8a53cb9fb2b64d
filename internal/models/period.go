package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period: expected MM/YYYY")

// Period is a calendar month. Month is 1-indexed.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// ParsePeriod parses the "MM/YYYY" form used by the mesAno query parameter
func ParsePeriod(s string) (Period, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Period{}, ErrInvalidPeriod
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return Period{}, ErrInvalidPeriod
	}

	p := Period{Month: month, Year: year}
	if !p.Valid() {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= 1900 && p.Year <= 9999
}

// Start is day 1 of the month at 00:00 UTC
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the exclusive upper bound (day 1 of the following month)
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// LastDay is the last calendar day of the month
func (p Period) LastDay() time.Time {
	return p.End().AddDate(0, 0, -1)
}

func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// String renders the mesAno form
func (p Period) String() string {
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

// Key is a sortable identifier used in cache keys and event payloads
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// ParsePeriodKey is the inverse of Key
func ParsePeriodKey(s string) (Period, error) {
	year, month, ok := strings.Cut(s, "-")
	if !ok {
		return Period{}, ErrInvalidPeriod
	}
	return ParsePeriod(month + "/" + year)
}
