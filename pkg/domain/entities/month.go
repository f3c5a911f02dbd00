package entities

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MonthCode is a calendar month encoded as the integer YYYYMM
type MonthCode int

const (
	minYear = 1900
	maxYear = 9999
)

// ParseMonthCode normalizes a raw month value into a MonthCode.
// Accepted inputs: integers, integral floats (202610.0), text such as
// "202610", "202610.0", "2026-10" or "2026-10-01", and time.Time.
func ParseMonthCode(raw any) (MonthCode, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("month is empty")
	case MonthCode:
		return validateMonthCode(int64(v))
	case int:
		return validateMonthCode(int64(v))
	case int32:
		return validateMonthCode(int64(v))
	case int64:
		return validateMonthCode(v)
	case float32:
		return parseFloatMonth(float64(v))
	case float64:
		return parseFloatMonth(v)
	case time.Time:
		if v.IsZero() {
			return 0, fmt.Errorf("month is empty")
		}
		return NewMonthCode(v.Year(), v.Month())
	case string:
		return parseTextMonth(v)
	default:
		return 0, fmt.Errorf("unsupported month type %T", raw)
	}
}

// NewMonthCode builds a MonthCode from a year and month
func NewMonthCode(year int, month time.Month) (MonthCode, error) {
	return validateMonthCode(int64(year)*100 + int64(month))
}

// MustMonthCode is a helper for tests and constants - panics on invalid input
func MustMonthCode(code int) MonthCode {
	m, err := ParseMonthCode(code)
	if err != nil {
		panic(err)
	}
	return m
}

func parseFloatMonth(v float64) (MonthCode, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("month is not a number")
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("month %v is not integral", v)
	}
	return validateMonthCode(int64(v))
}

func parseTextMonth(s string) (MonthCode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("month is empty")
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "2006/01", "01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewMonthCode(t.Year(), t.Month())
		}
	}

	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid month: %q", s)
		}
		return parseFloatMonth(f)
	}
	return validateMonthCode(n)
}

func validateMonthCode(n int64) (MonthCode, error) {
	year := n / 100
	month := n % 100
	if year < minYear || year > maxYear {
		return 0, fmt.Errorf("invalid month code %d: year out of range", n)
	}
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("invalid month code %d: month must be 01-12", n)
	}
	return MonthCode(n), nil
}

// Valid reports whether the code is a real calendar month
func (m MonthCode) Valid() bool {
	_, err := validateMonthCode(int64(m))
	return err == nil
}

// Year returns the year part
func (m MonthCode) Year() int {
	return int(m) / 100
}

// Month returns the month part
func (m MonthCode) Month() time.Month {
	return time.Month(int(m) % 100)
}

// Time returns the first day of the month in UTC
func (m MonthCode) Time() time.Time {
	return time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month
func (m MonthCode) Next() MonthCode {
	if m.Month() == time.December {
		return MonthCode((m.Year()+1)*100 + 1)
	}
	return m + 1
}

// String formats the code as YYYYMM
func (m MonthCode) String() string {
	return fmt.Sprintf("%06d", int(m))
}

// Label formats the code as YYYY-MM for charts and reports
func (m MonthCode) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month()))
}

// MonthsBetween returns the number of months from a to b (negative if b is before a)
func MonthsBetween(a, b MonthCode) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
