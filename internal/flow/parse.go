package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
)

// DateLayout is the normalized form dates take in the field bag.
const DateLayout = "2006-01-02"

// dayMonthLayout is the textual pattern users type: day and month only.
// The year is always inferred as the clock's current year, so dialogs
// can't schedule across a year boundary.
const dayMonthLayout = "02.01"

// ParseDate parses user input like "05.07" into midnight of that day
// in the clock's zone and current year.
func ParseDate(text string, clk clock.Clock) (time.Time, error) {
	t, err := time.Parse(dayMonthLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("that doesn't look like a date; use DD.MM, e.g. 05.07")
	}
	year := clk.Now().Year()
	d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, clk.Location())
	// The layout's implicit year 0 is a leap year, so 29.02 parses even
	// when the current year has no such day and time.Date would roll it
	// over to March 1.
	if d.Day() != t.Day() || d.Month() != t.Month() {
		return time.Time{}, fmt.Errorf("there's no %02d.%02d in %d", t.Day(), int(t.Month()), year)
	}
	return d, nil
}

// ParseTimeOfDay parses 24-hour "HH:MM" input into minutes since
// midnight.
func ParseTimeOfDay(text string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("that doesn't look like a time; use 24-hour HH:MM, e.g. 09:30")
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseUserID parses a numeric chat user id, tolerating an @ prefix.
func ParseUserID(text string) (int64, error) {
	t := strings.TrimPrefix(strings.TrimSpace(text), "@")
	id, err := strconv.ParseInt(t, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("that doesn't look like a user id; send the numeric id, e.g. 42")
	}
	return id, nil
}

// ParseMonth parses a month number ("7" or "07") into a time.Month.
func ParseMonth(text string) (time.Month, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 12 {
		return 0, fmt.Errorf("send a month number from 1 to 12")
	}
	return time.Month(n), nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// MustDate reads a DateLayout value back out of the field bag. Fields
// only ever hold values a parser produced, so failure here is a bug.
func MustDate(fields map[string]string, key string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(DateLayout, fields[key], loc)
	if err != nil {
		panic(fmt.Sprintf("flow: field %q = %q is not a date", key, fields[key]))
	}
	return t
}

// MustInt reads a numeric value back out of the field bag.
func MustInt(fields map[string]string, key string) int {
	n, err := strconv.Atoi(fields[key])
	if err != nil {
		panic(fmt.Sprintf("flow: field %q = %q is not a number", key, fields[key]))
	}
	return n
}
