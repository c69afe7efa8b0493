// Package dateutil holds the calendar helpers shared by the resolvers. All
// values are civil dates represented as UTC midnight so that day arithmetic
// is unaffected by DST transitions.
package dateutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const ISOLayout = "2006-01-02"

var isoRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Day returns the calendar date of t, read in t's own location, as UTC
// midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a civil date. Out-of-range months and days normalise the way
// time.Date does (January 32 is February 1).
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func FormatISO(t time.Time) string {
	return Day(t).Format(ISOLayout)
}

// ParseISO accepts only well-formed YYYY-MM-DD strings naming a real date.
func ParseISO(s string) (time.Time, bool) {
	if !isoRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsISODate reports whether s is a valid YYYY-MM-DD date.
func IsISODate(s string) bool {
	_, ok := ParseISO(s)
	return ok
}

func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns floor((to - from) / 24h) over calendar dates.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date whose day is clamped to the month's last day.
// Months outside 1..12 roll into neighbouring years.
func ClampedDate(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// SundayOf returns the Sunday that starts t's week.
func SundayOf(t time.Time) time.Time {
	d := Day(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// QuarterOf returns 1..4.
func QuarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}

var inDaysRe = regexp.MustCompile(`^in\s+(\d{1,3})\s+days?$`)

// ResolveRelative turns a relative phrase into an ISO date relative to ref.
// It understands today, tomorrow, yesterday, "next week" and "in N days".
func ResolveRelative(phrase string, ref time.Time) (string, bool) {
	p := strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	switch p {
	case "today":
		return FormatISO(ref), true
	case "tomorrow":
		return FormatISO(AddDays(ref, 1)), true
	case "yesterday":
		return FormatISO(AddDays(ref, -1)), true
	case "next week":
		return FormatISO(AddDays(ref, 7)), true
	}
	if m := inDaysRe.FindStringSubmatch(p); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return FormatISO(AddDays(ref, n)), true
		}
	}
	return "", false
}
