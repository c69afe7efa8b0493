package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/model"
)

// ParsedDate is the outcome of resolving a date token. DueDate is empty
// when the token could not be resolved. Ambiguity marks numeric dates
// whose month and day could be swapped.
type ParsedDate struct {
	DueDate   string `json:"dueDate,omitempty"`
	Ambiguity bool   `json:"ambiguity,omitempty"`
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	nextWeekdayRe = regexp.MustCompile(`^next\s+([a-z]+)$`)
	monthDayRe    = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	numericDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?$`)
)

// ParseLooseDate resolves a date token relative to ref.
func ParseLooseDate(token string, ref time.Time, cfg Config) ParsedDate {
	t := strings.Join(strings.Fields(strings.ToLower(token)), " ")
	if t == "" {
		return ParsedDate{}
	}
	ref = dateutil.Day(ref)

	if iso, ok := dateutil.ResolveRelative(t, ref); ok {
		return ParsedDate{DueDate: iso}
	}

	if dateutil.IsISODate(t) {
		return ParsedDate{DueDate: t}
	}

	if m := nextWeekdayRe.FindStringSubmatch(t); m != nil {
		if wd, ok := model.LookupWeekday(m[1]); ok {
			return ParsedDate{DueDate: dateutil.FormatISO(weekdayFrom(ref.AddDate(0, 0, 2), wd))}
		}
		return ParsedDate{}
	}

	if wd, ok := model.LookupWeekday(t); ok {
		return ParsedDate{DueDate: dateutil.FormatISO(weekdayFrom(ref, wd))}
	}

	if m := monthDayRe.FindStringSubmatch(t); m != nil {
		month, ok := months[m[1]]
		if !ok {
			return ParsedDate{}
		}
		day, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			return ParsedDate{DueDate: civil(year, month, day)}
		}
		return ParsedDate{DueDate: rolled(ref, month, day, cfg)}
	}

	if m := numericDateRe.FindStringSubmatch(t); m != nil {
		mm, _ := strconv.Atoi(m[1])
		dd, _ := strconv.Atoi(m[2])
		if mm < 1 || mm > 12 {
			return ParsedDate{}
		}
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				year += 2000
			}
			return ParsedDate{DueDate: civil(year, time.Month(mm), dd)}
		}
		due := rolled(ref, time.Month(mm), dd, cfg)
		if due == "" {
			return ParsedDate{}
		}
		return ParsedDate{DueDate: due, Ambiguity: mm <= 12 && dd <= 12}
	}

	return ParsedDate{}
}

// weekdayFrom returns the first day on or after start that falls on wd.
func weekdayFrom(start time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

// civil formats the date, or returns "" when it does not exist.
func civil(year int, month time.Month, day int) string {
	if day < 1 || day > dateutil.DaysIn(year, month) {
		return ""
	}
	return dateutil.FormatISO(dateutil.Date(year, month, day))
}

// rolled places month/day in ref's year, or the next year when that falls
// before ref and rolling forward is enabled. The day must exist in ref's
// year; a rolled Feb 29 normalises to Mar 1 in a non-leap year.
func rolled(ref time.Time, month time.Month, day int, cfg Config) string {
	due := civil(ref.Year(), month, day)
	if due != "" && cfg.rollForward() && due < dateutil.FormatISO(ref) {
		due = dateutil.FormatISO(dateutil.Date(ref.Year()+1, month, day))
	}
	return due
}
