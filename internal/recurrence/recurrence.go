// Package recurrence expands an item's recurrence into concrete dates and
// answers whether an item is due on a given date.
package recurrence

import (
	"time"

	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/model"
)

const (
	// maxWeeklySteps bounds the day-by-day weekly walk.
	maxWeeklySteps = 366
	// maxMonthSteps bounds the monthly and quarterly walks.
	maxMonthSteps = 1200
)

// NextOccurrences returns up to count ISO dates on which item occurs,
// starting at from.
func NextOccurrences(item model.StructureItem, from time.Time, count int) []string {
	out := make([]string, 0)
	if count <= 0 {
		return out
	}
	from = dateutil.Day(from)

	switch p := item.Pattern().(type) {
	case model.Daily:
		for i := 0; i < count; i++ {
			out = append(out, dateutil.FormatISO(from.AddDate(0, 0, i)))
		}

	case model.Weekly:
		cursor := from
		for step := 0; step < maxWeeklySteps && len(out) < count; step++ {
			if p.Days.Has(cursor.Weekday()) {
				out = append(out, dateutil.FormatISO(cursor))
			}
			cursor = cursor.AddDate(0, 0, 1)
		}

	case model.Monthly:
		// Days past a short month's end overflow into the next month, as
		// time.Date normalises them.
		day := from.Day()
		cursor := from
		for step := 0; step < maxMonthSteps && len(out) < count; step++ {
			candidate := dateutil.Date(from.Year(), from.Month()+time.Month(step), day)
			if candidate.Before(cursor) {
				continue
			}
			out = append(out, dateutil.FormatISO(candidate))
			cursor = candidate.AddDate(0, 0, 1)
		}

	case model.Quarterly:
		day := from.Day()
		for step := 0; step < maxMonthSteps/3 && len(out) < count; step++ {
			candidate := dateutil.ClampedDate(from.Year(), from.Month()+time.Month(3*step), day)
			out = append(out, dateutil.FormatISO(candidate))
		}

	default:
		if item.DueDate != "" {
			out = append(out, item.DueDate)
		}
	}

	return out
}

// NextDue returns the first occurrence of item on or after from.
func NextDue(item model.StructureItem, from time.Time) (string, bool) {
	occ := NextOccurrences(item, from, 1)
	if len(occ) == 0 {
		return "", false
	}
	return occ[0], true
}

// IsDueOn reports whether item is due on date.
//
// Monthly compares the MM-DD suffix of the item's due date with the
// candidate's, which makes it an annual test; NextOccurrences treats monthly
// as same-day-every-month. Both behaviours are kept as they are.
func IsDueOn(item model.StructureItem, date time.Time) bool {
	date = dateutil.Day(date)
	iso := dateutil.FormatISO(date)

	switch p := item.Pattern().(type) {
	case model.Daily:
		return true

	case model.Weekly:
		return p.Days.Has(date.Weekday())

	case model.Monthly:
		if len(item.DueDate) < 5 {
			return false
		}
		return item.DueDate[len(item.DueDate)-5:] == iso[len(iso)-5:]

	case model.Quarterly:
		due, ok := dateutil.ParseISO(item.DueDate)
		if !ok {
			return false
		}
		return dateutil.QuarterOf(due.Month()) == dateutil.QuarterOf(date.Month()) &&
			due.Day() == date.Day()

	default:
		return item.DueDate != "" && item.DueDate == iso
	}
}
