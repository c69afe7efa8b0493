// Package priority computes effective priorities from a ruleset's ramp and
// escalation curves, orders items by them and applies the end-of-day
// cancel policy.
package priority

import (
	"math"
	"sort"
	"time"

	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/model"
	"github.com/msageha/structengine/internal/recurrence"
)

// EffectivePriority returns item's priority on date after the ramp and
// escalation are applied. The result is always within the ruleset's scale.
func EffectivePriority(item model.StructureItem, date time.Time, rs model.Ruleset) int {
	scale := rs.Scale()
	p := item.PriorityOr(scale.Default)
	date = dateutil.Day(date)

	due, hasDue := referenceDue(item, date)

	if ramp, ok := rs.Ramp(); ok && hasDue {
		daysOut := dateutil.DaysBetween(date, due)
		switch {
		case daysOut <= ramp.DaysOutForMax:
			p = max(p, ramp.MaxPriority)
		case daysOut >= ramp.DaysOutForMin:
			p = min(p, ramp.MinPriority)
		default:
			t := float64(daysOut-ramp.DaysOutForMax) / float64(ramp.DaysOutForMin-ramp.DaysOutForMax)
			p = roundHalfUp(float64(p)*(1-t) + float64(ramp.MinPriority)*t)
		}
	}

	if esc, ok := rs.EscalationSpec(); ok && hasDue {
		daysOver := max(0, dateutil.DaysBetween(due, date))
		p = min(esc.MaxPriority, p+daysOver*esc.IncrementPerDay)
	}

	return scale.Clamp(p)
}

// referenceDue is the next occurrence for recurring items and the due date
// otherwise.
func referenceDue(item model.StructureItem, date time.Time) (time.Time, bool) {
	iso := item.DueDate
	if _, off := item.Pattern().(model.Off); !off {
		next, ok := recurrence.NextDue(item, date)
		if !ok {
			return time.Time{}, false
		}
		iso = next
	}
	return dateutil.ParseISO(iso)
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// IsVisibleInWeekView reports whether item clears the ruleset's visibility
// floor on date. Without a floor every item is visible.
func IsVisibleInWeekView(item model.StructureItem, date time.Time, rs model.Ruleset) bool {
	if rs.VisibilityMinPriority == nil {
		return true
	}
	return EffectivePriority(item, date, rs) >= *rs.VisibilityMinPriority
}

// SortByPriority returns a new slice ordered by descending effective
// priority, then ascending due date. Items without a due date sort last
// within their priority. The sort is stable.
func SortByPriority(items []model.StructureItem, date time.Time, rs model.Ruleset) []model.StructureItem {
	type ranked struct {
		item model.StructureItem
		p    int
	}
	rankedItems := make([]ranked, len(items))
	for i, it := range items {
		rankedItems[i] = ranked{item: it, p: EffectivePriority(it, date, rs)}
	}

	sort.SliceStable(rankedItems, func(i, j int) bool {
		a, b := rankedItems[i], rankedItems[j]
		if a.p != b.p {
			return a.p > b.p
		}
		switch {
		case a.item.DueDate == b.item.DueDate:
			return false
		case a.item.DueDate == "":
			return false
		case b.item.DueDate == "":
			return true
		}
		return a.item.DueDate < b.item.DueDate
	})

	out := make([]model.StructureItem, len(rankedItems))
	for i, r := range rankedItems {
		out[i] = r.item
	}
	return out
}

// ApplyCancelDay applies the ruleset's cancel-day policy to the items due
// on date and stamps them with now. Other items are returned as they are.
// The input slice is not modified.
func ApplyCancelDay(items []model.StructureItem, date, now time.Time, rs model.Ruleset) []model.StructureItem {
	out := make([]model.StructureItem, len(items))
	copy(out, items)

	mode := rs.CancelDayMode()
	if mode == model.CancelDayNone {
		return out
	}

	iso := dateutil.FormatISO(date)
	scale := rs.Scale()
	for i := range out {
		if out[i].DueDate != iso {
			continue
		}
		switch mode {
		case model.CancelDayMoveToNextDay:
			out[i].DueDate = dateutil.FormatISO(dateutil.AddDays(date, 1))
			out[i].UpdatedAt = now
		case model.CancelDayDecrementPriority:
			p := max(scale.Min, out[i].PriorityOr(scale.Default)-1)
			out[i].Priority = model.Int(p)
			out[i].UpdatedAt = now
		}
	}
	return out
}
