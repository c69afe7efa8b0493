// Package aggregate buckets items into calendar rollups and merges their
// signal lists.
package aggregate

import (
	"sort"
	"time"

	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/model"
)

// Rollup is one non-empty calendar bucket. Period is an ISO day, the ISO
// date of the week's Sunday, or YYYY-MM.
type Rollup struct {
	Period string                `yaml:"period" json:"period"`
	Count  int                   `yaml:"count" json:"count"`
	Items  []model.StructureItem `yaml:"items" json:"items"`
}

// SignalSummary holds the de-duplicated signal lists of a set of items.
type SignalSummary struct {
	Signals       []string `yaml:"signals" json:"signals"`
	Blockers      []string `yaml:"blockers" json:"blockers"`
	Opportunities []string `yaml:"opportunities" json:"opportunities"`
}

// AggregateByDateRange groups the items due within [from, to] by groupBy
// and returns the buckets in ascending period order. Dates compare as
// calendar days. An unknown groupBy buckets by day.
func AggregateByDateRange(items []model.StructureItem, from, to time.Time, groupBy model.GroupBy) []Rollup {
	from, to = dateutil.Day(from), dateutil.Day(to)

	buckets := make(map[string]*Rollup)
	for _, it := range items {
		due, ok := dateutil.ParseISO(it.DueDate)
		if !ok || due.Before(from) || due.After(to) {
			continue
		}
		key := periodKey(due, groupBy)
		b, exists := buckets[key]
		if !exists {
			b = &Rollup{Period: key}
			buckets[key] = b
		}
		b.Items = append(b.Items, it)
		b.Count++
	}

	out := make([]Rollup, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period < out[j].Period
	})
	return out
}

func periodKey(due time.Time, groupBy model.GroupBy) string {
	switch groupBy {
	case model.GroupByWeek:
		return dateutil.FormatISO(dateutil.SundayOf(due))
	case model.GroupByMonth:
		return due.Format("2006-01")
	default:
		return dateutil.FormatISO(due)
	}
}

// AggregateSignals flattens the signal, blocker and opportunity lists of
// items, keeping the first appearance of each value.
func AggregateSignals(items []model.StructureItem) SignalSummary {
	var signals, blockers, opportunities orderedSet
	for _, it := range items {
		signals.addAll(it.Signals)
		blockers.addAll(it.Blockers)
		opportunities.addAll(it.Opportunities)
	}
	return SignalSummary{
		Signals:       signals.list(),
		Blockers:      blockers.list(),
		Opportunities: opportunities.list(),
	}
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func (s *orderedSet) addAll(values []string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, v := range values {
		if _, dup := s.seen[v]; dup {
			continue
		}
		s.seen[v] = struct{}{}
		s.order = append(s.order, v)
	}
}

func (s *orderedSet) list() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
