package model

import (
	"strings"
	"time"
)

type RecurrenceKind string

const (
	RecurrenceDaily     RecurrenceKind = "daily"
	RecurrenceWeekly    RecurrenceKind = "weekly"
	RecurrenceMonthly   RecurrenceKind = "monthly"
	RecurrenceQuarterly RecurrenceKind = "quarterly"
	RecurrenceOff       RecurrenceKind = "off"
)

var validRecurrenceKinds = map[RecurrenceKind]bool{
	RecurrenceDaily:     true,
	RecurrenceWeekly:    true,
	RecurrenceMonthly:   true,
	RecurrenceQuarterly: true,
	RecurrenceOff:       true,
}

func IsValidRecurrenceKind(k RecurrenceKind) bool {
	return validRecurrenceKinds[k]
}

// RecurrenceBlock is the wire form of an item's recurrence as stored by the
// external item store. Use Pattern to work with it.
type RecurrenceBlock struct {
	RecurringType    RecurrenceKind `yaml:"recurringType" json:"recurringType"`
	RecurringDetails string         `yaml:"recurringDetails,omitempty" json:"recurringDetails,omitempty"`
	LastExpected     *time.Time     `yaml:"lastExpected,omitempty" json:"lastExpected,omitempty"`
	LastCompleted    *time.Time     `yaml:"lastCompleted,omitempty" json:"lastCompleted,omitempty"`
}

// Pattern is the closed set of recurrence shapes. Only the types in this
// package implement it.
type Pattern interface {
	Kind() RecurrenceKind
	sealed()
}

type Daily struct{}

type Weekly struct {
	Days WeekdaySet
}

type Monthly struct{}

type Quarterly struct{}

type Off struct{}

func (Daily) Kind() RecurrenceKind     { return RecurrenceDaily }
func (Weekly) Kind() RecurrenceKind    { return RecurrenceWeekly }
func (Monthly) Kind() RecurrenceKind   { return RecurrenceMonthly }
func (Quarterly) Kind() RecurrenceKind { return RecurrenceQuarterly }
func (Off) Kind() RecurrenceKind       { return RecurrenceOff }

func (Daily) sealed()     {}
func (Weekly) sealed()    {}
func (Monthly) sealed()   {}
func (Quarterly) sealed() {}
func (Off) sealed()       {}

// Pattern decodes the wire form. A nil block, an unknown type and "off" all
// decode to Off. A weekly block whose details name no weekday decodes to
// the Monday-Friday work week.
func (b *RecurrenceBlock) Pattern() Pattern {
	if b == nil {
		return Off{}
	}
	switch RecurrenceKind(strings.ToLower(strings.TrimSpace(string(b.RecurringType)))) {
	case RecurrenceDaily:
		return Daily{}
	case RecurrenceWeekly:
		days := ParseWeekdaySet(b.RecurringDetails)
		if days.Len() == 0 {
			days = WorkWeek
		}
		return Weekly{Days: days}
	case RecurrenceMonthly:
		return Monthly{}
	case RecurrenceQuarterly:
		return Quarterly{}
	default:
		return Off{}
	}
}

// NewRecurrenceBlock encodes p into its wire form. Off encodes to nil.
func NewRecurrenceBlock(p Pattern) *RecurrenceBlock {
	switch v := p.(type) {
	case nil, Off:
		return nil
	case Weekly:
		return &RecurrenceBlock{RecurringType: RecurrenceWeekly, RecurringDetails: v.Days.String()}
	default:
		return &RecurrenceBlock{RecurringType: p.Kind()}
	}
}

// WeekdaySet is a bitmask indexed by time.Weekday.
type WeekdaySet uint8

const (
	AllWeekdays WeekdaySet = 1<<7 - 1
	WorkWeek    WeekdaySet = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

var weekdayShort = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// LookupWeekday resolves a 3-letter or full weekday name, case-insensitively.
func LookupWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// ParseWeekdaySet reads a list of weekday names separated by commas,
// semicolons or whitespace. Unknown names are ignored.
func ParseWeekdaySet(details string) WeekdaySet {
	fields := strings.FieldsFunc(details, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '|' || r == '/'
	})
	days := make([]time.Weekday, 0, len(fields))
	for _, f := range fields {
		if d, ok := LookupWeekday(f); ok {
			days = append(days, d)
		}
	}
	return WeekdaySetOf(days...)
}

func WeekdaySetOf(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, d := range days {
		set = set.Add(d)
	}
	return set
}

func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Days lists the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as comma-joined 3-letter names, e.g. "mon,wed,fri".
func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, weekdayShort[d])
	}
	return strings.Join(names, ",")
}
