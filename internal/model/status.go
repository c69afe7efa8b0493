package model

import "fmt"

type CancelDayMode string

const (
	CancelDayNone              CancelDayMode = "none"
	CancelDayMoveToNextDay     CancelDayMode = "moveToNextDay"
	CancelDayDecrementPriority CancelDayMode = "decrementPriority"
)

type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// Intent is the coarse classification of a captured sentence.
type Intent string

const (
	IntentTask     Intent = "task"
	IntentQuestion Intent = "question"
	IntentNote     Intent = "note"
	IntentCommand  Intent = "command"
)

var validCancelDayModes = map[CancelDayMode]bool{
	CancelDayNone:              true,
	CancelDayMoveToNextDay:     true,
	CancelDayDecrementPriority: true,
}

var validGroupBys = map[GroupBy]bool{
	GroupByDay:   true,
	GroupByWeek:  true,
	GroupByMonth: true,
}

func ValidateCancelDayMode(m CancelDayMode) error {
	if m == "" || validCancelDayModes[m] {
		return nil
	}
	return fmt.Errorf("unknown cancel-day mode %q", m)
}

func ValidateGroupBy(g GroupBy) error {
	if validGroupBys[g] {
		return nil
	}
	return fmt.Errorf("unknown group-by %q (want day, week or month)", g)
}
