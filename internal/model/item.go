package model

import "time"

// StructureItem is a task record owned by the external item store. The
// engine computes over items and builds candidates with an empty ID; it
// never assigns IDs or persists anything.
type StructureItem struct {
	ID            string           `yaml:"id" json:"id"`
	Title         string           `yaml:"title" json:"title"`
	CategoryID    string           `yaml:"categoryId,omitempty" json:"categoryId,omitempty"`
	Priority      *int             `yaml:"priority,omitempty" json:"priority,omitempty"`
	DueDate       string           `yaml:"dueDate,omitempty" json:"dueDate,omitempty"` // "" means no due date
	Recurrence    *RecurrenceBlock `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
	Habit         *HabitBlock      `yaml:"habit,omitempty" json:"habit,omitempty"`
	Signals       []string         `yaml:"signals,omitempty" json:"signals,omitempty"`
	Blockers      []string         `yaml:"blockers,omitempty" json:"blockers,omitempty"`
	Opportunities []string         `yaml:"opportunities,omitempty" json:"opportunities,omitempty"`
	Metadata      map[string]any   `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt     time.Time        `yaml:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt     time.Time        `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// HabitBlock is carried through untouched.
type HabitBlock struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	TargetCount int    `yaml:"targetCount,omitempty" json:"targetCount,omitempty"`
	Period      string `yaml:"period,omitempty" json:"period,omitempty"`
	Streak      int    `yaml:"streak,omitempty" json:"streak,omitempty"`
}

// PriorityOr returns the item's priority, or def when unset.
func (it StructureItem) PriorityOr(def int) int {
	if it.Priority == nil {
		return def
	}
	return *it.Priority
}

// Pattern decodes the item's recurrence; items without one are Off.
func (it StructureItem) Pattern() Pattern {
	return it.Recurrence.Pattern()
}

// Block is a time-of-day span used as scheduling input.
type Block struct {
	Start string `yaml:"start" json:"start"` // HH:MM
	End   string `yaml:"end" json:"end"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Int returns a pointer to v, for optional integer fields.
func Int(v int) *int {
	return &v
}
