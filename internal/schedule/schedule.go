// Package schedule selects the items due on a date and spreads them over
// the day's time blocks.
package schedule

import (
	"time"

	"github.com/msageha/structengine/internal/model"
	"github.com/msageha/structengine/internal/priority"
	"github.com/msageha/structengine/internal/recurrence"
)

// ScheduledItem is an item due on the requested date. Slot and
// EffectiveTime are set only when blocks were supplied.
type ScheduledItem struct {
	Item              model.StructureItem `yaml:"item" json:"item"`
	Slot              *int                `yaml:"slot,omitempty" json:"slot,omitempty"`
	EffectiveTime     string              `yaml:"effectiveTime,omitempty" json:"effectiveTime,omitempty"`
	EffectivePriority int                 `yaml:"effectivePriority" json:"effectivePriority"`
}

// ScheduledForDate returns the items due on date in input order. With
// blocks, the i-th due item takes slot i mod len(blocks) and that block's
// start time.
func ScheduledForDate(items []model.StructureItem, date time.Time, blocks []model.Block, rs model.Ruleset) []ScheduledItem {
	out := make([]ScheduledItem, 0)
	for _, it := range items {
		if !recurrence.IsDueOn(it, date) {
			continue
		}
		entry := ScheduledItem{
			Item:              it,
			EffectivePriority: priority.EffectivePriority(it, date, rs),
		}
		if len(blocks) > 0 {
			slot := len(out) % len(blocks)
			entry.Slot = &slot
			entry.EffectiveTime = blocks[slot].Start
		}
		out = append(out, entry)
	}
	return out
}
