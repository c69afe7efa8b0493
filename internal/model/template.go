package model

// TaskTemplateRow is one entry of the task-folder reference table used by
// the phrase matcher. Rows are read-only reference data.
type TaskTemplateRow struct {
	Folder       string   `yaml:"folder" json:"folder"`
	Subfolder    string   `yaml:"subfolder,omitempty" json:"subfolder,omitempty"`
	Category     string   `yaml:"category" json:"category"`
	Task         string   `yaml:"task" json:"task"`
	Alternatives []string `yaml:"alternatives,omitempty" json:"alternatives,omitempty"`

	RecurringType    RecurrenceKind `yaml:"recurringType,omitempty" json:"recurringType,omitempty"`
	RecurringDetails string         `yaml:"recurringDetails,omitempty" json:"recurringDetails,omitempty"`
}

// Recurrence returns the row's recurrence in wire form, or nil when the row
// declares none.
func (r TaskTemplateRow) Recurrence() *RecurrenceBlock {
	if r.RecurringType == "" || r.RecurringType == RecurrenceOff {
		return nil
	}
	return &RecurrenceBlock{RecurringType: r.RecurringType, RecurringDetails: r.RecurringDetails}
}
