// Package rules implements the generic when/then rule evaluator used to
// post-process inferred task candidates.
package rules

// Rule is a single when/then pair. Every non-$ key in When must match the
// evaluation context; the non-$ keys of Then are merged into the derived
// map when it does.
type Rule struct {
	ID          string         `yaml:"id,omitempty" json:"id,omitempty"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	When        map[string]any `yaml:"when" json:"when"`
	Then        map[string]any `yaml:"then" json:"then"`
}

// Evaluation is the outcome of running a rule set against one context.
type Evaluation struct {
	// Matched lists the matching rules in evaluation order, by ID or by
	// position ("rules[2]") for rules without one.
	Matched []string
	Derived map[string]any
}

// Document is the on-disk shape of a standalone rule file.
type Document struct {
	SchemaVersion int    `yaml:"schema_version"`
	FileType      string `yaml:"file_type"`
	Rules         []Rule `yaml:"rules"`
}

// reservedPrefix marks keys that carry annotations rather than conditions
// or derived values.
const reservedPrefix = "$"

// EqualsKey is the key of the {equals: v} condition form.
const EqualsKey = "equals"
