// Package parser implements the template path of task capture: a phrase
// is tokenized, its date resolved, the best template row picked and a
// candidate item built from the result. Every stage is a pure function.
package parser

import "slices"

var contactVerbs = []string{"call", "email", "text", "visit", "message", "phone", "ping", "meet"}

var prepositions = []string{"about", "for", "with", "to", "on", "regarding", "re"}

const (
	DefaultMatcherThreshold  = 2
	DefaultCategoryID        = "general"
	DefaultCandidatePriority = 5
)

// Config tunes the pipeline. Treat it as a value: DefaultConfig returns
// fresh copies of the tables.
type Config struct {
	ContactVerbs []string `mapstructure:"contact_verbs" yaml:"contact_verbs"`
	Prepositions []string `mapstructure:"prepositions" yaml:"prepositions"`
	// WordWeights adds a bonus to a topic word found in a template row.
	WordWeights      map[string]int `mapstructure:"word_weights" yaml:"word_weights,omitempty"`
	MatcherThreshold int            `mapstructure:"matcher_threshold" yaml:"matcher_threshold"`
	// RollForward moves yearless dates that fall before the reference date
	// into the next year. Nil means true.
	RollForward       *bool  `mapstructure:"roll_forward" yaml:"roll_forward,omitempty"`
	DefaultCategoryID string `mapstructure:"default_category" yaml:"default_category"`
	DefaultPriority   int    `mapstructure:"default_priority" yaml:"default_priority"`
}

func DefaultConfig() Config {
	return Config{
		ContactVerbs:      slices.Clone(contactVerbs),
		Prepositions:      slices.Clone(prepositions),
		WordWeights:       map[string]int{},
		MatcherThreshold:  DefaultMatcherThreshold,
		DefaultCategoryID: DefaultCategoryID,
		DefaultPriority:   DefaultCandidatePriority,
	}
}

func (c Config) rollForward() bool {
	return c.RollForward == nil || *c.RollForward
}
