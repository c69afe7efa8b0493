// Package model defines the data structures shared by the structure engine:
// items, recurrence patterns, the resolved ruleset and template rows.
package model

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/msageha/structengine/internal/rules"
)

const (
	DefaultScaleMin      = 0
	DefaultScaleMax      = 10
	DefaultScaleDefault  = 5
	DefaultDaysOutForMin = 7
	DefaultDaysOutForMax = 0
	DefaultEscalationInc = 1
)

// Ruleset is the resolved configuration the resolvers read. Every field is
// optional; accessors fill in defaults. Keys this struct does not know are
// kept in Extra and written back unchanged.
type Ruleset struct {
	PriorityScale         PriorityScale     `yaml:"priorityScale,omitempty"`
	PriorityRamp          *PriorityRamp     `yaml:"priorityRamp,omitempty"`
	VisibilityMinPriority *int              `yaml:"visibilityMinPriority,omitempty"`
	Escalation            *Escalation       `yaml:"escalation,omitempty"`
	CancelDayReset        CancelDayMode     `yaml:"cancelDayReset,omitempty"`
	CategoryInference     CategoryInference `yaml:"categoryInference,omitempty"`
	PriorityInference     PriorityInference `yaml:"priorityInference,omitempty"`
	Rules                 []rules.Rule      `yaml:"rules,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

type PriorityScale struct {
	Min     *int `yaml:"min,omitempty"`
	Max     *int `yaml:"max,omitempty"`
	Default *int `yaml:"default,omitempty"`
}

type PriorityRamp struct {
	DaysOutForMin *int `yaml:"daysOutForMin,omitempty"`
	DaysOutForMax *int `yaml:"daysOutForMax,omitempty"`
	MinPriority   *int `yaml:"minPriority,omitempty"`
	MaxPriority   *int `yaml:"maxPriority,omitempty"`
}

type Escalation struct {
	Enabled         bool `yaml:"enabled"`
	IncrementPerDay *int `yaml:"incrementPerDay,omitempty"`
	MaxPriority     *int `yaml:"maxPriority,omitempty"`
}

type CategoryInference struct {
	Keywords OrderedKeywords `yaml:"keywords,omitempty"`
	Default  string          `yaml:"default,omitempty"`
}

type PriorityInference struct {
	Keywords OrderedKeywords `yaml:"keywords,omitempty"`
	Default  *int            `yaml:"default,omitempty"`
}

// Scale is a PriorityScale with defaults applied.
type Scale struct {
	Min, Max, Default int
}

// Clamp bounds p to [Min, Max].
func (s Scale) Clamp(p int) int {
	if p < s.Min {
		return s.Min
	}
	if p > s.Max {
		return s.Max
	}
	return p
}

// Ramp is a PriorityRamp with defaults applied.
type Ramp struct {
	DaysOutForMin, DaysOutForMax int
	MinPriority, MaxPriority     int
}

// EscalationSpec is an Escalation with defaults applied.
type EscalationSpec struct {
	IncrementPerDay int
	MaxPriority     int
}

func (r Ruleset) Scale() Scale {
	s := Scale{Min: DefaultScaleMin, Max: DefaultScaleMax, Default: DefaultScaleDefault}
	if r.PriorityScale.Min != nil {
		s.Min = *r.PriorityScale.Min
	}
	if r.PriorityScale.Max != nil {
		s.Max = *r.PriorityScale.Max
	}
	if r.PriorityScale.Default != nil {
		s.Default = *r.PriorityScale.Default
	}
	return s
}

// Ramp reports the configured ramp, if any.
func (r Ruleset) Ramp() (Ramp, bool) {
	if r.PriorityRamp == nil {
		return Ramp{}, false
	}
	s := r.Scale()
	ramp := Ramp{
		DaysOutForMin: DefaultDaysOutForMin,
		DaysOutForMax: DefaultDaysOutForMax,
		MinPriority:   s.Min,
		MaxPriority:   s.Max,
	}
	if v := r.PriorityRamp.DaysOutForMin; v != nil {
		ramp.DaysOutForMin = *v
	}
	if v := r.PriorityRamp.DaysOutForMax; v != nil {
		ramp.DaysOutForMax = *v
	}
	if v := r.PriorityRamp.MinPriority; v != nil {
		ramp.MinPriority = *v
	}
	if v := r.PriorityRamp.MaxPriority; v != nil {
		ramp.MaxPriority = *v
	}
	return ramp, true
}

// EscalationSpec reports the escalation settings when escalation is enabled.
func (r Ruleset) EscalationSpec() (EscalationSpec, bool) {
	if r.Escalation == nil || !r.Escalation.Enabled {
		return EscalationSpec{}, false
	}
	spec := EscalationSpec{IncrementPerDay: DefaultEscalationInc, MaxPriority: r.Scale().Max}
	if v := r.Escalation.IncrementPerDay; v != nil {
		spec.IncrementPerDay = *v
	}
	if v := r.Escalation.MaxPriority; v != nil {
		spec.MaxPriority = *v
	}
	return spec, true
}

func (r Ruleset) CancelDayMode() CancelDayMode {
	if r.CancelDayReset == "" {
		return CancelDayNone
	}
	return r.CancelDayReset
}

// KeywordGroup maps one inferred value to the keywords that select it.
type KeywordGroup struct {
	Value    string
	Keywords []string
}

// OrderedKeywords keeps keyword groups in document order so that "first
// match wins" is deterministic. In YAML it is a mapping of value to a
// keyword list (or a single keyword).
type OrderedKeywords []KeywordGroup

func (o *OrderedKeywords) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: keywords must be a mapping", node.Line)
	}
	groups := make(OrderedKeywords, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		g := KeywordGroup{Value: key.Value}
		switch val.Kind {
		case yaml.SequenceNode:
			if err := val.Decode(&g.Keywords); err != nil {
				return fmt.Errorf("keywords %q: %w", key.Value, err)
			}
		case yaml.ScalarNode:
			g.Keywords = []string{val.Value}
		default:
			return fmt.Errorf("line %d: keywords %q must be a list", val.Line, key.Value)
		}
		groups = append(groups, g)
	}
	*o = groups
	return nil
}

func (o OrderedKeywords) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, g := range o {
		var val yaml.Node
		if err := val.Encode(g.Keywords); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: g.Value},
			&val,
		)
	}
	return node, nil
}

// IntValue parses the group value as a priority.
func (g KeywordGroup) IntValue() (int, bool) {
	n, err := strconv.Atoi(g.Value)
	return n, err == nil
}
