// Package catalog loads the reference data the engine computes with (the
// ruleset, standalone rule files and template rows) and keeps it fresh by
// watching the workspace.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/msageha/structengine/internal/model"
	"github.com/msageha/structengine/internal/rules"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
)

type Paths struct {
	Ruleset   string
	Templates string
	// RulesDir holds extra rule files appended to the ruleset's rules in
	// file name order. Empty or missing means none.
	RulesDir string
}

// Catalog is one consistent load of the reference files.
type Catalog struct {
	Ruleset   model.Ruleset
	Templates []model.TaskTemplateRow
}

// RulesetDocument is the on-disk shape of ruleset.yaml.
type RulesetDocument struct {
	atomicyaml.SchemaHeader `yaml:",inline"`
	Ruleset                 model.Ruleset `yaml:"ruleset"`
}

// TemplatesDocument is the on-disk shape of templates.yaml.
type TemplatesDocument struct {
	atomicyaml.SchemaHeader `yaml:",inline"`
	Rows                    []model.TaskTemplateRow `yaml:"rows"`
}

func Load(p Paths) (*Catalog, error) {
	rs, err := LoadRuleset(p.Ruleset, p.RulesDir)
	if err != nil {
		return nil, err
	}
	rows, err := LoadTemplates(p.Templates)
	if err != nil {
		return nil, err
	}
	return &Catalog{Ruleset: rs, Templates: rows}, nil
}

// LoadRuleset reads and validates the ruleset, then appends the rules of
// every *.yaml file in rulesDir.
func LoadRuleset(path, rulesDir string) (model.Ruleset, error) {
	var doc RulesetDocument
	if err := atomicyaml.ReadDocument(path, atomicyaml.FileTypeRuleset, &doc); err != nil {
		return model.Ruleset{}, fmt.Errorf("load ruleset: %w", err)
	}
	rs := doc.Ruleset

	extra, err := loadRulesDir(rulesDir)
	if err != nil {
		return model.Ruleset{}, err
	}
	rs.Rules = append(rs.Rules, extra...)

	if err := ValidateRuleset(rs); err != nil {
		var ve *ValidationErrors
		if errors.As(err, &ve) {
			ve.File = filepath.Base(path)
		}
		return model.Ruleset{}, err
	}
	return rs, nil
}

func loadRulesDir(dir string) ([]rules.Rule, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	var out []rules.Rule
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rule file %s: %w", e.Name(), err)
		}
		doc, err := rules.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("rule file %s: %w", e.Name(), err)
		}
		out = append(out, doc.Rules...)
	}
	return out, nil
}

func isYAML(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func LoadTemplates(path string) ([]model.TaskTemplateRow, error) {
	var doc TemplatesDocument
	if err := atomicyaml.ReadDocument(path, atomicyaml.FileTypeTemplates, &doc); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	if err := ValidateTemplates(doc.Rows); err != nil {
		var ve *ValidationErrors
		if errors.As(err, &ve) {
			ve.File = filepath.Base(path)
		}
		return nil, err
	}
	return doc.Rows, nil
}

// ValidateRuleset checks the parts of a ruleset that the resolvers cannot
// recover from on their own.
func ValidateRuleset(rs model.Ruleset) error {
	errs := &ValidationErrors{}

	s := rs.Scale()
	if s.Min >= s.Max {
		errs.Add("priorityScale", fmt.Sprintf("min (%d) must be less than max (%d)", s.Min, s.Max))
	} else if s.Default < s.Min || s.Default > s.Max {
		errs.Add("priorityScale.default", fmt.Sprintf("%d is outside [%d, %d]", s.Default, s.Min, s.Max))
	}

	if ramp, ok := rs.Ramp(); ok {
		if ramp.DaysOutForMin < 0 {
			errs.Add("priorityRamp.daysOutForMin", "must be >= 0")
		}
		if ramp.DaysOutForMax < 0 {
			errs.Add("priorityRamp.daysOutForMax", "must be >= 0")
		}
	}

	if esc, ok := rs.EscalationSpec(); ok && esc.IncrementPerDay < 0 {
		errs.Add("escalation.incrementPerDay", "must be >= 0")
	}

	if err := model.ValidateCancelDayMode(rs.CancelDayReset); err != nil {
		errs.Add("cancelDayReset", err.Error())
	}

	for _, g := range rs.PriorityInference.Keywords {
		if _, ok := g.IntValue(); !ok {
			errs.Add(fmt.Sprintf("priorityInference.keywords[%s]", g.Value), "value must be an integer priority")
		}
	}

	if err := rules.Validate(rs.Rules); err != nil {
		errs.Add("rules", err.Error())
	}

	return errs.orNil()
}

func ValidateTemplates(rows []model.TaskTemplateRow) error {
	errs := &ValidationErrors{}
	for i, row := range rows {
		if strings.TrimSpace(row.Task) == "" {
			errs.Add(fmt.Sprintf("rows[%d].task", i), "must not be empty")
		}
		if row.RecurringType != "" && !model.IsValidRecurrenceKind(row.RecurringType) {
			errs.Add(fmt.Sprintf("rows[%d].recurringType", i), fmt.Sprintf("unknown recurrence %q", row.RecurringType))
		}
	}
	return errs.orNil()
}
