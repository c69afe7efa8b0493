package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	SchemaVersion = 1
	FileType      = "rules"
)

// Decode parses a standalone rule file. Unknown fields are rejected.
func Decode(data []byte) (*Document, error) {
	var doc Document

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty rule file")
		}
		return nil, fmt.Errorf("YAML decode error: %w", err)
	}

	if doc.SchemaVersion == 0 {
		return nil, fmt.Errorf("schema_version is required")
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version: %d", doc.SchemaVersion)
	}
	if doc.FileType != "" && doc.FileType != FileType {
		return nil, fmt.Errorf("file_type mismatch: got %q, expected %q", doc.FileType, FileType)
	}

	if err := Validate(doc.Rules); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks a rule list for duplicate IDs, empty conditions and
// empty outcomes.
func Validate(ruleSet []Rule) error {
	ids := make(map[string]bool)
	for i, rule := range ruleSet {
		name := ruleName(rule, i)

		if rule.ID != "" {
			if ids[rule.ID] {
				return fmt.Errorf("duplicate rule ID: %s", rule.ID)
			}
			ids[rule.ID] = true
		}

		if countConditionKeys(rule.When) == 0 {
			return fmt.Errorf("rule %s: when must have at least one condition", name)
		}
		if countConditionKeys(rule.Then) == 0 {
			return fmt.Errorf("rule %s: then must set at least one field", name)
		}

		for key, expected := range rule.When {
			m, ok := expected.(map[string]any)
			if !ok || strings.HasPrefix(key, reservedPrefix) {
				continue
			}
			if _, has := m[EqualsKey]; !has {
				return fmt.Errorf("rule %s: condition %q: mapping conditions must use %q", name, key, EqualsKey)
			}
		}
	}
	return nil
}

func countConditionKeys(m map[string]any) int {
	n := 0
	for key := range m {
		if !strings.HasPrefix(key, reservedPrefix) {
			n++
		}
	}
	return n
}
