package rules

import (
	"fmt"
	"strings"
)

// EvaluateRules runs ruleSet in order against ctx. Each matching rule is
// recorded and its Then fields are merged into Derived; later rules
// overwrite earlier ones on shared keys.
func EvaluateRules(ruleSet []Rule, ctx map[string]any) Evaluation {
	result := Evaluation{
		Matched: make([]string, 0),
		Derived: make(map[string]any),
	}

	for i, rule := range ruleSet {
		if !EvaluateCondition(rule.When, ctx) {
			continue
		}
		result.Matched = append(result.Matched, ruleName(rule, i))
		for key, value := range rule.Then {
			if strings.HasPrefix(key, reservedPrefix) {
				continue
			}
			result.Derived[key] = value
		}
	}

	return result
}

func ruleName(rule Rule, index int) string {
	if rule.ID != "" {
		return rule.ID
	}
	return fmt.Sprintf("rules[%d]", index)
}
