// Package mapper implements the free-text path of task capture. Each
// interpreted sentence becomes a candidate item whose category, priority,
// due date and recurrence are inferred from keywords and fixed patterns,
// then adjusted by the ruleset's when/then rules.
package mapper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/msageha/structengine/internal/model"
	"github.com/msageha/structengine/internal/parser"
	"github.com/msageha/structengine/internal/rules"
	"github.com/msageha/structengine/internal/stream"
)

// Metadata keys set on mapped candidates.
const (
	MetaIntent     = "intent"
	MetaSourceText = "sourceText"
)

// Context carries the caller-supplied inputs that are not part of the
// ruleset.
type Context struct {
	// Ref is the reference date for relative date phrases.
	Ref    time.Time
	Parser parser.Config
}

// Trace records why a sentence was mapped the way it was. Empty fields
// mean the corresponding inference fell back to its default.
type Trace struct {
	Sentence        string         `yaml:"sentence" json:"sentence"`
	Intent          model.Intent   `yaml:"intent" json:"intent"`
	CategoryKeyword string         `yaml:"categoryKeyword,omitempty" json:"categoryKeyword,omitempty"`
	PriorityKeyword string         `yaml:"priorityKeyword,omitempty" json:"priorityKeyword,omitempty"`
	DatePhrase      string         `yaml:"datePhrase,omitempty" json:"datePhrase,omitempty"`
	RecurrenceRule  string         `yaml:"recurrenceRule,omitempty" json:"recurrenceRule,omitempty"`
	MatchedRules    []string       `yaml:"matchedRules,omitempty" json:"matchedRules,omitempty"`
	Derived         map[string]any `yaml:"derived,omitempty" json:"derived,omitempty"`
}

// MapResult pairs each candidate with its trace, index for index.
type MapResult struct {
	Candidates []model.StructureItem `yaml:"candidates" json:"candidates"`
	Traces     []Trace               `yaml:"traces" json:"traces"`
}

// MapToCandidates builds one candidate per sentence of result.
func MapToCandidates(result stream.ParseResult, rs model.Ruleset, ctx Context) MapResult {
	out := MapResult{
		Candidates: make([]model.StructureItem, 0, len(result.Sentences)),
		Traces:     make([]Trace, 0, len(result.Sentences)),
	}
	for _, s := range result.Sentences {
		item, trace := mapSentence(s, result.Text, rs, ctx)
		out.Candidates = append(out.Candidates, item)
		out.Traces = append(out.Traces, trace)
	}
	return out
}

func mapSentence(s stream.Sentence, source string, rs model.Ruleset, ctx Context) (model.StructureItem, Trace) {
	lower := strings.ToLower(s.Text)
	scale := rs.Scale()
	trace := Trace{Sentence: s.Text, Intent: s.Intent}

	category := rs.CategoryInference.Default
	if category == "" {
		category = ctx.Parser.DefaultCategoryID
	}
	if g, kw, ok := firstKeywordMatch(rs.CategoryInference.Keywords, lower, nil); ok {
		category, trace.CategoryKeyword = g.Value, kw
	}

	p := scale.Default
	if rs.PriorityInference.Default != nil {
		p = *rs.PriorityInference.Default
	}
	isPriority := func(g model.KeywordGroup) bool {
		_, ok := g.IntValue()
		return ok
	}
	if g, kw, ok := firstKeywordMatch(rs.PriorityInference.Keywords, lower, isPriority); ok {
		p, _ = g.IntValue()
		trace.PriorityKeyword = kw
	}

	due, phrase := extractDate(lower, ctx)
	trace.DatePhrase = phrase

	recur, rule := extractRecurrence(lower)
	trace.RecurrenceRule = rule

	item := model.StructureItem{
		Title:      s.Text,
		CategoryID: category,
		DueDate:    due,
		Recurrence: recur,
		Metadata: map[string]any{
			MetaIntent:     string(s.Intent),
			MetaSourceText: source,
		},
	}

	if len(rs.Rules) > 0 {
		eval := rules.EvaluateRules(rs.Rules, ruleContext(s, category, p, due, recur))
		if len(eval.Matched) > 0 {
			trace.MatchedRules = eval.Matched
			trace.Derived = eval.Derived
		}
		if v, ok := eval.Derived["categoryId"].(string); ok && v != "" {
			item.CategoryID = v
		}
		if v, ok := toInt(eval.Derived["priority"]); ok {
			p = v
		}
		if v, ok := eval.Derived["title"].(string); ok && v != "" {
			item.Title = v
		}
	}

	item.Priority = model.Int(scale.Clamp(p))
	return item, trace
}

func ruleContext(s stream.Sentence, category string, p int, due string, recur *model.RecurrenceBlock) map[string]any {
	ctx := map[string]any{
		"text":       s.Text,
		"intent":     string(s.Intent),
		"categoryId": category,
		"priority":   p,
		"hasDueDate": due != "",
		"recurrence": nil,
	}
	if recur != nil {
		ctx["recurrence"] = string(recur.RecurringType)
	}
	return ctx
}

// firstKeywordMatch returns the first group, in document order, with a
// keyword contained in text. Groups rejected by accept are skipped.
func firstKeywordMatch(groups model.OrderedKeywords, text string, accept func(model.KeywordGroup) bool) (model.KeywordGroup, string, bool) {
	for _, g := range groups {
		if accept != nil && !accept(g) {
			continue
		}
		for _, kw := range g.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return g, kw, true
			}
		}
	}
	return model.KeywordGroup{}, "", false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

var relativePhrases = []string{"today", "tomorrow", "yesterday"}

var (
	relativeRes = compileWords(relativePhrases, `\b%s\b`)
	weekdayRes  = compileWords(
		[]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
		`\b(?:next\s+)?%s\b`,
	)
)

func compileWords(words []string, pattern string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(fmt.Sprintf(pattern, w))
	}
	return out
}

// extractDate scans for relative words, then weekday names. The first
// pattern in list order wins, wherever it appears in the text.
func extractDate(lower string, ctx Context) (string, string) {
	for _, group := range [][]*regexp.Regexp{relativeRes, weekdayRes} {
		for _, re := range group {
			phrase := re.FindString(lower)
			if phrase == "" {
				continue
			}
			if pd := parser.ParseLooseDate(phrase, ctx.Ref, ctx.Parser); pd.DueDate != "" {
				return pd.DueDate, phrase
			}
		}
	}
	return "", ""
}

var (
	dailyRe        = regexp.MustCompile(`\b(?:daily|every day)\b`)
	weeklyRe       = regexp.MustCompile(`\b(?:weekly|every week)\b`)
	monthlyRe      = regexp.MustCompile(`\b(?:monthly|every month)\b`)
	everyWeekdayRe = regexp.MustCompile(`\bevery (sunday|monday|tuesday|wednesday|thursday|friday|saturday)s?\b`)
)

// extractRecurrence checks the fixed patterns in order. "weekly" without
// named days means every day of the week.
func extractRecurrence(lower string) (*model.RecurrenceBlock, string) {
	switch {
	case dailyRe.MatchString(lower):
		return model.NewRecurrenceBlock(model.Daily{}), "daily"
	case weeklyRe.MatchString(lower):
		return model.NewRecurrenceBlock(model.Weekly{Days: model.AllWeekdays}), "weekly"
	case monthlyRe.MatchString(lower):
		return model.NewRecurrenceBlock(model.Monthly{}), "monthly"
	}

	var days model.WeekdaySet
	for _, m := range everyWeekdayRe.FindAllStringSubmatch(lower, -1) {
		if d, ok := model.LookupWeekday(m[1]); ok {
			days = days.Add(d)
		}
	}
	if days != 0 {
		return model.NewRecurrenceBlock(model.Weekly{Days: days}), "every-weekday"
	}
	return nil, ""
}
