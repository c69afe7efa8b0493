// Package stream turns transcript segments into sentences tagged with a
// coarse intent.
package stream

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/msageha/structengine/internal/model"
)

// ParseSegment is one transcript chunk. Interim segments may still be
// revised by the recognizer; final ones are settled.
type ParseSegment struct {
	Text      string    `yaml:"text" json:"text"`
	IsFinal   bool      `yaml:"isFinal" json:"isFinal"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

type Sentence struct {
	Text   string       `yaml:"text" json:"text"`
	Intent model.Intent `yaml:"intent" json:"intent"`
}

// ParseResult is the interpretation of a run of segments. Pending holds
// the latest interim text received after the last final segment.
type ParseResult struct {
	Text      string       `yaml:"text" json:"text"`
	Sentences []Sentence   `yaml:"sentences" json:"sentences"`
	Intent    model.Intent `yaml:"intent" json:"intent"`
	Pending   string       `yaml:"pending,omitempty" json:"pending,omitempty"`
}

var (
	terminatorRe = regexp.MustCompile(`[.!?]`)
	connectorRe  = regexp.MustCompile(`(?i) (?:and|also|then) `)

	questionRe = regexp.MustCompile(`^(?:what|when|show|list|get me|who)\b`)
	noteRe     = regexp.MustCompile(`^(?:note|remember|journal)\b`)
	commandRe  = regexp.MustCompile(`^(?:cancel|switch|add above|clear)\b`)
)

// SplitSentences splits text on sentence terminators and then on the
// connectors " and ", " also " and " then ". When nothing survives the
// trimmed input is returned as the only sentence.
func SplitSentences(text string) []string {
	out := make([]string, 0)
	for _, fragment := range terminatorRe.Split(text, -1) {
		for _, part := range connectorRe.Split(fragment, -1) {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		if s := strings.TrimSpace(text); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DetectIntent classifies text by its leading word, or by a trailing
// question mark. Anything unrecognised is a task.
func DetectIntent(text string) model.Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case questionRe.MatchString(t) || strings.HasSuffix(t, "?"):
		return model.IntentQuestion
	case noteRe.MatchString(t):
		return model.IntentNote
	case commandRe.MatchString(t):
		return model.IntentCommand
	default:
		return model.IntentTask
	}
}

// Interpret orders segments by timestamp, joins the final ones and splits
// the result into sentences. Each interim segment revises the previous one
// and is superseded by the next final segment.
func Interpret(segments []ParseSegment) ParseResult {
	ordered := make([]ParseSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var final []string
	pending := ""
	for _, seg := range ordered {
		text := strings.TrimSpace(seg.Text)
		if !seg.IsFinal {
			pending = text
			continue
		}
		pending = ""
		if text != "" {
			final = append(final, text)
		}
	}

	return InterpretText(strings.Join(final, " "), pending)
}

// InterpretText interprets already-settled text.
func InterpretText(text, pending string) ParseResult {
	res := ParseResult{
		Text:      text,
		Sentences: make([]Sentence, 0),
		Intent:    DetectIntent(text),
		Pending:   pending,
	}
	for _, s := range SplitSentences(text) {
		res.Sentences = append(res.Sentences, Sentence{Text: s, Intent: DetectIntent(s)})
	}
	return res
}
