package parser

import (
	"regexp"
	"slices"
	"strings"
)

// TokenizedPhrase is a phrase split into its parts. Verb, Contact and
// TopicMatch are lowercased; TopicDisplay keeps the input's case.
type TokenizedPhrase struct {
	Raw          string
	Verb         string
	Contact      string
	TopicMatch   string
	TopicDisplay string
	DateToken    string
}

// TopicWords returns the words of the lowercased topic.
func (tp TokenizedPhrase) TopicWords() []string {
	return strings.Fields(tp.TopicMatch)
}

// Date token patterns, tried in order against the raw phrase.
var dateTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:next\s+)?(?:sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`),
	regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+\d{1,2}(?:st|nd|rd|th)?\b`),
	regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday)\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d+)?\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// Tokenize splits phrase into verb, contact, topic and date token.
//
// The verb is the first word. When it resembles a contact verb the words
// up to the first preposition are the contact and the rest is the topic;
// without a preposition every remaining word is the contact. Otherwise the
// whole phrase is the topic. The date token is removed from the topic
// only.
func Tokenize(phrase string, cfg Config) TokenizedPhrase {
	raw := strings.TrimSpace(phrase)
	tp := TokenizedPhrase{Raw: raw}

	words := strings.Fields(raw)
	if len(words) == 0 {
		return tp
	}
	tp.Verb = strings.ToLower(words[0])

	topicWords := words
	if isContactVerb(tp.Verb, cfg.ContactVerbs) {
		rest := words[1:]
		prep := slices.IndexFunc(rest, func(w string) bool {
			return slices.Contains(cfg.Prepositions, strings.ToLower(w))
		})
		switch {
		case prep >= 0:
			tp.Contact = strings.ToLower(strings.Join(rest[:prep], " "))
			topicWords = rest[prep+1:]
		default:
			tp.Contact = strings.ToLower(strings.Join(rest, " "))
			topicWords = nil
		}
	}

	for _, re := range dateTokenPatterns {
		if m := re.FindString(raw); m != "" {
			tp.DateToken = m
			break
		}
	}

	topic := strings.Join(topicWords, " ")
	if tp.DateToken != "" {
		topic = stripFold(topic, tp.DateToken)
	}
	tp.TopicDisplay = strings.Join(strings.Fields(topic), " ")
	tp.TopicMatch = strings.ToLower(tp.TopicDisplay)
	return tp
}

func isContactVerb(verb string, verbs []string) bool {
	for _, v := range verbs {
		if v == "" {
			continue
		}
		if strings.Contains(verb, v) || strings.Contains(v, verb) {
			return true
		}
	}
	return false
}

// stripFold removes the first case-insensitive occurrence of token from s.
func stripFold(s, token string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(token))
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}
