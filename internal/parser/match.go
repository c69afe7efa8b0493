package parser

import (
	"strings"

	"github.com/msageha/structengine/internal/model"
)

// ParsedPhrase is a tokenized phrase with its date resolved.
type ParsedPhrase struct {
	TokenizedPhrase
	Date ParsedDate
}

// MatchResult is the best template row for a phrase.
type MatchResult struct {
	Row      model.TaskTemplateRow
	RowIndex int
	// Task is the canonical task text or the alternative that scored best.
	Task          string
	Score         int
	LowConfidence bool
}

// ScoreMatch scores how well pp fits row. The score is an unnormalised sum:
//
//	+1 per topic word found in the task text or an alternative, plus that
//	   word's configured weight
//	+1 when a contact was captured and the task mentions call or contact
//	+1 each when the topic contains the folder, subfolder or category
//	+2 when the topic equals, contains or is contained by an alternative
func ScoreMatch(pp ParsedPhrase, row model.TaskTemplateRow, cfg Config) int {
	task := strings.ToLower(row.Task)
	alts := make([]string, 0, len(row.Alternatives))
	for _, a := range row.Alternatives {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			alts = append(alts, a)
		}
	}

	score := 0
	for _, w := range pp.TopicWords() {
		if !strings.Contains(task, w) && !containsAny(alts, w) {
			continue
		}
		score++
		score += cfg.WordWeights[w]
	}

	if pp.Contact != "" && (strings.Contains(task, "call") || strings.Contains(task, "contact")) {
		score++
	}

	topic := pp.TopicMatch
	if topic == "" {
		return score
	}
	for _, label := range []string{row.Folder, row.Subfolder, row.Category} {
		if label != "" && strings.Contains(topic, strings.ToLower(label)) {
			score++
		}
	}
	for _, a := range alts {
		if a == topic || strings.Contains(a, topic) || strings.Contains(topic, a) {
			score += 2
			break
		}
	}
	return score
}

func containsAny(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

// FindBestRowAndTask scores every row once with its canonical task and
// once with each alternative in its place, and returns the highest scoring
// row. The first row to reach a score wins ties. It returns nil when no
// row scores above zero.
func FindBestRowAndTask(pp ParsedPhrase, rows []model.TaskTemplateRow, cfg Config) *MatchResult {
	var best *MatchResult
	for i, row := range rows {
		rowScore, rowTask := ScoreMatch(pp, row, cfg), row.Task
		for _, alt := range row.Alternatives {
			variant := row
			variant.Task = alt
			if s := ScoreMatch(pp, variant, cfg); s > rowScore {
				rowScore, rowTask = s, alt
			}
		}
		if rowScore <= 0 {
			continue
		}
		if best == nil || rowScore > best.Score {
			best = &MatchResult{Row: row, RowIndex: i, Task: rowTask, Score: rowScore}
		}
	}
	if best != nil {
		best.LowConfidence = best.Score < cfg.MatcherThreshold
	}
	return best
}
