package parser

import (
	"strings"
	"time"

	"github.com/msageha/structengine/internal/model"
)

// Metadata keys set on candidates built from a phrase.
const (
	MetaTemplateTask  = "templateTask"
	MetaModifier      = "modifier"
	MetaRawPhrase     = "rawPhrase"
	MetaDateAmbiguous = "dateAmbiguous"
)

// BuildRow assembles a candidate item from a parsed phrase and its match,
// which may be nil. The candidate has no ID.
func BuildRow(pp ParsedPhrase, match *MatchResult, cfg Config) model.StructureItem {
	title := pp.TopicDisplay
	if pp.Contact != "" {
		title = strings.Join(strings.Fields(pp.Verb+" "+pp.Contact+" "+pp.TopicDisplay), " ")
	} else if title == "" {
		title = pp.Raw
	}

	item := model.StructureItem{
		Title:      title,
		CategoryID: cfg.DefaultCategoryID,
		Priority:   model.Int(cfg.DefaultPriority),
		DueDate:    pp.Date.DueDate,
		Metadata: map[string]any{
			MetaTemplateTask: "",
			MetaModifier:     pp.Contact,
			MetaRawPhrase:    pp.Raw,
		},
	}
	if pp.Date.Ambiguity {
		item.Metadata[MetaDateAmbiguous] = true
	}
	if match != nil {
		if match.Row.Category != "" {
			item.CategoryID = match.Row.Category
		}
		item.Metadata[MetaTemplateTask] = match.Task
		item.Recurrence = match.Row.Recurrence()
	}
	return item
}

// PipelineResult is the full outcome of the template path for one phrase.
type PipelineResult struct {
	Phrase    ParsedPhrase
	Match     *MatchResult
	Candidate *model.StructureItem
	// LowConfidence is set when nothing matched or the match scored under
	// the threshold.
	LowConfidence bool
}

// RunPhrasePipeline tokenizes phrase, resolves its date against ref, picks
// the best template row and builds the candidate. An empty phrase yields
// no candidate.
func RunPhrasePipeline(phrase string, rows []model.TaskTemplateRow, ref time.Time, cfg Config) PipelineResult {
	tp := Tokenize(phrase, cfg)
	if tp.Raw == "" {
		return PipelineResult{Phrase: ParsedPhrase{TokenizedPhrase: tp}, LowConfidence: true}
	}

	pp := ParsedPhrase{
		TokenizedPhrase: tp,
		Date:            ParseLooseDate(tp.DateToken, ref, cfg),
	}
	match := FindBestRowAndTask(pp, rows, cfg)
	candidate := BuildRow(pp, match, cfg)

	return PipelineResult{
		Phrase:        pp,
		Match:         match,
		Candidate:     &candidate,
		LowConfidence: match == nil || match.LowConfidence,
	}
}
