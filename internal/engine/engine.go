// Package engine is the concurrency-safe entry point to the structure
// engine. It pairs the pure resolvers with the current reference data
// (ruleset, template rows, parser settings), which can be replaced at any
// time without blocking readers.
package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/msageha/structengine/internal/aggregate"
	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/mapper"
	"github.com/msageha/structengine/internal/model"
	"github.com/msageha/structengine/internal/parser"
	"github.com/msageha/structengine/internal/priority"
	"github.com/msageha/structengine/internal/recurrence"
	"github.com/msageha/structengine/internal/schedule"
	"github.com/msageha/structengine/internal/stream"
)

// Snapshot is the reference data one computation runs against. A
// snapshot is never modified after it is installed.
type Snapshot struct {
	Ruleset   model.Ruleset
	Templates []model.TaskTemplateRow
	Parser    parser.Config
	LoadedAt  time.Time
}

type Engine struct {
	snap   atomic.Pointer[Snapshot]
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock used for UpdatedAt stamps and snapshot load
// times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(snap Snapshot, opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.Swap(snap)
	return e
}

// Snapshot returns the current reference data. Callers must not modify it.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Swap installs snap and returns the one it replaced.
func (e *Engine) Swap(snap Snapshot) *Snapshot {
	if snap.LoadedAt.IsZero() {
		snap.LoadedAt = e.now()
	}
	return e.snap.Swap(&snap)
}

// Install replaces the ruleset and template rows and keeps the parser
// settings.
func (e *Engine) Install(rs model.Ruleset, rows []model.TaskTemplateRow) {
	cur := e.Snapshot()
	e.Swap(Snapshot{Ruleset: rs, Templates: rows, Parser: cur.Parser})
	e.logger.Debug("snapshot installed", zap.Int("rules", len(rs.Rules)), zap.Int("templates", len(rows)))
}

// CaptureReport is the outcome of one phrase capture.
type CaptureReport struct {
	RunID  string                `json:"runId" yaml:"runId"`
	Phrase string                `json:"phrase" yaml:"phrase"`
	Result parser.PipelineResult `json:"result" yaml:"result"`
}

// Capture runs the template pipeline over phrase with ref as "today".
func (e *Engine) Capture(phrase string, ref time.Time) CaptureReport {
	snap := e.Snapshot()
	rep := CaptureReport{
		RunID:  uuid.NewString(),
		Phrase: phrase,
		Result: parser.RunPhrasePipeline(phrase, snap.Templates, ref, snap.Parser),
	}

	fields := []zap.Field{
		zap.String("run_id", rep.RunID),
		zap.String("phrase", phrase),
		zap.Bool("low_confidence", rep.Result.LowConfidence),
	}
	if m := rep.Result.Match; m != nil {
		fields = append(fields, zap.String("task", m.Task), zap.Int("score", m.Score))
	}
	e.logger.Debug("phrase captured", fields...)
	return rep
}

// TranscribeReport is the outcome of interpreting one transcript.
type TranscribeReport struct {
	RunID  string             `json:"runId" yaml:"runId"`
	Parse  stream.ParseResult `json:"parse" yaml:"parse"`
	Mapped mapper.MapResult   `json:"mapped" yaml:"mapped"`
}

// Transcribe interprets segments and maps every sentence to a candidate.
func (e *Engine) Transcribe(segments []stream.ParseSegment, ref time.Time) TranscribeReport {
	return e.mapParsed(stream.Interpret(segments), ref)
}

// TranscribeText is Transcribe for text that is already settled.
func (e *Engine) TranscribeText(text string, ref time.Time) TranscribeReport {
	return e.mapParsed(stream.InterpretText(text, ""), ref)
}

func (e *Engine) mapParsed(parsed stream.ParseResult, ref time.Time) TranscribeReport {
	snap := e.Snapshot()
	rep := TranscribeReport{
		RunID:  uuid.NewString(),
		Parse:  parsed,
		Mapped: mapper.MapToCandidates(parsed, snap.Ruleset, mapper.Context{Ref: ref, Parser: snap.Parser}),
	}
	e.logger.Debug("transcript mapped",
		zap.String("run_id", rep.RunID),
		zap.Int("sentences", len(parsed.Sentences)),
		zap.Int("candidates", len(rep.Mapped.Candidates)),
		zap.Bool("pending", parsed.Pending != ""))
	return rep
}

// Due returns the items due on date with their slots and priorities.
func (e *Engine) Due(items []model.StructureItem, date time.Time, blocks []model.Block) []schedule.ScheduledItem {
	return schedule.ScheduledForDate(items, date, blocks, e.Snapshot().Ruleset)
}

// RankedItem is an item with its effective priority on a given date.
type RankedItem struct {
	Item              model.StructureItem `json:"item" yaml:"item"`
	EffectivePriority int                 `json:"effectivePriority" yaml:"effectivePriority"`
	Visible           bool                `json:"visible" yaml:"visible"`
}

// Sort orders items by effective priority on date, highest first.
func (e *Engine) Sort(items []model.StructureItem, date time.Time) []RankedItem {
	rs := e.Snapshot().Ruleset
	sorted := priority.SortByPriority(items, date, rs)
	out := make([]RankedItem, 0, len(sorted))
	for _, it := range sorted {
		out = append(out, RankedItem{
			Item:              it,
			EffectivePriority: priority.EffectivePriority(it, date, rs),
			Visible:           priority.IsVisibleInWeekView(it, date, rs),
		})
	}
	return out
}

func (e *Engine) Occurrences(item model.StructureItem, from time.Time, count int) []string {
	return recurrence.NextOccurrences(item, from, count)
}

// Rollup groups the items due in [from, to]. groupBy must be day, week or
// month.
func (e *Engine) Rollup(items []model.StructureItem, from, to time.Time, groupBy model.GroupBy) ([]aggregate.Rollup, error) {
	if err := model.ValidateGroupBy(groupBy); err != nil {
		return nil, err
	}
	if dateutil.Day(to).Before(dateutil.Day(from)) {
		return nil, fmt.Errorf("range end %s is before start %s", dateutil.FormatISO(to), dateutil.FormatISO(from))
	}
	return aggregate.AggregateByDateRange(items, from, to, groupBy), nil
}

func (e *Engine) Signals(items []model.StructureItem) aggregate.SignalSummary {
	return aggregate.AggregateSignals(items)
}

// CancelDay applies the ruleset's cancel-day policy to the items due on
// date and reports how many items changed. A restamped item counts as
// changed even when its priority is already at the floor.
func (e *Engine) CancelDay(items []model.StructureItem, date time.Time) ([]model.StructureItem, int) {
	rs := e.Snapshot().Ruleset
	out := priority.ApplyCancelDay(items, date, e.now(), rs)

	changed := 0
	for i := range out {
		if out[i].DueDate != items[i].DueDate ||
			out[i].PriorityOr(-1) != items[i].PriorityOr(-1) ||
			!out[i].UpdatedAt.Equal(items[i].UpdatedAt) {
			changed++
		}
	}
	e.logger.Info("cancel day applied",
		zap.String("date", dateutil.FormatISO(date)),
		zap.String("mode", string(rs.CancelDayMode())),
		zap.Int("changed", changed))
	return out, changed
}
