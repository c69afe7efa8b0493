package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/msageha/structengine/internal/events"
	"github.com/msageha/structengine/internal/model"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
)

const rulesetYAML = `schema_version: 1
file_type: ruleset
ruleset:
  priorityScale: {min: 0, max: 10, default: 5}
  categoryInference:
    keywords:
      health: [doctor, dentist]
      family: [mom, dad]
    default: general
  priorityInference:
    keywords:
      "9": [urgent]
  rules:
    - id: base
      when: {intent: task}
      then: {priority: 6}
  customFlag: true
`

const templatesYAML = `schema_version: 1
file_type: templates
rows:
  - folder: Personal
    category: family
    task: Call mom
    alternatives: [phone mom]
`

const extraRulesYAML = `schema_version: 1
file_type: rules
rules:
  - id: health-urgent
    when: {categoryId: health}
    then: {priority: 8}
`

func writeWorkspace(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		Ruleset:   filepath.Join(dir, "ruleset.yaml"),
		Templates: filepath.Join(dir, "templates.yaml"),
		RulesDir:  filepath.Join(dir, "rules.d"),
	}
	require.NoError(t, os.WriteFile(p.Ruleset, []byte(rulesetYAML), 0644))
	require.NoError(t, os.WriteFile(p.Templates, []byte(templatesYAML), 0644))
	require.NoError(t, os.MkdirAll(p.RulesDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.RulesDir, "10-health.yaml"), []byte(extraRulesYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(p.RulesDir, "README.txt"), []byte("ignored"), 0644))
	return p
}

func TestLoad(t *testing.T) {
	p := writeWorkspace(t)

	cat, err := Load(p)
	require.NoError(t, err)

	rs := cat.Ruleset
	assert.Equal(t, model.Scale{Min: 0, Max: 10, Default: 5}, rs.Scale())
	require.Len(t, rs.CategoryInference.Keywords, 2)
	assert.Equal(t, "health", rs.CategoryInference.Keywords[0].Value)
	assert.Equal(t, "family", rs.CategoryInference.Keywords[1].Value)
	assert.Equal(t, true, rs.Extra["customFlag"])

	require.Len(t, rs.Rules, 2)
	assert.Equal(t, "base", rs.Rules[0].ID)
	assert.Equal(t, "health-urgent", rs.Rules[1].ID)

	require.Len(t, cat.Templates, 1)
	assert.Equal(t, "Call mom", cat.Templates[0].Task)
	assert.Equal(t, []string{"phone mom"}, cat.Templates[0].Alternatives)
}

func TestLoadRuleset_MissingRulesDir(t *testing.T) {
	p := writeWorkspace(t)
	rs, err := LoadRuleset(p.Ruleset, filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 1)
}

func TestLoadRuleset_WrongFileType(t *testing.T) {
	p := writeWorkspace(t)
	_, err := LoadRuleset(p.Templates, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, atomicyaml.ErrSchema))
}

func TestLoadRuleset_DuplicateRuleAcrossFiles(t *testing.T) {
	p := writeWorkspace(t)
	dup := `schema_version: 1
file_type: rules
rules:
  - id: base
    when: {intent: note}
    then: {priority: 1}
`
	require.NoError(t, os.WriteFile(filepath.Join(p.RulesDir, "20-dup.yaml"), []byte(dup), 0644))

	_, err := LoadRuleset(p.Ruleset, p.RulesDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule ID: base")
}

func TestLoadRuleset_BadRuleFile(t *testing.T) {
	p := writeWorkspace(t)
	bad := "schema_version: 1\nfile_type: rules\nrules:\n  - id: x\n    when: {a: 1}\n    then: {b: 2}\n    unknown: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(p.RulesDir, "30-bad.yaml"), []byte(bad), 0644))

	_, err := LoadRuleset(p.Ruleset, p.RulesDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "30-bad.yaml")
}

func TestValidateRuleset(t *testing.T) {
	tests := []struct {
		name   string
		rs     model.Ruleset
		fields []string
	}{
		{name: "defaults", rs: model.Ruleset{}},
		{
			name:   "inverted scale",
			rs:     model.Ruleset{PriorityScale: model.PriorityScale{Min: model.Int(5), Max: model.Int(5)}},
			fields: []string{"priorityScale"},
		},
		{
			name:   "default outside scale",
			rs:     model.Ruleset{PriorityScale: model.PriorityScale{Default: model.Int(11)}},
			fields: []string{"priorityScale.default"},
		},
		{
			name: "negative ramp and escalation",
			rs: model.Ruleset{
				PriorityRamp: &model.PriorityRamp{DaysOutForMin: model.Int(-1)},
				Escalation:   &model.Escalation{Enabled: true, IncrementPerDay: model.Int(-2)},
			},
			fields: []string{"priorityRamp.daysOutForMin", "escalation.incrementPerDay"},
		},
		{
			name:   "unknown cancel mode",
			rs:     model.Ruleset{CancelDayReset: "skip"},
			fields: []string{"cancelDayReset"},
		},
		{
			name: "non-integer priority keyword",
			rs: model.Ruleset{PriorityInference: model.PriorityInference{
				Keywords: model.OrderedKeywords{{Value: "high", Keywords: []string{"asap"}}},
			}},
			fields: []string{"priorityInference.keywords[high]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleset(tt.rs)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationErrors
			require.True(t, errors.As(err, &ve), "expected ValidationErrors, got %v", err)
			var got []string
			for _, e := range ve.Errors {
				got = append(got, e.FieldPath)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidateTemplates(t *testing.T) {
	err := ValidateTemplates([]model.TaskTemplateRow{
		{Task: "Call mom"},
		{Task: "  "},
		{Task: "Pay rent", RecurringType: "yearly"},
	})
	var ve *ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 2)
	assert.Equal(t, "rows[1].task", ve.Errors[0].FieldPath)
	assert.Equal(t, "rows[2].recurringType", ve.Errors[1].FieldPath)
	assert.Contains(t, ve.FormatStderr(), "error: rows[1].task: must not be empty")
}

func TestLoadTemplates_ErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema_version: 1\nfile_type: templates\nrows:\n  - folder: X\n"), 0644))

	_, err := LoadTemplates(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "templates.yaml: rows[0].task")
}

type recordingTarget struct {
	mu       sync.Mutex
	installs int
	rs       model.Ruleset
	rows     []model.TaskTemplateRow
}

func (r *recordingTarget) Install(rs model.Ruleset, rows []model.TaskTemplateRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installs++
	r.rs = rs
	r.rows = rows
}

func (r *recordingTarget) snapshot() (int, []model.TaskTemplateRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installs, r.rows
}

func TestWatcher_Reload(t *testing.T) {
	p := writeWorkspace(t)
	target := &recordingTarget{}
	w := NewWatcher(p, target, nil, nil, 0)

	require.NoError(t, w.Reload())
	n, rows := target.snapshot()
	assert.Equal(t, 1, n)
	assert.Len(t, rows, 1)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := writeWorkspace(t)
	target := &recordingTarget{}
	bus := events.NewBus(10, nil)
	defer bus.Close()

	reloaded := make(chan events.Event, 4)
	bus.Subscribe(events.EventTemplatesReloaded, func(e events.Event) { reloaded <- e })

	w := NewWatcher(p, target, bus, nil, 20*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	updated := templatesYAML + "  - folder: Home\n    category: chores\n    task: Take out trash\n"
	require.NoError(t, atomicyaml.AtomicWriteRaw(p.Templates, []byte(updated)))

	select {
	case e := <-reloaded:
		assert.Equal(t, 2, e.Data["rows"])
	case <-time.After(3 * time.Second):
		t.Fatal("no reload event after template change")
	}
	_, rows := target.snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "Take out trash", rows[1].Task)
}

func TestWatcher_FailedReloadKeepsTarget(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := writeWorkspace(t)
	target := &recordingTarget{}
	bus := events.NewBus(10, nil)
	defer bus.Close()

	failed := make(chan events.Event, 4)
	bus.Subscribe(events.EventReloadFailed, func(e events.Event) { failed <- e })

	w := NewWatcher(p, target, bus, nil, 20*time.Millisecond)
	require.NoError(t, w.Reload())
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.NoError(t, atomicyaml.AtomicWriteRaw(p.Ruleset, []byte("schema_version: 1\nfile_type: ruleset\nruleset:\n  cancelDayReset: skip\n")))

	select {
	case e := <-failed:
		assert.Contains(t, e.Data["error"], "cancelDayReset")
	case <-time.After(3 * time.Second):
		t.Fatal("no failure event after invalid ruleset")
	}
	n, _ := target.snapshot()
	assert.Equal(t, 1, n)
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWatcher(writeWorkspace(t), &recordingTarget{}, nil, nil, 0)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
