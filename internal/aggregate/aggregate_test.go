package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/model"
)

func januaryItems() []model.StructureItem {
	return []model.StructureItem{
		{ID: "1", DueDate: "2024-01-20"},
		{ID: "2", DueDate: "2024-01-10"},
		{ID: "3", DueDate: "2024-01-14"},
		{ID: "4", DueDate: "2024-01-10"},
		{ID: "5", DueDate: "2024-01-13"},
		{ID: "6"},
		{ID: "7", DueDate: "2024-02-01"},
		{ID: "8", DueDate: "2024-01-09"},
	}
}

func periods(rollups []Rollup) []string {
	out := make([]string, len(rollups))
	for i, r := range rollups {
		out[i] = r.Period
	}
	return out
}

func TestAggregateByDateRange_Day(t *testing.T) {
	from := dateutil.Date(2024, time.January, 10)
	to := dateutil.Date(2024, time.January, 20)

	got := AggregateByDateRange(januaryItems(), from, to, model.GroupByDay)

	assert.Equal(t, []string{"2024-01-10", "2024-01-13", "2024-01-14", "2024-01-20"}, periods(got))
	require.Len(t, got, 4)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "2", got[0].Items[0].ID)
	assert.Equal(t, "4", got[0].Items[1].ID)
	for _, r := range got[1:] {
		assert.Equal(t, 1, r.Count)
	}
}

func TestAggregateByDateRange_Week(t *testing.T) {
	from := dateutil.Date(2024, time.January, 1)
	to := dateutil.Date(2024, time.January, 31)

	got := AggregateByDateRange(januaryItems(), from, to, model.GroupByWeek)

	// Jan 7, 14 and 21 2024 are Sundays.
	assert.Equal(t, []string{"2024-01-07", "2024-01-14"}, periods(got))
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, 2, got[1].Count)
}

func TestAggregateByDateRange_Month(t *testing.T) {
	from := dateutil.Date(2024, time.January, 1)
	to := dateutil.Date(2024, time.December, 31)

	got := AggregateByDateRange(januaryItems(), from, to, model.GroupByMonth)

	assert.Equal(t, []string{"2024-01", "2024-02"}, periods(got))
	assert.Equal(t, 6, got[0].Count)
	assert.Equal(t, 1, got[1].Count)
}

func TestAggregateByDateRange_BoundsIgnoreTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)

	got := AggregateByDateRange(januaryItems(), from, to, model.GroupByDay)

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Count)
}

func TestAggregateByDateRange_Empty(t *testing.T) {
	got := AggregateByDateRange(nil, dateutil.Date(2024, 1, 1), dateutil.Date(2024, 1, 2), model.GroupByDay)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregateSignals(t *testing.T) {
	items := []model.StructureItem{
		{Signals: []string{"a", "b"}},
		{Signals: []string{"b", "c"}},
	}

	want := SignalSummary{
		Signals:       []string{"a", "b", "c"},
		Blockers:      []string{},
		Opportunities: []string{},
	}
	if diff := cmp.Diff(want, AggregateSignals(items)); diff != "" {
		t.Errorf("AggregateSignals mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateSignals_AllLists(t *testing.T) {
	items := []model.StructureItem{
		{Blockers: []string{"waiting on bank"}, Opportunities: []string{"refinance"}},
		{Blockers: []string{"waiting on bank", "missing form"}, Signals: []string{"stress"}},
		{Opportunities: []string{"refinance", "bonus"}},
	}

	got := AggregateSignals(items)

	assert.Equal(t, []string{"stress"}, got.Signals)
	assert.Equal(t, []string{"waiting on bank", "missing form"}, got.Blockers)
	assert.Equal(t, []string{"refinance", "bonus"}, got.Opportunities)
}
