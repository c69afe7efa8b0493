package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/structengine/internal/events"
	"github.com/msageha/structengine/internal/lock"
	"github.com/msageha/structengine/internal/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "items.yaml"), nil, nil)
}

func writeItems(s *Store, items []model.StructureItem) error {
	return s.Update(func(doc *Document) error {
		doc.Items = items
		return nil
	})
}

func TestLoad_MissingFile(t *testing.T) {
	doc, err := newStore(t).Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
	assert.NotNil(t, doc.Items)
	assert.Equal(t, "items", doc.FileType)
}

func TestUpdate_RoundTrip(t *testing.T) {
	s := newStore(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	err := s.Update(func(doc *Document) error {
		doc.Items = append(doc.Items, model.StructureItem{
			ID:        "i1",
			Title:     "Call mom",
			Priority:  model.Int(7),
			DueDate:   "2024-03-08",
			CreatedAt: created,
		})
		doc.Blocks = []model.Block{{Start: "09:00", End: "10:00", Label: "morning"}}
		return nil
	})
	require.NoError(t, err)

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "Call mom", doc.Items[0].Title)
	assert.Equal(t, 7, *doc.Items[0].Priority)
	assert.True(t, created.Equal(doc.Items[0].CreatedAt))
	assert.Equal(t, "morning", doc.Blocks[0].Label)

	_, err = os.Stat(s.Path() + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file should be removed")
}

func TestUpdate_FnErrorWritesNothing(t *testing.T) {
	s := newStore(t)
	want := errors.New("rejected")

	err := s.Update(func(doc *Document) error { return want })
	assert.ErrorIs(t, err, want)
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpdate_KeepsBackup(t *testing.T) {
	s := newStore(t)
	require.NoError(t, writeItems(s, []model.StructureItem{{ID: "a", Title: "first"}}))
	require.NoError(t, writeItems(s, []model.StructureItem{{ID: "b", Title: "second"}}))

	bak, err := os.ReadFile(s.Path() + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(bak), "first")
}

func TestUpdate_LockedByAnotherProcess(t *testing.T) {
	s := newStore(t)
	other := lock.NewFileLock(s.Path() + ".lock")
	require.NoError(t, other.TryLock())
	defer other.Unlock()

	err := writeItems(s, nil)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUpdate_ConcurrentWritersSerialise(t *testing.T) {
	s := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Update(func(doc *Document) error {
				doc.Items = append(doc.Items, model.StructureItem{Title: "x"})
				return nil
			}))
		}()
	}
	wg.Wait()

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, doc.Items, 20)
}

func TestUpdate_PublishesEvent(t *testing.T) {
	bus := events.NewBus(4, nil)
	defer bus.Close()
	got := make(chan events.Event, 1)
	bus.Subscribe(events.EventItemsWritten, func(e events.Event) { got <- e })

	s := New(filepath.Join(t.TempDir(), "items.yaml"), bus, nil)
	require.NoError(t, writeItems(s, []model.StructureItem{{ID: "a"}, {ID: "b"}}))

	select {
	case e := <-got:
		assert.Equal(t, 2, e.Data["items"])
	case <-time.After(time.Second):
		t.Fatal("no items_written event")
	}
}

func TestLoad_RecoversFromBackup(t *testing.T) {
	s := newStore(t)
	require.NoError(t, writeItems(s, []model.StructureItem{{ID: "a", Title: "kept"}}))
	require.NoError(t, writeItems(s, []model.StructureItem{{ID: "b", Title: "latest"}}))
	require.NoError(t, os.WriteFile(s.Path(), []byte("items: [\n"), 0644))

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "kept", doc.Items[0].Title)

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(s.Path()), "quarantine"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "items.yaml."))
}

func TestLoad_RecoversToEmptyWithoutBackup(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("schema_version: 1\nfile_type: templates\nrows: []\n"), 0644))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
	assert.Empty(t, doc.Blocks)
}
