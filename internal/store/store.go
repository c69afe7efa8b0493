// Package store reads and writes the workspace item file that stands in
// for the external item store.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/msageha/structengine/internal/events"
	"github.com/msageha/structengine/internal/lock"
	"github.com/msageha/structengine/internal/model"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
)

// ErrLocked is returned by Update when another process is writing the
// item file.
var ErrLocked = lock.ErrLocked

// Document is the on-disk shape of items.yaml.
type Document struct {
	atomicyaml.SchemaHeader `yaml:",inline"`
	Items                   []model.StructureItem `yaml:"items"`
	Blocks                  []model.Block         `yaml:"blocks"`
}

func NewDocument() *Document {
	return &Document{
		SchemaHeader: atomicyaml.NewHeader(atomicyaml.FileTypeItems),
		Items:        []model.StructureItem{},
		Blocks:       []model.Block{},
	}
}

type Store struct {
	path     string
	locks    *lock.MutexMap
	recovery atomicyaml.Recovery
	bus      *events.Bus
	logger   *zap.Logger
}

// New returns a store for the item file at path. bus may be nil.
func New(path string, bus *events.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:     path,
		locks:    lock.NewMutexMap(),
		recovery: atomicyaml.Recovery{Dir: filepath.Dir(path), Logger: logger},
		bus:      bus,
		logger:   logger,
	}
}

func (s *Store) Path() string { return s.path }

// Load reads the item file. A missing file is an empty document. An
// unreadable one is quarantined and replaced by its backup, or by an empty
// document when there is no usable backup.
func (s *Store) Load() (*Document, error) {
	doc, err := s.read()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		if err != nil {
			return NewDocument(), nil
		}
		return doc, nil
	}

	s.logger.Warn("item file unreadable, recovering", zap.String("file", s.path), zap.Error(err))
	if rerr := s.recovery.Recover(s.path, atomicyaml.FileTypeItems); rerr != nil {
		return nil, fmt.Errorf("recover %s: %w (after: %v)", filepath.Base(s.path), rerr, err)
	}
	doc, err = s.read()
	if err != nil {
		return nil, fmt.Errorf("read recovered %s: %w", filepath.Base(s.path), err)
	}
	return doc, nil
}

func (s *Store) read() (*Document, error) {
	doc := NewDocument()
	if err := atomicyaml.ReadDocument(s.path, atomicyaml.FileTypeItems, doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = []model.StructureItem{}
	}
	if doc.Blocks == nil {
		doc.Blocks = []model.Block{}
	}
	return doc, nil
}

// Update loads the document, applies fn and writes the result atomically,
// keeping the previous file as a .bak. Writers in this process are
// serialised; a writer in another process makes Update fail with ErrLocked.
// Nothing is written when fn returns an error.
func (s *Store) Update(fn func(doc *Document) error) error {
	return s.locks.WithLock(s.path, func() error {
		fl := lock.NewFileLock(s.path + ".lock")
		if err := fl.TryLock(); err != nil {
			return err
		}
		defer func() {
			if err := fl.Unlock(); err != nil {
				s.logger.Warn("release item lock", zap.Error(err))
			}
		}()

		doc, err := s.Load()
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		doc.SchemaHeader = atomicyaml.NewHeader(atomicyaml.FileTypeItems)
		if err := atomicyaml.AtomicWrite(s.path, doc); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(s.path), err)
		}

		s.logger.Debug("item file written", zap.String("file", s.path), zap.Int("items", len(doc.Items)))
		if s.bus != nil {
			s.bus.Publish(events.EventItemsWritten, map[string]any{"path": s.path, "items": len(doc.Items)})
		}
		return nil
	})
}
