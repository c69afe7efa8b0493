package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/msageha/structengine/internal/events"
	"github.com/msageha/structengine/internal/model"
)

// Target receives every successfully loaded catalog.
type Target interface {
	Install(rs model.Ruleset, rows []model.TaskTemplateRow)
}

// Watcher reloads the catalog when one of its files changes. A failed
// reload leaves the target untouched.
type Watcher struct {
	paths    Paths
	target   Target
	bus      *events.Bus
	logger   *zap.Logger
	debounce time.Duration

	group   singleflight.Group
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeMu sync.Mutex
}

func NewWatcher(paths Paths, target Target, bus *events.Bus, logger *zap.Logger, debounce time.Duration) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		paths:    cleanPaths(paths),
		target:   target,
		bus:      bus,
		logger:   logger,
		debounce: debounce,
	}
}

func cleanPaths(p Paths) Paths {
	clean := func(s string) string {
		if s == "" {
			return s
		}
		return filepath.Clean(s)
	}
	return Paths{Ruleset: clean(p.Ruleset), Templates: clean(p.Templates), RulesDir: clean(p.RulesDir)}
}

// Start watches the directories holding the catalog files and returns
// once the watch is in place. Files are replaced by rename, so directories
// are watched rather than the files themselves.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	dirs := map[string]bool{
		filepath.Dir(w.paths.Ruleset):   true,
		filepath.Dir(w.paths.Templates): true,
	}
	if w.paths.RulesDir != "" {
		dirs[w.paths.RulesDir] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			if dir == w.paths.RulesDir {
				w.logger.Debug("rules dir not watched", zap.String("dir", dir), zap.Error(err))
				continue
			}
			_ = fsw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)
	w.logger.Info("watching catalog",
		zap.String("ruleset", w.paths.Ruleset),
		zap.String("templates", w.paths.Templates),
		zap.String("rules_dir", w.paths.RulesDir))
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("catalog file changed", zap.String("op", event.Op.String()), zap.String("file", event.Name))
			if w.debounce <= 0 {
				_ = w.Reload()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = w.Reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(event.Name)
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".bak") {
		return false
	}
	if name == w.paths.Ruleset || name == w.paths.Templates {
		return true
	}
	return w.paths.RulesDir != "" && filepath.Dir(name) == w.paths.RulesDir && isYAML(base)
}

// Reload loads the catalog and installs it on the target. Concurrent calls
// share one load.
func (w *Watcher) Reload() error {
	_, err, _ := w.group.Do("reload", func() (any, error) {
		cat, err := Load(w.paths)
		if err != nil {
			w.logger.Warn("catalog reload failed, keeping previous snapshot", zap.Error(err))
			w.publish(events.EventReloadFailed, map[string]any{"error": err.Error()})
			return nil, err
		}

		w.target.Install(cat.Ruleset, cat.Templates)
		w.logger.Info("catalog reloaded",
			zap.Int("rules", len(cat.Ruleset.Rules)),
			zap.Int("templates", len(cat.Templates)))
		w.publish(events.EventRulesetReloaded, map[string]any{"path": w.paths.Ruleset, "rules": len(cat.Ruleset.Rules)})
		w.publish(events.EventTemplatesReloaded, map[string]any{"path": w.paths.Templates, "rows": len(cat.Templates)})
		return nil, nil
	})
	return err
}

func (w *Watcher) publish(t events.EventType, data map[string]any) {
	if w.bus != nil {
		w.bus.Publish(t, data)
	}
}

// Close stops the watch loop and waits for it to exit. It is safe to call
// more than once.
func (w *Watcher) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if w.fsw == nil {
		return nil
	}
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.fsw = nil
	return err
}
