package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/msageha/structengine/internal/catalog"
	"github.com/msageha/structengine/internal/config"
	"github.com/msageha/structengine/internal/dateutil"
	"github.com/msageha/structengine/internal/engine"
	"github.com/msageha/structengine/internal/events"
	"github.com/msageha/structengine/internal/logging"
	"github.com/msageha/structengine/internal/store"
)

// app holds the global flags and what PersistentPreRunE derives from them.
type app struct {
	configPath string
	workspace  string
	verbose    bool
	logFormat  string
	jsonOut    bool

	cfg    *config.Config
	paths  config.Resolved
	logger *zap.Logger
	bus    *events.Bus
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "structengine",
		Short: "Turn captured phrases and transcripts into structured tasks",
		Long: `structengine resolves due dates, recurrence and effective priority for the
tasks in a workspace, and turns typed phrases or transcripts into task
candidates using the workspace ruleset and templates.

Run 'structengine init' to create a .structure/ workspace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.bus != nil {
				a.bus.Close()
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default <workspace>/config.yaml)")
	pf.StringVarP(&a.workspace, "workspace", "w", "", "workspace directory (default: nearest .structure/)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: console or json (overrides config)")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newInitCmd(a),
		newCaptureCmd(a),
		newTranscribeCmd(a),
		newDueCmd(a),
		newSortCmd(a),
		newOccurrencesCmd(a),
		newRollupCmd(a),
		newSignalsCmd(a),
		newCancelDayCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves the workspace, loads the configuration and builds the
// logger. A missing workspace is not an error here; commands that need one
// call requireWorkspace.
func (a *app) setup(cmd *cobra.Command) error {
	if a.workspace == "" {
		a.workspace = findWorkspaceDir()
	}
	if a.workspace != "" {
		abs, err := filepath.Abs(a.workspace)
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
		a.workspace = abs
	}

	cfgPath := a.configPath
	if cfgPath == "" && a.workspace != "" {
		cfgPath = filepath.Join(a.workspace, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.paths = cfg.Resolve(a.workspace)

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	format := cfg.Logging.Format
	if a.logFormat != "" {
		format = a.logFormat
	}
	a.logger = logging.New(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()})
	a.bus = events.NewBus(0, a.logger)
	return nil
}

func (a *app) requireWorkspace() error {
	if a.workspace == "" {
		return fmt.Errorf("%s/ directory not found. Run 'structengine init' first", config.WorkspaceDir)
	}
	if info, err := os.Stat(a.workspace); err != nil || !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", a.workspace)
	}
	return nil
}

func (a *app) catalogPaths() catalog.Paths {
	return catalog.Paths{Ruleset: a.paths.Ruleset, Templates: a.paths.Templates, RulesDir: a.paths.RulesDir}
}

// engine loads the catalog and returns an engine over it.
func (a *app) engine() (*engine.Engine, error) {
	if err := a.requireWorkspace(); err != nil {
		return nil, err
	}
	cat, err := catalog.Load(a.catalogPaths())
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Snapshot{
		Ruleset:   cat.Ruleset,
		Templates: cat.Templates,
		Parser:    a.cfg.Parser,
	}, engine.WithLogger(a.logger)), nil
}

func (a *app) store() (*store.Store, error) {
	if err := a.requireWorkspace(); err != nil {
		return nil, err
	}
	return store.New(a.paths.Items, a.bus, a.logger), nil
}

// findWorkspaceDir searches for .structure/ in the current directory and
// its ancestors.
func findWorkspaceDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, config.WorkspaceDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// parseDate parses a --date style flag; empty means today.
func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return dateutil.Day(time.Now()), nil
	}
	d, ok := dateutil.ParseISO(value)
	if !ok {
		return time.Time{}, fmt.Errorf("--%s: invalid date %q (want YYYY-MM-DD)", flag, value)
	}
	return d, nil
}

// engineAndItems loads the catalog and the item file.
func (a *app) engineAndItems() (*engine.Engine, *store.Document, error) {
	eng, err := a.engine()
	if err != nil {
		return nil, nil, err
	}
	st, err := a.store()
	if err != nil {
		return nil, nil, err
	}
	doc, err := st.Load()
	if err != nil {
		return nil, nil, err
	}
	return eng, doc, nil
}
