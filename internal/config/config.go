// Package config loads the application configuration from the workspace
// config.yaml, STRUCTENGINE_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/msageha/structengine/internal/parser"
)

const (
	// WorkspaceDir is the directory `structengine init` creates.
	WorkspaceDir = ".structure"
	FileName     = "config.yaml"
	EnvPrefix    = "STRUCTENGINE"
)

type Config struct {
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Parser  parser.Config `mapstructure:"parser" yaml:"parser"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
}

// PathsConfig names the workspace documents. Relative paths are resolved
// against the workspace directory.
type PathsConfig struct {
	Ruleset   string `mapstructure:"ruleset" yaml:"ruleset"`
	Templates string `mapstructure:"templates" yaml:"templates"`
	Items     string `mapstructure:"items" yaml:"items"`
	RulesDir  string `mapstructure:"rules_dir" yaml:"rules_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Ruleset:   "ruleset.yaml",
			Templates: "templates.yaml",
			Items:     "items.yaml",
			RulesDir:  "rules.d",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Parser:  parser.DefaultConfig(),
		Watch:   WatchConfig{DebounceMs: 200},
	}
}

// Load reads path on top of the defaults and applies environment
// overrides such as STRUCTENGINE_LOGGING_LEVEL. An empty path or a missing
// file yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("paths.ruleset", d.Paths.Ruleset)
	v.SetDefault("paths.templates", d.Paths.Templates)
	v.SetDefault("paths.items", d.Paths.Items)
	v.SetDefault("paths.rules_dir", d.Paths.RulesDir)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("parser.contact_verbs", d.Parser.ContactVerbs)
	v.SetDefault("parser.prepositions", d.Parser.Prepositions)
	v.SetDefault("parser.word_weights", d.Parser.WordWeights)
	v.SetDefault("parser.matcher_threshold", d.Parser.MatcherThreshold)
	v.SetDefault("parser.roll_forward", true)
	v.SetDefault("parser.default_category", d.Parser.DefaultCategoryID)
	v.SetDefault("parser.default_priority", d.Parser.DefaultPriority)
	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMs)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Paths.Ruleset == "" {
		errs = append(errs, errors.New("paths.ruleset: must not be empty"))
	}
	if c.Paths.Templates == "" {
		errs = append(errs, errors.New("paths.templates: must not be empty"))
	}
	if c.Paths.Items == "" {
		errs = append(errs, errors.New("paths.items: must not be empty"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format: must be json or console, got %q", c.Logging.Format))
	}
	if c.Parser.MatcherThreshold < 0 {
		errs = append(errs, fmt.Errorf("parser.matcher_threshold: must be >= 0, got %d", c.Parser.MatcherThreshold))
	}
	if c.Watch.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms: must be >= 0, got %d", c.Watch.DebounceMs))
	}
	return errors.Join(errs...)
}

// Resolved holds absolute document paths for one workspace.
type Resolved struct {
	Workspace string
	Ruleset   string
	Templates string
	Items     string
	RulesDir  string
}

// Resolve anchors relative paths at workspace. An empty RulesDir stays
// empty.
func (c *Config) Resolve(workspace string) Resolved {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(workspace, p)
	}
	return Resolved{
		Workspace: workspace,
		Ruleset:   abs(c.Paths.Ruleset),
		Templates: abs(c.Paths.Templates),
		Items:     abs(c.Paths.Items),
		RulesDir:  abs(c.Paths.RulesDir),
	}
}
