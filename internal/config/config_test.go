package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/structengine/internal/parser"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Paths, cfg.Paths)
	assert.Equal(t, def.Logging, cfg.Logging)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce())
	assert.Equal(t, parser.DefaultMatcherThreshold, cfg.Parser.MatcherThreshold)
	assert.Equal(t, def.Parser.ContactVerbs, cfg.Parser.ContactVerbs)
	require.NotNil(t, cfg.Parser.RollForward)
	assert.True(t, *cfg.Parser.RollForward)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ruleset.yaml", cfg.Paths.Ruleset)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  items: data/items.yaml
logging:
  level: debug
  format: json
parser:
  matcher_threshold: 4
  roll_forward: false
  word_weights:
    dentist: 3
watch:
  debounce_ms: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/items.yaml", cfg.Paths.Items)
	assert.Equal(t, "ruleset.yaml", cfg.Paths.Ruleset)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Parser.MatcherThreshold)
	require.NotNil(t, cfg.Parser.RollForward)
	assert.False(t, *cfg.Parser.RollForward)
	assert.Equal(t, 3, cfg.Parser.WordWeights["dentist"])
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STRUCTENGINE_LOGGING_LEVEL", "error")
	t.Setenv("STRUCTENGINE_WATCH_DEBOUNCE_MS", "10")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Watch.DebounceMs)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "logging: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{"defaults", func(*Config) {}, nil},
		{
			"bad format and threshold",
			func(c *Config) {
				c.Logging.Format = "xml"
				c.Parser.MatcherThreshold = -1
			},
			[]string{"logging.format", "parser.matcher_threshold"},
		},
		{
			"empty paths",
			func(c *Config) {
				c.Paths.Ruleset = ""
				c.Paths.Items = ""
			},
			[]string{"paths.ruleset", "paths.items"},
		},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -5 }, []string{"watch.debounce_ms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.Paths.Templates = "/shared/templates.yaml"

	r := cfg.Resolve("/home/u/.structure")
	assert.Equal(t, "/home/u/.structure/ruleset.yaml", r.Ruleset)
	assert.Equal(t, "/shared/templates.yaml", r.Templates)
	assert.Equal(t, "/home/u/.structure/items.yaml", r.Items)
	assert.Equal(t, "/home/u/.structure/rules.d", r.RulesDir)

	cfg.Paths.RulesDir = ""
	assert.Empty(t, cfg.Resolve("/w").RulesDir)
}
