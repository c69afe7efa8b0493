// Package setup scaffolds a structengine workspace.
package setup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/msageha/structengine/internal/catalog"
	"github.com/msageha/structengine/internal/config"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
	"github.com/msageha/structengine/templates"
)

// Files are the workspace files copied from the embedded defaults, in
// write order.
var Files = []string{
	config.FileName,
	"ruleset.yaml",
	"templates.yaml",
	"items.yaml",
}

// Run creates projectDir/.structure with the default configuration,
// ruleset, templates, rule files and an item file, and returns the
// workspace path. It refuses to touch an existing workspace.
func Run(projectDir string) (string, error) {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}

	base := filepath.Join(absDir, config.WorkspaceDir)
	if _, err := os.Stat(base); err == nil {
		return "", fmt.Errorf("%s already exists", base)
	}

	for _, d := range []string{"", "rules.d", "quarantine"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0755); err != nil {
			return "", fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	for _, name := range Files {
		if err := copyTemplateFile(name, filepath.Join(base, name)); err != nil {
			return "", err
		}
	}

	ruleFiles, err := fs.Glob(templates.FS, "rules.d/*.yaml")
	if err != nil {
		return "", fmt.Errorf("list rule templates: %w", err)
	}
	for _, name := range ruleFiles {
		if err := copyTemplateFile(name, filepath.Join(base, name)); err != nil {
			return "", err
		}
	}

	// The defaults must load cleanly with the configuration just written.
	cfg, err := config.Load(filepath.Join(base, config.FileName))
	if err != nil {
		return "", fmt.Errorf("verify config: %w", err)
	}
	paths := cfg.Resolve(base)
	if _, err := catalog.Load(catalog.Paths{Ruleset: paths.Ruleset, Templates: paths.Templates, RulesDir: paths.RulesDir}); err != nil {
		return "", fmt.Errorf("verify catalog: %w", err)
	}

	return base, nil
}

func copyTemplateFile(name, dst string) error {
	data, err := fs.ReadFile(templates.FS, name)
	if err != nil {
		return fmt.Errorf("read template %s: %w", name, err)
	}
	if err := atomicyaml.AtomicWriteRaw(dst, data); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
