package setup

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/msageha/structengine/internal/config"
	"github.com/msageha/structengine/internal/store"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
)

func TestRun_CreatesWorkspace(t *testing.T) {
	projectDir := t.TempDir()

	base, err := Run(projectDir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if base != filepath.Join(projectDir, config.WorkspaceDir) {
		t.Errorf("base = %s", base)
	}

	for _, d := range []string{"rules.d", "quarantine"} {
		info, err := os.Stat(filepath.Join(base, d))
		if err != nil {
			t.Errorf("directory %s does not exist: %v", d, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
	}

	for _, f := range append(Files, "rules.d/00-defaults.yaml") {
		info, err := os.Stat(filepath.Join(base, f))
		if err != nil {
			t.Errorf("file %s does not exist: %v", f, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("file %s is empty", f)
		}
	}
}

func TestRun_SchemaHeaders(t *testing.T) {
	base, err := Run(t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tests := []struct {
		file     string
		fileType string
	}{
		{"ruleset.yaml", atomicyaml.FileTypeRuleset},
		{"templates.yaml", atomicyaml.FileTypeTemplates},
		{"items.yaml", atomicyaml.FileTypeItems},
		{"rules.d/00-defaults.yaml", atomicyaml.FileTypeRules},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			if err := atomicyaml.ValidateSchemaHeader(filepath.Join(base, tt.file), tt.fileType); err != nil {
				t.Errorf("schema header: %v", err)
			}
		})
	}
}

func TestRun_ItemsFileLoads(t *testing.T) {
	base, err := Run(t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc, err := store.New(filepath.Join(base, "items.yaml"), nil, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Items) != 0 {
		t.Errorf("expected no items, got %d", len(doc.Items))
	}
	if len(doc.Blocks) != 2 {
		t.Errorf("expected 2 default blocks, got %d", len(doc.Blocks))
	}
}

func TestRun_ConfigIsValid(t *testing.T) {
	base, err := Run(t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, config.FileName))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	for _, section := range []string{"paths", "logging", "parser", "watch"} {
		if _, ok := raw[section]; !ok {
			t.Errorf("config missing section %s", section)
		}
	}
}

func TestRun_RefusesExistingWorkspace(t *testing.T) {
	projectDir := t.TempDir()
	if _, err := Run(projectDir); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := Run(projectDir); err == nil {
		t.Fatal("expected error for existing workspace")
	}
}
