package yaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	yamlv3 "gopkg.in/yaml.v3"
)

func fixedRecovery(dir string) Recovery {
	return Recovery{
		Dir: dir,
		Now: func() time.Time { return time.Date(2024, 3, 8, 21, 30, 0, 0, time.UTC) },
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestQuarantine(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "items.yaml")
	writeFile(t, filePath, "items: [\n")

	target, err := fixedRecovery(dir).Quarantine(filePath)
	if err != nil {
		t.Fatalf("Quarantine failed: %v", err)
	}

	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Error("original file should be removed after quarantine")
	}
	want := filepath.Join(dir, "quarantine", "items.yaml.20240308T213000.corrupt")
	if target != want {
		t.Errorf("target = %s, want %s", target, want)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}
}

func TestRestoreFromBackup(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "items.yaml")
	writeFile(t, filePath+".bak", "schema_version: 1\nfile_type: items\nitems: []\n")

	if err := fixedRecovery(dir).RestoreFromBackup(filePath); err != nil {
		t.Fatalf("RestoreFromBackup failed: %v", err)
	}

	if err := ValidateSchemaHeader(filePath, FileTypeItems); err != nil {
		t.Errorf("restored file invalid: %v", err)
	}
}

func TestRestoreFromBackup_NoBackup(t *testing.T) {
	dir := t.TempDir()
	err := fixedRecovery(dir).RestoreFromBackup(filepath.Join(dir, "items.yaml"))
	if err == nil || !strings.Contains(err.Error(), "no backup file") {
		t.Errorf("expected missing backup error, got %v", err)
	}
}

func TestRestoreFromBackup_CorruptBackup(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "items.yaml")
	writeFile(t, filePath+".bak", ":\n  broken: [\n")

	if err := fixedRecovery(dir).RestoreFromBackup(filePath); err == nil {
		t.Error("expected error when backup is also corrupted")
	}
}

func TestGenerateSkeleton(t *testing.T) {
	tests := []struct {
		fileType    string
		expectField string
	}{
		{FileTypeItems, "items"},
		{FileTypeItems, "blocks"},
		{FileTypeTemplates, "rows"},
		{FileTypeRuleset, "ruleset"},
		{FileTypeRules, "rules"},
		{FileTypeSegments, "segments"},
	}

	for _, tt := range tests {
		t.Run(tt.fileType+"/"+tt.expectField, func(t *testing.T) {
			dir := t.TempDir()
			filePath := filepath.Join(dir, "doc.yaml")

			if err := fixedRecovery(dir).GenerateSkeleton(filePath, tt.fileType); err != nil {
				t.Fatalf("GenerateSkeleton failed: %v", err)
			}

			content, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if err := ValidateSchemaHeaderFromBytes(content, tt.fileType); err != nil {
				t.Fatalf("skeleton header invalid: %v", err)
			}
			var data map[string]any
			if err := yamlv3.Unmarshal(content, &data); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if _, ok := data[tt.expectField]; !ok {
				t.Errorf("missing expected field: %s", tt.expectField)
			}
		})
	}
}

func TestRecover_WithBackup(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "templates.yaml")
	writeFile(t, filePath, "rows: [\n")
	writeFile(t, filePath+".bak", "schema_version: 1\nfile_type: templates\nrows:\n  - task: Call family\n")

	if err := fixedRecovery(dir).Recover(filePath, FileTypeTemplates); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(content), "Call family") {
		t.Errorf("expected backup content, got %q", content)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "quarantine"))
	if len(entries) != 1 {
		t.Errorf("expected 1 quarantined file, got %d", len(entries))
	}
}

func TestRecover_WithoutBackup(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "items.yaml")
	writeFile(t, filePath, "items: [\n")

	if err := fixedRecovery(dir).Recover(filePath, FileTypeItems); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	var data map[string]any
	content, _ := os.ReadFile(filePath)
	if err := yamlv3.Unmarshal(content, &data); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if data["file_type"] != FileTypeItems {
		t.Errorf("expected items skeleton, got %v", data["file_type"])
	}
}
