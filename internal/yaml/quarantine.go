package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	yamlv3 "gopkg.in/yaml.v3"
)

// Recovery moves unreadable workspace files aside and puts a usable file
// back in their place.
type Recovery struct {
	// Dir is the workspace directory; quarantined files go to Dir/quarantine.
	Dir    string
	Logger *zap.Logger
	Now    func() time.Time
}

func (r Recovery) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r Recovery) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Quarantine moves filePath to Dir/quarantine with a timestamped name.
func (r Recovery) Quarantine(filePath string) (string, error) {
	quarantineDir := filepath.Join(r.Dir, "quarantine")
	if err := os.MkdirAll(quarantineDir, 0755); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.corrupt", filepath.Base(filePath), r.now().Format("20060102T150405"))
	target := filepath.Join(quarantineDir, name)
	if err := os.Rename(filePath, target); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}

	r.logger().Warn("quarantined corrupted file", zap.String("file", filePath), zap.String("quarantine", target))
	return target, nil
}

// RestoreFromBackup copies filePath.bak over filePath when the backup
// parses.
func (r Recovery) RestoreFromBackup(filePath string) error {
	bakPath := filePath + ".bak"
	content, err := os.ReadFile(bakPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("no backup file: %s", bakPath)
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err := validateYAML(content); err != nil {
		return fmt.Errorf("backup YAML is also corrupted: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}

	r.logger().Info("restored from backup", zap.String("backup", bakPath), zap.String("file", filePath))
	return nil
}

// GenerateSkeleton writes an empty document of fileType to filePath.
func (r Recovery) GenerateSkeleton(filePath, fileType string) error {
	content, err := yamlv3.Marshal(Skeleton(fileType))
	if err != nil {
		return fmt.Errorf("marshal skeleton: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("write skeleton: %w", err)
	}

	r.logger().Info("generated skeleton", zap.String("file", filePath), zap.String("file_type", fileType))
	return nil
}

// Recover quarantines filePath, then restores it from its backup or, when
// that fails, from an empty skeleton.
func (r Recovery) Recover(filePath, fileType string) error {
	if _, err := r.Quarantine(filePath); err != nil {
		return fmt.Errorf("quarantine failed: %w", err)
	}

	err := r.RestoreFromBackup(filePath)
	if err == nil {
		return nil
	}
	r.logger().Warn("backup restore failed, writing skeleton", zap.String("file", filePath), zap.Error(err))

	if err := r.GenerateSkeleton(filePath, fileType); err != nil {
		return fmt.Errorf("skeleton generation failed: %w", err)
	}
	return nil
}

// Skeleton returns the minimal valid document for fileType.
func Skeleton(fileType string) map[string]any {
	doc := map[string]any{
		"schema_version": CurrentSchemaVersion,
		"file_type":      fileType,
	}
	switch fileType {
	case FileTypeItems:
		doc["items"] = []any{}
		doc["blocks"] = []any{}
	case FileTypeTemplates:
		doc["rows"] = []any{}
	case FileTypeRuleset:
		doc["ruleset"] = map[string]any{}
	case FileTypeRules:
		doc["rules"] = []any{}
	case FileTypeSegments:
		doc["segments"] = []any{}
	}
	return doc
}
