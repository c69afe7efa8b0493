package yaml

import (
	"errors"
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

const CurrentSchemaVersion = 1

// File types of the workspace documents.
const (
	FileTypeRuleset   = "ruleset"
	FileTypeTemplates = "templates"
	FileTypeItems     = "items"
	FileTypeRules     = "rules"
	FileTypeSegments  = "segments"
)

var validFileTypes = map[string]bool{
	FileTypeRuleset:   true,
	FileTypeTemplates: true,
	FileTypeItems:     true,
	FileTypeRules:     true,
	FileTypeSegments:  true,
}

// ErrSchema wraps every header validation failure.
var ErrSchema = errors.New("invalid schema header")

// SchemaHeader is embedded inline at the top of every workspace document.
type SchemaHeader struct {
	SchemaVersion int    `yaml:"schema_version"`
	FileType      string `yaml:"file_type"`
}

// NewHeader returns a current header for fileType.
func NewHeader(fileType string) SchemaHeader {
	return SchemaHeader{SchemaVersion: CurrentSchemaVersion, FileType: fileType}
}

func ValidateSchemaHeader(path string, expectedFileType string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return ValidateSchemaHeaderFromBytes(content, expectedFileType)
}

func ValidateSchemaHeaderFromBytes(content []byte, expectedFileType string) error {
	var header SchemaHeader
	if err := yamlv3.Unmarshal(content, &header); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if header.SchemaVersion < 1 {
		return fmt.Errorf("%w: schema_version %d (must be >= 1)", ErrSchema, header.SchemaVersion)
	}
	if header.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("%w: unsupported schema_version %d (max supported: %d)", ErrSchema, header.SchemaVersion, CurrentSchemaVersion)
	}
	if header.FileType == "" {
		return fmt.Errorf("%w: missing file_type", ErrSchema)
	}
	if !validFileTypes[header.FileType] {
		return fmt.Errorf("%w: unknown file_type %q", ErrSchema, header.FileType)
	}
	if expectedFileType != "" && header.FileType != expectedFileType {
		return fmt.Errorf("%w: file_type mismatch: got %q, expected %q", ErrSchema, header.FileType, expectedFileType)
	}

	return nil
}
