// Package status reports on the health of a workspace: which documents are
// present and valid, how many entries they hold, and whether recovery or a
// writer has left traces behind.
package status

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/msageha/structengine/internal/catalog"
	"github.com/msageha/structengine/internal/config"
	"github.com/msageha/structengine/internal/rules"
	"github.com/msageha/structengine/internal/store"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
)

type WorkspaceStatus struct {
	Workspace   string           `json:"workspace"`
	Documents   []DocumentStatus `json:"documents"`
	Quarantined int              `json:"quarantined"`
	// ItemLock is set while a lock file for the item file exists.
	ItemLock bool `json:"itemLock"`
}

type DocumentStatus struct {
	Name     string `json:"name"`
	FileType string `json:"fileType"`
	Present  bool   `json:"present"`
	Valid    bool   `json:"valid"`
	Entries  int    `json:"entries"`
	Error    string `json:"error,omitempty"`
}

// Healthy reports whether every present document is valid.
func (s WorkspaceStatus) Healthy() bool {
	for _, d := range s.Documents {
		if d.Present && !d.Valid {
			return false
		}
	}
	return true
}

// Collect inspects the workspace without modifying it.
func Collect(paths config.Resolved) WorkspaceStatus {
	s := WorkspaceStatus{Workspace: paths.Workspace}

	s.Documents = append(s.Documents, inspect(paths.Ruleset, atomicyaml.FileTypeRuleset, func() (int, error) {
		rs, err := catalog.LoadRuleset(paths.Ruleset, "")
		return len(rs.Rules), err
	}))
	s.Documents = append(s.Documents, inspect(paths.Templates, atomicyaml.FileTypeTemplates, func() (int, error) {
		rows, err := catalog.LoadTemplates(paths.Templates)
		return len(rows), err
	}))
	s.Documents = append(s.Documents, inspect(paths.Items, atomicyaml.FileTypeItems, func() (int, error) {
		doc := store.NewDocument()
		err := atomicyaml.ReadDocument(paths.Items, atomicyaml.FileTypeItems, doc)
		return len(doc.Items), err
	}))
	s.Documents = append(s.Documents, ruleFiles(paths.RulesDir)...)

	if entries, err := os.ReadDir(filepath.Join(paths.Workspace, "quarantine")); err == nil {
		s.Quarantined = len(entries)
	}
	if _, err := os.Stat(paths.Items + ".lock"); err == nil {
		s.ItemLock = true
	}
	return s
}

func inspect(path, fileType string, load func() (int, error)) DocumentStatus {
	d := DocumentStatus{Name: filepath.Base(path), FileType: fileType}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.Error = err.Error()
		}
		return d
	}
	d.Present = true

	n, err := load()
	if err != nil {
		d.Error = err.Error()
		return d
	}
	d.Valid = true
	d.Entries = n
	return d
}

func ruleFiles(dir string) []DocumentStatus {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]DocumentStatus, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		d := inspect(path, atomicyaml.FileTypeRules, func() (int, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return 0, err
			}
			doc, err := rules.Decode(data)
			if err != nil {
				return 0, err
			}
			return len(doc.Rules), nil
		})
		d.Name = filepath.Join(filepath.Base(dir), name)
		out = append(out, d)
	}
	return out
}

// Print writes s as a table.
func Print(w io.Writer, s WorkspaceStatus) {
	fmt.Fprintf(w, "Workspace: %s\n\n", s.Workspace)
	fmt.Fprintf(w, "  %-24s  %-10s  %-8s  %7s\n", "DOCUMENT", "TYPE", "STATE", "ENTRIES")
	for _, d := range s.Documents {
		state := "ok"
		switch {
		case !d.Present:
			state = "missing"
		case !d.Valid:
			state = "invalid"
		}
		fmt.Fprintf(w, "  %-24s  %-10s  %-8s  %7d\n", d.Name, d.FileType, state, d.Entries)
		if d.Error != "" {
			fmt.Fprintf(w, "    %s\n", d.Error)
		}
	}

	if s.Quarantined > 0 {
		fmt.Fprintf(w, "\nQuarantined files: %d\n", s.Quarantined)
	}
	if s.ItemLock {
		fmt.Fprintln(w, "\nItem file is locked by a writer")
	}
}
