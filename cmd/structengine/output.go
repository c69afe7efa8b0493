package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/msageha/structengine/internal/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func describeRecurrence(rb *model.RecurrenceBlock) string {
	switch p := rb.Pattern().(type) {
	case model.Weekly:
		return "weekly " + p.Days.String()
	case model.Off:
		return "-"
	default:
		return string(p.Kind())
	}
}

func writeCandidate(w io.Writer, c model.StructureItem, scale model.Scale) {
	fmt.Fprintf(w, "title:      %s\n", c.Title)
	fmt.Fprintf(w, "category:   %s\n", orDash(c.CategoryID))
	fmt.Fprintf(w, "priority:   %d\n", c.PriorityOr(scale.Default))
	fmt.Fprintf(w, "due:        %s\n", orDash(c.DueDate))
	fmt.Fprintf(w, "recurrence: %s\n", describeRecurrence(c.Recurrence))
}

func writeList(w io.Writer, label string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(w, "%s: -\n", label)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, strings.Join(values, ", "))
}
