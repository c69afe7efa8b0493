package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/msageha/structengine/internal/catalog"
	"github.com/msageha/structengine/internal/events"
	"github.com/msageha/structengine/internal/model"
	"github.com/msageha/structengine/internal/setup"
	"github.com/msageha/structengine/internal/status"
	"github.com/msageha/structengine/internal/store"
	"github.com/msageha/structengine/internal/stream"
	atomicyaml "github.com/msageha/structengine/internal/yaml"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a .structure/ workspace with default files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			base, err := setup.Run(dir)
			if err != nil {
				return err
			}
			a.logger.Debug("workspace initialized", zap.String("dir", base))
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", base)
			return nil
		},
	}
}

func newCaptureCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "capture <phrase...>",
		Short: "Turn a typed phrase into a task candidate using the templates",
		Example: `  structengine capture call mom about dinner tomorrow
  structengine capture --date 2024-03-08 email sarah re budget friday`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseDate("date", date)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}

			rep := eng.Capture(strings.Join(args, " "), ref)
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, rep)
			}

			res := rep.Result
			if res.Candidate == nil {
				fmt.Fprintln(out, "nothing to capture")
				return nil
			}
			writeCandidate(out, *res.Candidate, eng.Snapshot().Ruleset.Scale())
			if res.Match != nil {
				fmt.Fprintf(out, "template:   %s (score %d)\n", res.Match.Task, res.Match.Score)
			} else {
				fmt.Fprintln(out, "template:   -")
			}
			if res.Phrase.Date.Ambiguity {
				fmt.Fprintln(out, "warning:    date is ambiguous (month/day order)")
			}
			if res.LowConfidence {
				fmt.Fprintln(out, "warning:    low confidence match")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}

func newTranscribeCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "transcribe [file|-]",
		Short: "Turn a transcript into task candidates",
		Long: `Reads transcript segments from a file or stdin. The input is either a
YAML/JSON list of segments ({text, isFinal, timestamp}), a segments document
(file_type: segments), or plain text with one sentence per line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseDate("date", date)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}
			rep := eng.Transcribe(decodeSegments(data), ref)

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, rep)
			}
			scale := eng.Snapshot().Ruleset.Scale()
			for i, c := range rep.Mapped.Candidates {
				tr := rep.Mapped.Traces[i]
				fmt.Fprintf(out, "[%d] %s\n", i+1, tr.Intent)
				writeCandidate(out, c, scale)
				if len(tr.MatchedRules) > 0 {
					fmt.Fprintf(out, "rules:      %s\n", strings.Join(tr.MatchedRules, ", "))
				}
				fmt.Fprintln(out)
			}
			if rep.Parse.Pending != "" {
				fmt.Fprintf(out, "pending: %s\n", rep.Parse.Pending)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}

type segmentsDocument struct {
	atomicyaml.SchemaHeader `yaml:",inline"`
	Segments                []stream.ParseSegment `yaml:"segments"`
}

// decodeSegments accepts a segment list, a segments document or plain
// text lines.
func decodeSegments(data []byte) []stream.ParseSegment {
	var list []stream.ParseSegment
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list
	}
	var doc segmentsDocument
	if err := atomicyaml.DecodeDocument(data, atomicyaml.FileTypeSegments, &doc); err == nil {
		return doc.Segments
	}

	// Each line is one sentence.
	var segs []stream.ParseSegment
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.ContainsAny(line[len(line)-1:], ".!?") {
			line += "."
		}
		segs = append(segs, stream.ParseSegment{Text: line, IsFinal: true})
	}
	return segs
}

func newDueCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the items due on a date with their time slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate("date", date)
			if err != nil {
				return err
			}
			eng, doc, err := a.engineAndItems()
			if err != nil {
				return err
			}

			due := eng.Due(doc.Items, day, doc.Blocks)
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, due)
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "TIME\tPRIORITY\tID\tTITLE")
			for _, s := range due {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", orDash(s.EffectiveTime), s.EffectivePriority, s.Item.ID, s.Item.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	return cmd
}

func newSortCmd(a *app) *cobra.Command {
	var date string
	var visibleOnly bool
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "List items by effective priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate("date", date)
			if err != nil {
				return err
			}
			eng, doc, err := a.engineAndItems()
			if err != nil {
				return err
			}

			ranked := eng.Sort(doc.Items, day)
			if visibleOnly {
				kept := ranked[:0]
				for _, r := range ranked {
					if r.Visible {
						kept = append(kept, r)
					}
				}
				ranked = kept
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, ranked)
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "PRIORITY\tDUE\tID\tTITLE")
			for _, r := range ranked {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.EffectivePriority, orDash(r.Item.DueDate), r.Item.ID, r.Item.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&visibleOnly, "visible", false, "only items visible in the week view")
	return cmd
}

func newOccurrencesCmd(a *app) *cobra.Command {
	var from string
	var count int
	cmd := &cobra.Command{
		Use:   "occurrences <item-id>",
		Short: "Expand an item's recurrence into upcoming dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			eng, doc, err := a.engineAndItems()
			if err != nil {
				return err
			}

			var item *model.StructureItem
			for i := range doc.Items {
				if doc.Items[i].ID == args[0] {
					item = &doc.Items[i]
					break
				}
			}
			if item == nil {
				return fmt.Errorf("item %q not found", args[0])
			}

			dates := eng.Occurrences(*item, start, count)
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, dates)
			}
			for _, d := range dates {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&count, "count", 5, "number of occurrences")
	return cmd
}

func newRollupCmd(a *app) *cobra.Command {
	var from, to, groupBy string
	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Count the items due in a date range by day, week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			eng, doc, err := a.engineAndItems()
			if err != nil {
				return err
			}

			rollups, err := eng.Rollup(doc.Items, start, end, model.GroupBy(groupBy))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, rollups)
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "PERIOD\tCOUNT")
			for _, r := range rollups {
				fmt.Fprintf(tw, "%s\t%d\n", r.Period, r.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "range end YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&groupBy, "group-by", string(model.GroupByDay), "day, week or month")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSignalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "List the distinct signals, blockers and opportunities of all items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, doc, err := a.engineAndItems()
			if err != nil {
				return err
			}
			sum := eng.Signals(doc.Items)
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, sum)
			}
			writeList(out, "signals", sum.Signals)
			writeList(out, "blockers", sum.Blockers)
			writeList(out, "opportunities", sum.Opportunities)
			return nil
		},
	}
}

func newCancelDayCmd(a *app) *cobra.Command {
	var date string
	var write bool
	cmd := &cobra.Command{
		Use:   "cancel-day",
		Short: "Apply the ruleset's cancel-day policy to the items due on a date",
		Long: `Shows the items that the cancel-day policy (cancelDayReset in the ruleset)
changes. With --write the item file is updated under a file lock; the
previous version is kept as items.yaml.bak.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate("date", date)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			st, err := a.store()
			if err != nil {
				return err
			}

			var result []model.StructureItem
			var changed int
			if write {
				err = st.Update(func(doc *store.Document) error {
					doc.Items, changed = eng.CancelDay(doc.Items, day)
					result = doc.Items
					return nil
				})
				if errors.Is(err, store.ErrLocked) {
					return fmt.Errorf("item file is being written by another process: %w", err)
				}
			} else {
				var doc *store.Document
				if doc, err = st.Load(); err == nil {
					result, changed = eng.CancelDay(doc.Items, day)
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, map[string]any{"changed": changed, "written": write, "items": result})
			}
			verb := "would change"
			if write {
				verb = "changed"
			}
			fmt.Fprintf(out, "%s %d item(s) (mode %s)\n", verb, changed, eng.Snapshot().Ruleset.CancelDayMode())
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&write, "write", false, "persist the result to the item file")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the workspace documents without changing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireWorkspace(); err != nil {
				return err
			}
			s := status.Collect(a.paths)

			out := cmd.OutOrStdout()
			if a.jsonOut {
				if err := writeJSON(out, s); err != nil {
					return err
				}
			} else {
				status.Print(out, s)
			}
			if !s.Healthy() {
				return errors.New("workspace has invalid documents")
			}
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the ruleset and templates whenever they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := func(e events.Event) {
				fmt.Fprintf(out, "%s %s %v\n", e.Timestamp.Format("15:04:05"), e.Type, e.Data)
			}
			for _, t := range []events.EventType{events.EventRulesetReloaded, events.EventTemplatesReloaded, events.EventReloadFailed} {
				a.bus.Subscribe(t, report)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := catalog.NewWatcher(a.catalogPaths(), eng, a.bus, a.logger, a.cfg.Watch.Debounce())
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Close()

			<-ctx.Done()
			a.logger.Info("watch stopped")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "structengine %s\n", version)
		},
	}
}
