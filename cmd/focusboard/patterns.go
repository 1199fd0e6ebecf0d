package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/odvcencio/focusboard/pkg/skillbook"
	"github.com/odvcencio/focusboard/pkg/terminal"
)

// runPatternsCommand prints what the skillbook has learned about the
// user's schedule so far.
func runPatternsCommand(args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	limit := fs.Int("limit", 3, "patterns to show per category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfigFn()
	if err != nil {
		return withExitCode(err, exitCodeConfig)
	}

	rt, err := initRuntimeFn(cfg, sessionFlag)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.book.TopPatterns(*limit)
	if err != nil {
		return err
	}
	counts, err := rt.book.IntentCounts()
	if err != nil {
		return err
	}

	out := newTerminal()
	out.Header("Learned Patterns")

	if len(report.Days) == 0 && len(report.TimeRanges) == 0 && len(report.Titles) == 0 {
		out.Info("Nothing learned yet. Patterns appear once classes are added.")
	} else {
		printPatternGroup(out, "Class days", report.Days)
		printPatternGroup(out, "Time ranges", report.TimeRanges)
		printPatternGroup(out, "Subjects", report.Titles)
	}

	if len(counts) > 0 {
		out.Newline()
		out.Bold("Interactions")
		out.List(formatIntentCounts(counts))
	}
	return nil
}

func printPatternGroup(out *terminal.Writer, label string, patterns []skillbook.Pattern) {
	if len(patterns) == 0 {
		return
	}
	out.Bold(label)
	items := make([]string, 0, len(patterns))
	for _, p := range patterns {
		items = append(items, fmt.Sprintf("%s (%d)", p.Value, p.Count))
	}
	out.List(items)
}

func formatIntentCounts(counts map[string]int) []string {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	items := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		items = append(items, fmt.Sprintf("%s: %d", kind, counts[kind]))
	}
	return items
}
