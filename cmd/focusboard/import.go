package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/intent"
)

// maxImportBytes bounds how much of a schedule file is read.
const maxImportBytes = 1 << 20

// importedClass mirrors one row of an extracted schedule file. Both the
// extractor's short keys (start/end) and the API's long keys
// (start_time/end_time) are accepted.
type importedClass struct {
	Title     string   `json:"title"`
	Days      []string `json:"days"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

func (c importedClass) entry() intent.ClassEntry {
	start := c.Start
	if start == "" {
		start = c.StartTime
	}
	end := c.End
	if end == "" {
		end = c.EndTime
	}
	return intent.ClassEntry{
		Title:     c.Title,
		Days:      c.Days,
		StartTime: start,
		EndTime:   end,
	}
}

func runImportCommand(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "list the classes that would be added without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: focusboard import <file> [--dry-run]")
	}

	entries, err := readScheduleFile(fs.Arg(0))
	if err != nil {
		return err
	}

	out := newTerminal()
	if *dryRun {
		if len(entries) == 0 {
			out.Info("No classes found in the file.")
			return nil
		}
		out.Info("Would add %d classes:", len(entries))
		items := make([]string, 0, len(entries))
		for _, e := range entries {
			items = append(items, fmt.Sprintf("%s: %s %s-%s",
				e.Title, strings.Join(e.Days, " "), e.StartTime, e.EndTime))
		}
		out.List(items)
		return nil
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

	message, err := rt.exec.Execute(context.Background(), intent.Execute{
		Intent: intent.Candidate{
			Kind:       intent.KindScheduleImport,
			Confidence: 1,
			Source:     intent.SourceDeterministic,
			Fields:     intent.Fields{Entries: entries},
		},
	})
	if err != nil {
		return err
	}
	_ = out.Markdown(message)
	return nil
}

func readScheduleFile(path string) ([]intent.ClassEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxImportBytes {
		return nil, fmt.Errorf("schedule file too large (max %d bytes)", maxImportBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScheduleData(data), nil
}

// parseScheduleData accepts the extractor's JSON output, either an
// object with a classes array or a bare array. Anything that isn't
// JSON is treated as routine text and scanned line by line.
func parseScheduleData(data []byte) []intent.ClassEntry {
	var wrapper struct {
		Classes []importedClass `json:"classes"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Classes) > 0 {
		return toEntries(wrapper.Classes)
	}

	var list []importedClass
	if err := json.Unmarshal(data, &list); err == nil {
		return toEntries(list)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		// JSON in an unrecognized shape; line scanning would only
		// misread it.
		return nil
	}
	return detector.ParseRoutine(trimmed)
}

func toEntries(classes []importedClass) []intent.ClassEntry {
	entries := make([]intent.ClassEntry, 0, len(classes))
	for _, c := range classes {
		entries = append(entries, c.entry())
	}
	return entries
}
