package detector

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Leading conversational filler before a class name ("i have a", "add
// my", ...). Dropped only until the first real word.
var classFiller = map[string]bool{
	"i": true, "have": true, "a": true, "my": true,
	"add": true, "create": true, "new": true, "please": true,
}

// taskPrefixPattern strips the command-style openers off a task
// sentence. Applied repeatedly so "please add task" fully unwinds.
var taskPrefixPattern = regexp.MustCompile(`(?i)^(i have|i need to|i need|i should|i must|i want to|add|create|new|task|to do|to finish|please)\b\s*`)

// Date phrasing that belongs to the deadline, not the title.
var dateWordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(on|by|due)\s+\d{1,2}\s*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*`),
	regexp.MustCompile(`(?i)\b(on|by|due)\s+\d{1,2}[/-]\d{1,2}`),
	regexp.MustCompile(`(?i)\b(today|tomorrow)\b`),
	regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
}

var assignmentPattern = regexp.MustCompile(`(?i)\bassignment\b`)

var whitespaceRun = regexp.MustCompile(`\s+`)

const titleTrimCutset = " -:,.()"

// ClassTitle extracts the class name from natural language: the time
// range, day tokens, one-letter words, the words class/lecture, and
// leading filler are removed, and the remainder is title-cased. Falls
// back to "Class" when nothing survives.
func ClassTitle(text string) string {
	cleaned := timeRangePattern.ReplaceAllString(text, "")

	var words []string
	leading := true
	for _, w := range strings.Fields(cleaned) {
		if _, ok := NormalizeDay(w); ok {
			continue
		}
		lw := strings.Trim(strings.ToLower(w), titleTrimCutset)
		if utf8.RuneCountInString(lw) <= 1 {
			continue
		}
		if lw == "class" || lw == "lecture" {
			continue
		}
		if leading && classFiller[lw] {
			continue
		}
		leading = false
		words = append(words, w)
	}

	title := strings.Trim(strings.Join(words, " "), titleTrimCutset)
	if title == "" {
		return "Class"
	}
	return titleCase(title)
}

// TaskTitle cleans a task sentence down to its title: command openers
// and deadline phrasing are stripped, whitespace collapsed, and the
// words capitalized. An empty result is returned as-is so the caller
// can ask for a clearer title.
func TaskTitle(text string) string {
	title := strings.TrimSpace(text)

	for {
		next := strings.TrimSpace(taskPrefixPattern.ReplaceAllString(title, ""))
		if next == title {
			break
		}
		title = next
	}

	for _, p := range dateWordPatterns {
		title = p.ReplaceAllString(title, "")
	}
	title = assignmentPattern.ReplaceAllString(title, "")

	title = whitespaceRun.ReplaceAllString(title, " ")
	title = strings.Trim(title, ",.:;- ")
	if title == "" {
		return ""
	}
	return titleCase(title)
}

// titleCase capitalizes each word, lowering the remainder, English
// rules. A fresh caser per call: cases.Caser carries internal state.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
