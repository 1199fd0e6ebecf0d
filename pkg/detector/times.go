package detector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeRangePattern matches "10-11", "10:00-11:30", "8am-9pm",
// "08.00 - 09.00", and "10 to 11".
var timeRangePattern = regexp.MustCompile(`(?i)(\d{1,2}(?:[:.]\d{2})?(?:\s*[ap]m)?)\s*(?:[-–]|to)\s*(\d{1,2}(?:[:.]\d{2})?(?:\s*[ap]m)?)`)

// dayPattern matches any short or full weekday name as a whole word.
var dayPattern = regexp.MustCompile(`\b(mon|tue|wed|thu|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

var dayCodes = map[string]string{
	"mon": "mon", "monday": "mon",
	"tue": "tue", "tuesday": "tue",
	"wed": "wed", "wednesday": "wed",
	"thu": "thu", "thursday": "thu",
	"fri": "fri", "friday": "fri",
	"sat": "sat", "saturday": "sat",
	"sun": "sun", "sunday": "sun",
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

var nonTimeRunes = regexp.MustCompile(`[^\d:]`)

// ExtractTimeRange finds the first time range in text and returns both
// ends normalized to HH:MM. Empty strings when no range is present.
func ExtractTimeRange(text string) (start, end string) {
	m := timeRangePattern.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	return NormalizeTime(m[1]), NormalizeTime(m[2])
}

// NormalizeTime canonicalizes a single clock reading to zero-padded
// 24-hour HH:MM: "8" becomes "08:00", "9pm" becomes "21:00", "08.30"
// becomes "08:30". Input that survives cleaning but still does not
// split into two integers is returned cleaned as-is; downstream
// validation rejects it. Already-normalized values pass through
// unchanged.
func NormalizeTime(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", ":")
	isPM := strings.Contains(s, "pm")
	isAM := strings.Contains(s, "am")

	cleaned := nonTimeRunes.ReplaceAllString(s, "")
	if !strings.Contains(cleaned, ":") {
		cleaned += ":00"
	}

	parts := strings.SplitN(cleaned, ":", 2)
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil {
		return cleaned
	}

	if isPM && h < 12 {
		h += 12
	}
	if isAM && h == 12 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ValidTime reports whether s parses as a 24-hour HH:MM clock reading.
func ValidTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// NormalizeDay maps a single token to its 3-letter day code.
func NormalizeDay(token string) (string, bool) {
	t := strings.Trim(strings.ToLower(token), ".,:()")
	code, ok := dayCodes[t]
	return code, ok
}

// ExtractDays returns the day codes mentioned in text, deduplicated in
// first-seen order.
func ExtractDays(text string) []string {
	var days []string
	seen := map[string]bool{}
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		code, ok := dayCodes[word]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		days = append(days, code)
	}
	return days
}

// NormalizeDays maps arbitrary day tokens (full names, mixed case,
// stray punctuation) to deduplicated 3-letter codes, dropping anything
// unrecognizable. Used to sanitize externally-sourced day lists.
func NormalizeDays(tokens []string) []string {
	var days []string
	seen := map[string]bool{}
	for _, tok := range tokens {
		code, ok := NormalizeDay(tok)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		days = append(days, code)
	}
	return days
}
