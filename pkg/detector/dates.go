package detector

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	tomorrowPattern = regexp.MustCompile(`(?i)\btomorrow\b`)
	todayPattern    = regexp.MustCompile(`(?i)\btoday\b`)
	monthPattern    = regexp.MustCompile(`(?i)(\d{1,2})\s*(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`)
	numericPattern  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})\b`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const dateLayout = "2006-01-02"

// ExtractDate finds a due date in text: "tomorrow", "today", "23 Jan",
// "23 January", "23/01", or "23-01", resolved against now's year.
// Returns YYYY-MM-DD, or "" when no valid date is present. Impossible
// calendar dates are ignored.
func ExtractDate(text string, now time.Time) string {
	if tomorrowPattern.MatchString(text) {
		return now.AddDate(0, 0, 1).Format(dateLayout)
	}
	if todayPattern.MatchString(text) {
		return now.Format(dateLayout)
	}

	if m := monthPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNumbers[strings.ToLower(m[2])[:3]]
		if d, ok := makeDate(now.Year(), month, day); ok {
			return d
		}
	}

	if m := numericPattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		if monthNum >= 1 && monthNum <= 12 {
			if d, ok := makeDate(now.Year(), time.Month(monthNum), day); ok {
				return d
			}
		}
	}

	return ""
}

// makeDate builds a date and rejects values the calendar normalized
// away (Feb 30 rolling into March, day 0, and so on).
func makeDate(year int, month time.Month, day int) (string, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return "", false
	}
	return d.Format(dateLayout), true
}
