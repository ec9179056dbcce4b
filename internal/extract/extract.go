package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The extractor scans text against pattern families in a fixed priority
// order. Only the first family that matches anywhere in the text is
// resolved; if that resolution fails (bad components, past date) the result
// is empty even when a later family would have succeeded. Tests pin this
// ordering.

const maxHorizonYears = 10

var (
	reISO   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reMonth = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	reSlash = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)

	reKeyword = regexp.MustCompile(`(?i)\b(?:deadline|due|apply|closes?|until)\s*(?:by|on|is)?\s*:?\s+(` +
		`\d{4}-\d{2}-\d{2}` +
		`|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s*\d{4})?` +
		`|\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?(?:\s+\d{4})?` +
		`|\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?` +
		`)`)

	reDayFirst = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?(?:\s+(\d{4}))?\b`)

	reRelative = regexp.MustCompile(`(?i)\b(?:(today)|(tomorrow)|(next\s+week)|in\s+(\d+)\s+(day|week|month|year)s?)\b`)

	reClock = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// Deadline turns free text into an absolute deadline instant, interpreted in
// the user's location against now. The result is UTC. ok is false when no
// bounded pattern matched, the match did not resolve, or the candidate is
// not strictly in the future (or is more than ten years out).
func Deadline(text string, loc *time.Location, now time.Time) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	var candidate time.Time
	var resolved bool

	switch {
	case reISO.MatchString(text):
		candidate, resolved = resolveISO(reISO.FindStringSubmatch(text), loc)
	case reMonth.MatchString(text):
		candidate, resolved = resolveMonth(reMonth.FindStringSubmatch(text), loc, local)
	case reSlash.MatchString(text):
		candidate, resolved = resolveSlash(reSlash.FindStringSubmatch(text), loc, local)
	case reKeyword.MatchString(text):
		candidate, resolved = resolveFragment(reKeyword.FindStringSubmatch(text)[1], loc, local)
	case reRelative.MatchString(text):
		candidate, resolved = resolveRelative(reRelative.FindStringSubmatch(text), loc, local)
	default:
		return time.Time{}, false
	}
	if !resolved {
		return time.Time{}, false
	}

	candidate = normalizeTimeOfDay(candidate, text, loc)

	if !candidate.After(now) {
		return time.Time{}, false
	}
	if candidate.After(now.AddDate(maxHorizonYears, 0, 0)) {
		return time.Time{}, false
	}
	return candidate.UTC(), true
}

func resolveISO(m []string, loc *time.Location) (time.Time, bool) {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return makeDate(year, time.Month(month), day, loc)
}

func resolveMonth(m []string, loc *time.Location, local time.Time) (time.Time, bool) {
	month, ok := months[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year := local.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	return makeDate(year, month, day, loc)
}

// resolveSlash reads M/D or M/D/Y with a slash or dash separator. Two-digit
// years land in 2000-2099. Day-first input like 15/3 is swapped when the
// month slot is impossible.
func resolveSlash(m []string, loc *time.Location, local time.Time) (time.Time, bool) {
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month > 12 && day <= 12 {
		month, day = day, month
	}
	year := local.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	}
	return makeDate(year, time.Month(month), day, loc)
}

func resolveFragment(fragment string, loc *time.Location, local time.Time) (time.Time, bool) {
	switch {
	case reISO.MatchString(fragment):
		return resolveISO(reISO.FindStringSubmatch(fragment), loc)
	case reMonth.MatchString(fragment):
		return resolveMonth(reMonth.FindStringSubmatch(fragment), loc, local)
	case reSlash.MatchString(fragment):
		return resolveSlash(reSlash.FindStringSubmatch(fragment), loc, local)
	case reDayFirst.MatchString(fragment):
		return resolveDayFirst(reDayFirst.FindStringSubmatch(fragment), loc, local)
	default:
		return time.Time{}, false
	}
}

// resolveDayFirst reads "20 February 2027" style fragments, which only ever
// arrive through the keyword family.
func resolveDayFirst(m []string, loc *time.Location, local time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year := local.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	return makeDate(year, month, day, loc)
}

func resolveRelative(m []string, loc *time.Location, local time.Time) (time.Time, bool) {
	base := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	switch {
	case m[1] != "": // today
		return base, true
	case m[2] != "": // tomorrow
		return base.AddDate(0, 0, 1), true
	case m[3] != "": // next week
		return base.AddDate(0, 0, 7), true
	default:
		n, err := strconv.Atoi(m[4])
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		switch strings.ToLower(m[5]) {
		case "day":
			return base.AddDate(0, 0, n), true
		case "week":
			return base.AddDate(0, 0, 7*n), true
		case "month":
			return addMonthsClamped(base, n), true
		case "year":
			return addMonthsClamped(base, 12*n), true
		}
		return time.Time{}, false
	}
}

// addMonthsClamped adds calendar months, clamping the day to the end of the
// target month instead of letting it overflow (Jan 31 + 1 month = Feb 28,
// not Mar 3).
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// First of the next month, rolled back a day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// makeDate builds a date and rejects components that would have been
// silently normalized (Feb 30, month 13, day 0).
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// normalizeTimeOfDay attaches an explicit clock token from the text, or
// pushes a bare date to end of day (23:59 local) so a deadline "on the 20th"
// means the whole of the 20th.
func normalizeTimeOfDay(candidate time.Time, text string, loc *time.Location) time.Time {
	if m := reClock.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		switch strings.ToLower(m[3]) {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour <= 23 && minute <= 59 {
			return time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, loc)
		}
	}
	if candidate.Hour() == 0 && candidate.Minute() == 0 && candidate.Second() == 0 {
		return time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 23, 59, 0, 0, loc)
	}
	return candidate
}
