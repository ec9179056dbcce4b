package extract

import (
	"regexp"
	"strings"

	"opptick/internal/model"
)

const (
	maxTitleLen       = 80
	maxDescriptionLen = 500
)

var (
	reURL        = regexp.MustCompile(`\bhttps?://\S+|\bwww\.\S+`)
	reTitleLabel = regexp.MustCompile(`(?i)^title\s*:\s*(.+)$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Prefill holds best-effort field guesses from raw opportunity text. The
// capture flow offers each guess for confirmation; nothing here is final.
type Prefill struct {
	Title         string
	Description   string
	Link          string
	Category      model.Category
	CategoryFound bool
}

// Analyze runs the one-time pre-pass over raw text: title from an explicit
// "Title:" label or the first non-empty line, category from a keyword match,
// link from the first URL-shaped token, description from the remaining
// lines.
func Analyze(text string) Prefill {
	var p Prefill

	p.Link = strings.TrimRight(reURL.FindString(text), ".,;)")

	lines := splitLines(text)
	titleIdx := -1
	for i, line := range lines {
		if m := reTitleLabel.FindStringSubmatch(line); m != nil {
			p.Title = cleanLine(m[1], maxTitleLen)
			titleIdx = i
			break
		}
	}
	if titleIdx == -1 && len(lines) > 0 {
		p.Title = cleanLine(lines[0], maxTitleLen)
		titleIdx = 0
	}

	var rest []string
	for i, line := range lines {
		if i == titleIdx {
			continue
		}
		rest = append(rest, line)
	}
	p.Description = cleanLine(reURL.ReplaceAllString(strings.Join(rest, " "), ""), maxDescriptionLen)

	p.Category, p.CategoryFound = guessCategory(text)
	return p
}

func guessCategory(text string) (model.Category, bool) {
	lower := strings.ToLower(text)
	for _, c := range model.Categories() {
		if c == model.CategoryOther {
			continue
		}
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return c, true
		}
	}
	return model.CategoryOther, false
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func cleanLine(s string, max int) string {
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
