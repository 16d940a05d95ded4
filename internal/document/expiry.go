package document

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	cleanPattern   = regexp.MustCompile(`[^\w\s:/\-]`)
	expiryKeywords = map[string]struct{}{
		"expiry": {}, "expires": {}, "expiration": {}, "exp": {}, "valid": {}, "validity": {},
	}
	tokenLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"02/01/2006",
		"02-01-2006",
		"2/1/2006",
		"2-1-2006",
	}
	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
		"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	}
)

type datePattern struct {
	re    *regexp.Regexp
	parse func(m []string) (time.Time, bool)
}

// Ordered fallback patterns; each parse func receives the submatches.
var datePatterns = []datePattern{
	{ // YYYY-MM-DD
		re: regexp.MustCompile(`(20\d{2})[-/](\d{2})[-/](\d{2})`),
		parse: func(m []string) (time.Time, bool) {
			return buildDate(m[1], m[2], m[3])
		},
	},
	{ // DD/MM/YYYY and DD-MM-YYYY
		re: regexp.MustCompile(`(\d{2})[-/](\d{2})[-/](\d{4})`),
		parse: func(m []string) (time.Time, bool) {
			return buildDate(m[3], m[2], m[1])
		},
	},
	{ // D Month YYYY
		re: regexp.MustCompile(`(?i)\b(\d{1,2}) (jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* (\d{4})`),
		parse: func(m []string) (time.Time, bool) {
			return buildNamedDate(m[3], m[2], m[1])
		},
	},
	{ // Month D, YYYY (the comma is gone once the text is cleaned)
		re: regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* (\d{1,2}),? (\d{4})`),
		parse: func(m []string) (time.Time, bool) {
			return buildNamedDate(m[3], m[1], m[2])
		},
	},
}

// ExtractExpiry finds the document expiry date relative to now.
//
// Pass one returns the first future date that directly follows an expiry
// keyword. Pass two runs only when pass one finds nothing: every date pattern
// match that lies strictly after now and within 2000..2100 is collected and
// the latest is returned.
func ExtractExpiry(raw string, now time.Time) *time.Time {
	clean := cleanPattern.ReplaceAllString(raw, "")
	tokens := strings.Fields(clean)

	for i := 0; i+1 < len(tokens); i++ {
		key := strings.ToLower(strings.TrimRight(tokens[i], ":-/"))
		if _, ok := expiryKeywords[key]; !ok {
			continue
		}
		parsed, ok := parseDateToken(tokens[i+1])
		if ok && parsed.After(now) {
			return &parsed
		}
	}

	var latest *time.Time
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(clean, -1) {
			parsed, ok := p.parse(m)
			if !ok || !parsed.After(now) || parsed.Year() < 2000 || parsed.Year() > 2100 {
				continue
			}
			if latest == nil || parsed.After(*latest) {
				candidate := parsed
				latest = &candidate
			}
		}
	}
	return latest
}

func parseDateToken(tok string) (time.Time, bool) {
	tok = strings.Trim(tok, ":-/")
	if tok == "" {
		return time.Time{}, false
	}
	for _, layout := range tokenLayouts {
		if t, err := time.ParseInLocation(layout, tok, time.UTC); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(tok, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	return dateOf(y, time.Month(mo), day)
}

func buildNamedDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, ok := months[strings.ToLower(month)[:3]]
	if !ok {
		return time.Time{}, false
	}
	return dateOf(y, mo, day)
}

// dateOf rejects days that would roll over into the next month.
func dateOf(year int, month time.Month, day string) (time.Time, bool) {
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
