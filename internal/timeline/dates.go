package timeline

import (
	"regexp"
	"strings"

	"github.com/araddon/dateparse"
)

// Normalized forms of the two placeholder dates models return.
const (
	DateNotApplicable = "N/A"
	DateUnknown       = "Unknown"
)

// Date phrases tried, in order, when the whole string does not parse.
var datePhrases = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
	regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?,?\s+\d{4}`),
	regexp.MustCompile(`(?i)\d{1,2}(st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?,?\s+\d{4}`),
	regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{4}`),
}

var ordinalSuffix = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)

// StandardizeDate maps a model-reported date to YYYY-MM-DD. "n/a" and
// "unknown" in any case become "N/A" and "Unknown". Anything that cannot be
// read as a date is returned unchanged.
func StandardizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "n/a":
		return DateNotApplicable
	case "unknown":
		return DateUnknown
	}
	if trimmed == "" {
		return s
	}

	if d, ok := parseDate(trimmed); ok {
		return d
	}
	for _, re := range datePhrases {
		if phrase := re.FindString(trimmed); phrase != "" {
			if d, ok := parseDate(phrase); ok {
				return d
			}
		}
	}
	return s
}

func parseDate(s string) (string, bool) {
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
