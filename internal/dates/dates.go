// Package dates infers document dates from unreliable inputs. The city's
// report filenames encode dates in several historical formats, and when
// the filename carries nothing we fall back to a date mentioned in the
// summary text, then to year-only. The cascade precedence
// (filename, summary, year_only) is deliberate and must not be reordered.
// TODO: validate the filename-vs-summary precedence against reports where
// the two disagree; we have not yet seen a real mismatched pair.
package dates

import (
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
)

// Source identifies which cascade rule produced a date.
const (
	SourceFilename = "filename"
	SourceSummary  = "summary"
	SourceYearOnly = "year_only"
)

// Filename date shapes observed across eras of city reports:
// "2024-03-15", "03-15-2024", "March_2024", "Mar-2024", "permits202403".
// filenamePattern pairs a regexp with the parse of its submatches.
type filenamePattern struct {
	re    *regexp.Regexp
	parse func(m []string) (time.Time, bool)
}

func parseLenient(m []string) (time.Time, bool) {
	t, err := dateparse.ParseAny(m[1])
	return t, err == nil
}

func parseMonthYear(m []string) (time.Time, bool) {
	t, err := dateparse.ParseAny(m[1] + " 1, " + m[2])
	return t, err == nil
}

// parseYearMonth builds a first-of-month date from numeric (year, month)
// submatches, rejecting impossible months so stray digit pairs don't
// produce dates.
func parseYearMonth(m []string) (time.Time, bool) {
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

// Word boundaries are useless here: underscores count as word characters,
// and underscores are exactly what these filenames delimit with. Each of
// the resolver's candidate naming conventions has a pattern, including the
// hyphenated year-month ("permits-2024-03.pdf") and year-directory
// ("/docs/2025/permits07.pdf") forms.
var filenamePatterns = []filenamePattern{
	{regexp.MustCompile(`(?:^|\D)(\d{4}-\d{2}-\d{2})(?:\D|$)`), parseLenient},
	{regexp.MustCompile(`(?:^|\D)(\d{2}-\d{2}-\d{4})(?:\D|$)`), parseLenient},
	{regexp.MustCompile(`(?i)(?:^|[^a-z])(January|February|March|April|May|June|July|August|September|October|November|December)[_\- ](\d{4})`), parseMonthYear},
	{regexp.MustCompile(`(?i)(?:^|[^a-z])(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[_\- ](\d{4})`), parseMonthYear},
	{regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{2})(?:\D|$)`), parseYearMonth},
	{regexp.MustCompile(`(\d{4})/[A-Za-z][A-Za-z_-]*(\d{2})\.`), parseYearMonth},
	{regexp.MustCompile(`(\d{4})(\d{2})(?:\D|$)`), parseYearMonth},
}

// FromFilename extracts a date from a report filename or URL path.
func FromFilename(name string) (time.Time, bool) {
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if t, ok := p.parse(m); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Dates written out in prose, e.g. "for the month of March 2024" or
// "as of 3/15/2024".
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2},\s+)?(\d{4})`),
	regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`),
}

// FromText extracts the first date mentioned in free text.
func FromText(text string) (time.Time, bool) {
	for _, re := range textPatterns {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		if t, err := dateparse.ParseAny(m); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Infer runs the cascade: filename pattern first, then a date found in the
// summary text, then January 1 of the fallback year. Returns the date and
// the Source constant naming which rule fired.
func Infer(filename, summary string, year int) (time.Time, string) {
	if t, ok := FromFilename(filename); ok {
		return t, SourceFilename
	}
	if t, ok := FromText(summary); ok {
		return t, SourceSummary
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), SourceYearOnly
}
