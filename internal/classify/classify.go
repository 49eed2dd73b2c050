// Package classify holds the heuristics that turn free-text agenda lines
// into item classifications, reference numbers, and lifecycle actions.
// These are isolated here because the portal's wording drifts over time;
// update the rule tables when classification breaks, not the scraper.
package classify

import (
	"regexp"
	"strings"

	"github.com/kgodwin/civtrace/internal/types"
)

// Rule maps a title pattern to an item classification. Rules are evaluated
// in order, first match wins.
type Rule struct {
	Pattern *regexp.Regexp
	Type    types.ItemType
}

// Rules is the ordered classification table. It is intentionally
// permissive: downstream linkers treat these as hints, and authoritative
// status comes from explicit action keywords, so a false positive costs
// little while a false negative loses the item entirely.
//
// Ordinance and resolution outrank public_hearing so that "Public Hearing
// on Ordinance 2024-15" still reaches the ordinance linker.
var Rules = []Rule{
	{regexp.MustCompile(`(?i)\bordinance\b`), types.ItemOrdinance},
	{regexp.MustCompile(`(?i)\bresolution\b`), types.ItemResolution},
	{regexp.MustCompile(`(?i)\bpublic\s+hearing\b`), types.ItemPublicHearing},
}

// Reference numbers like "2024-15", "25-010", "2023-1204". Anchored after
// the keyword so stray numbers elsewhere in the title don't match.
var (
	ordinanceRef  = regexp.MustCompile(`(?i)\bordinance\b[\s.:#]*(?:no\.?\s*)?(\d{2,4}[-\x{2013}]\d{1,4})`)
	resolutionRef = regexp.MustCompile(`(?i)\bresolution\b[\s.:#]*(?:no\.?\s*)?(\d{2,4}[-\x{2013}]\d{1,4})`)
)

// Classify returns the item type for an agenda line plus any reference
// number found after the classifying keyword.
func Classify(title string) (types.ItemType, string) {
	for _, r := range Rules {
		if r.Pattern.MatchString(title) {
			return r.Type, RefNumber(title, r.Type)
		}
	}
	return types.ItemOther, ""
}

// RefNumber extracts the reference number for a classified line. The
// en dash variant shows up in titles pasted from the agenda PDFs.
func RefNumber(text string, t types.ItemType) string {
	var re *regexp.Regexp
	switch t {
	case types.ItemOrdinance, types.ItemPublicHearing:
		re = ordinanceRef
	case types.ItemResolution:
		re = resolutionRef
	default:
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], "–", "-")
}

// actionKeyword pairs a pattern with the lifecycle action it indicates.
// Ordered by specificity: terminal outcomes beat readings, readings beat
// the generic verbs, so "second reading and final adoption" is adopted.
type actionKeyword struct {
	pattern *regexp.Regexp
	action  types.Action
}

var actionKeywords = []actionKeyword{
	{regexp.MustCompile(`(?i)\b(adopted|adoption|passed|approved)\b`), types.ActAdopted},
	{regexp.MustCompile(`(?i)\b(denied|rejected|failed)\b`), types.ActDenied},
	{regexp.MustCompile(`(?i)\btabled?\b`), types.ActTabled},
	{regexp.MustCompile(`(?i)\b(second|2nd)\s+reading\b`), types.ActSecondReading},
	{regexp.MustCompile(`(?i)\b(first|1st)\s+reading\b`), types.ActFirstReading},
	{regexp.MustCompile(`(?i)\bamend(ed|ment)?\b`), types.ActAmended},
	{regexp.MustCompile(`(?i)\bintroduc(ed|tion)\b`), types.ActIntroduced},
}

// Action derives the lifecycle action from an item's text (title plus any
// recorded outcome). Defaults to discussed when no keyword matches.
func Action(text string) types.Action {
	for _, k := range actionKeywords {
		if k.pattern.MatchString(text) {
			return k.action
		}
	}
	return types.ActDiscussed
}

// Trailing action chatter ("First Reading", "- ADOPTED 5-0") belongs to
// the meeting record, not to the ordinance or resolution title.
var trailingAction = regexp.MustCompile(`(?i)\s*[-\x{2013}:]*\s*\b((first|1st|second|2nd)\s+reading|adopted|adoption|approved|passed|tabled|denied|rejected)\b.*$`)

// CleanTitle strips trailing action chatter from an agenda line so the
// remainder can serve as a record title. A line that is nothing but
// action text is returned as-is; an empty title helps nobody.
func CleanTitle(title string) string {
	out := strings.TrimSpace(trailingAction.ReplaceAllString(title, ""))
	if out == "" {
		return strings.TrimSpace(title)
	}
	return out
}
