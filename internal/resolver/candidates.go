package resolver

import (
	"fmt"
	"strings"
	"time"
)

// The city's document host has gone through at least three filename
// regimes for monthly reports. Each generation is represented here;
// ReportCandidates emits one URL per convention for a given period.
//
//	2015-2018: /docs/<year>/<kind><MM>.pdf
//	2019-2021: /documents/<Kind>_<Mon>_<year>.pdf   (3-letter month)
//	2022-    : /documents/<Kind>_<Month>_<year>.pdf (full month, or hyphens)
//	odd ones : /documents/<kind>-<year>-<MM>.pdf
func ReportCandidates(baseURL, kind string, year int, month time.Month, newestFirst bool) []string {
	base := strings.TrimRight(baseURL, "/")
	title := titleCase(kind)
	full := month.String()
	abbr := full[:3]

	oldest := []string{
		fmt.Sprintf("%s/docs/%d/%s%02d.pdf", base, year, strings.ToLower(kind), int(month)),
		fmt.Sprintf("%s/documents/%s_%s_%d.pdf", base, title, abbr, year),
		fmt.Sprintf("%s/documents/%s-%s-%d.pdf", base, title, abbr, year),
		fmt.Sprintf("%s/documents/%s_%s_%d.pdf", base, title, full, year),
		fmt.Sprintf("%s/documents/%s-%s-%d.pdf", base, title, full, year),
		fmt.Sprintf("%s/documents/%s-%d-%02d.pdf", base, strings.ToLower(kind), year, int(month)),
	}

	if !newestFirst {
		return oldest
	}
	reversed := make([]string, len(oldest))
	for i, c := range oldest {
		reversed[len(oldest)-1-i] = c
	}
	return reversed
}

// Period formats a (year, month) pair as the canonical period key.
func Period(year int, month time.Month) string {
	return fmt.Sprintf("%d-%02d", year, int(month))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
