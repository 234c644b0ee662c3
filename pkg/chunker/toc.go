package chunker

import (
	"regexp"
	"sort"
	"strings"
)

// TOCEntry is a heading detected in page text. Page and Line are 1-based.
// Document order is (Page, Line), never the numeric value of the heading.
type TOCEntry struct {
	Level  int
	Number string
	Title  string
	Page   int
	Line   int
}

// headingRule pairs a line pattern with a level function. Rules are tried in
// order and the first match wins, so the priority between ambiguous forms
// (e.g. "IV." as roman vs letter) lives here and nowhere else.
type headingRule struct {
	pattern *regexp.Regexp
	level   func(number string) int
}

var headingRules = []headingRule{
	// Decimal numbering: "1 Title", "2.3 Title", "1.2.4. Title"
	{
		pattern: regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(\S.*)$`),
		level:   func(number string) int { return strings.Count(number, ".") + 1 },
	},
	// Roman numerals: "IV. Title"
	{
		pattern: regexp.MustCompile(`^([IVX]+)\.?\s+(\S.*)$`),
		level:   func(string) int { return 1 },
	},
	// Single capital letters: "A. Title"
	{
		pattern: regexp.MustCompile(`^([A-Z])\.\s+(\S.*)$`),
		level:   func(string) int { return 1 },
	},
	// Leading Hangul token for documents without Latin numbering: "제1장 Title"
	{
		pattern: regexp.MustCompile(`^([\x{AC00}-\x{D7A3}]+)\s+(\S.*)$`),
		level:   func(string) int { return 1 },
	},
}

// ExtractTOC scans every line of every page against the ordered heading rules
// and returns the detected headings in document order. The detection is
// heuristic: body text that happens to look like a heading is accepted, and
// headings without any numbering are missed. Callers degrade to semantic
// chunking rather than failing.
func ExtractTOC(pages []string) []TOCEntry {
	var entries []TOCEntry

	for pageIdx, pageText := range pages {
		lines := strings.Split(pageText, "\n")
		for lineIdx, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			for _, rule := range headingRules {
				m := rule.pattern.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				entries = append(entries, TOCEntry{
					Level:  rule.level(m[1]),
					Number: m[1],
					Title:  strings.TrimSpace(m[2]),
					Page:   pageIdx + 1,
					Line:   lineIdx + 1,
				})
				break
			}
		}
	}

	return entries
}

// sortEntries returns a copy ordered by (Page, Line).
func sortEntries(entries []TOCEntry) []TOCEntry {
	sorted := make([]TOCEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		return sorted[i].Line < sorted[j].Line
	})
	return sorted
}
