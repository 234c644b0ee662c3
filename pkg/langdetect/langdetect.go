// Package langdetect tags text with a best-effort language code using
// character-script ratios. The result is approximate by design and is never
// treated as authoritative downstream.
package langdetect

import "strings"

// Unknown is returned when the text contains no countable characters at all.
const Unknown = "unknown"

// Default is the language assumed when no script ratio clears the threshold.
const Default = "en"

// threshold is the share of countable characters a script must reach to win.
const threshold = 0.3

// scriptRule maps a script membership test to the language it indicates.
// Rules are evaluated in order and the first ratio above threshold wins, so
// the priority between mixed-script text is explicit here.
type scriptRule struct {
	lang string
	in   func(rune) bool
}

var scriptRules = []scriptRule{
	{"ko", isHangul},
	{"ja", isKana},
	{"zh", isHan},
}

// Detect returns the language code for text: the first script whose ratio of
// countable characters exceeds the threshold, or Default when none does.
func Detect(text string) string {
	var counts [3]int
	countable := 0

	for _, r := range text {
		isScript := false
		for i, rule := range scriptRules {
			if rule.in(r) {
				counts[i]++
				isScript = true
				break
			}
		}
		if isScript || isLatinLetter(r) {
			countable++
		}
	}

	if countable == 0 {
		return Unknown
	}

	for i, rule := range scriptRules {
		if float64(counts[i])/float64(countable) > threshold {
			return rule.lang
		}
	}
	return Default
}

// DetectFromFilename guesses the language of a source file from markers in
// its name ("guidebook_ko.pdf", "english-handbook.pdf").
func DetectFromFilename(name string) string {
	lower := strings.ToLower(name)
	markers := []struct {
		lang string
		hint []string
	}{
		{"ko", []string{"ko", "korean"}},
		{"en", []string{"en", "english"}},
		{"ja", []string{"ja", "japanese"}},
		{"zh", []string{"zh", "chinese"}},
		{"vi", []string{"vi", "vietnamese"}},
		{"uz", []string{"uz", "uzbek"}},
	}
	for _, m := range markers {
		for _, h := range m.hint {
			if strings.Contains(lower, h) {
				return m.lang
			}
		}
	}
	return Unknown
}

func isHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func isKana(r rune) bool {
	return (r >= 0x3042 && r <= 0x3093) || (r >= 0x30A2 && r <= 0x30F3)
}

func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FAF
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
