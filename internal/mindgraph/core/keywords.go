package core

import (
	"strings"
	"unicode"
)

// KeywordsFromCSV splits a comma separated keyword list, dropping blanks
func KeywordsFromCSV(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if k := strings.TrimSpace(part); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// SharedKeywords counts keywords present in both lists, case-insensitively
func SharedKeywords(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(b))
	for _, k := range b {
		k = strings.ToLower(strings.TrimSpace(k))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			shared++
		}
	}
	return shared
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {},
	"has": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {}, "now": {}, "see": {},
	"who": {}, "did": {}, "get": {}, "let": {}, "say": {}, "she": {}, "too": {}, "use": {},
	"that": {}, "with": {}, "this": {}, "from": {}, "they": {}, "have": {}, "were": {},
	"been": {}, "into": {}, "than": {}, "them": {}, "then": {}, "when": {}, "which": {},
	"their": {}, "there": {}, "these": {}, "those": {}, "what": {}, "where": {}, "while": {},
	"also": {}, "such": {}, "each": {}, "other": {}, "some": {}, "will": {}, "would": {},
}

// ExtractKeywords returns unique lowercase words longer than two characters,
// skipping common stop words, in order of first appearance.
func ExtractKeywords(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := make(map[string]struct{})
	var out []string
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, "-"))
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
