package resourcestore

import (
	"strings"
	"unicode"
)

// Tokenize splits a free-text query into lower-cased runs of letters and
// digits, keeping the first occurrence of each term.
func Tokenize(query string) []string {
	fields := tokens(query)
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// SearchScore counts how often any of terms occurs as a token in the indexed
// fields of r: title, description, tags, original filename, category and
// semester. A score of zero means r does not match.
func SearchScore(r *Resource, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[t] = struct{}{}
	}
	score := 0
	count := func(text string) {
		for _, tok := range tokens(text) {
			if _, ok := want[tok]; ok {
				score++
			}
		}
	}
	// title weighs double, like setweight 'A' in the SQL index
	count(r.Title)
	count(r.Title)
	count(r.Description)
	for _, tag := range r.Tags {
		count(tag)
	}
	count(r.OriginalFilename)
	count(r.Category)
	count(r.SemesterTag)
	return score
}

// SearchText reduces fields to the space-separated tokens Tokenize would
// produce for them, keeping repeats. Dotted names such as "notes.pdf" become
// "notes pdf".
func SearchText(fields ...string) string {
	return strings.Join(tokens(strings.Join(fields, " ")), " ")
}

func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
