// Package moderation masks blacklisted words in message content before it is
// committed. Matching is resilient to casing, spacing, and punctuation
// tricks; the original message layout is preserved around the mask.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher  *goahocorasick.Machine
	maskRune rune
}

// runeMapping links the normalized search text back to positions in the
// original content so masking can target the exact offending runes.
type runeMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized word
// list. Matching is case-insensitive and ignores spacing and punctuation
// inside the content.
func NewModerator(words []string, maskRune rune) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize(word).normalized
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, maskRune: maskRune}, nil
}

// Censor replaces every blacklisted span with the mask rune, leaving the
// surrounding content untouched. Content without matches is returned as is.
func (m *Moderator) Censor(content string) string {
	mapping := normalize(content)
	if len(mapping.normalized) == 0 {
		return content
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return content
	}

	masked := []rune(content)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		for i := mapping.origIdx[start]; i <= mapping.origIdx[end-1]; i++ {
			masked[i] = m.maskRune
		}
	}
	return string(masked)
}

// normalize lowercases the input and drops spacing and punctuation while
// remembering where each kept rune came from.
func normalize(input string) runeMapping {
	origRunes := []rune(input)
	mapping := runeMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(r))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}
