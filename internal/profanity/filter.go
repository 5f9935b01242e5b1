package profanity

import (
	"sort"
	"strings"
)

// Lists holds a guild's custom word lists layered over the base lists.
// A word in Allow is never reported, even when the base list blocks it.
// A word in Block is always reported, even when the base list allows it.
type Lists struct {
	Allow []string
	Block []string
}

// Normalize prepares text for scanning: lowercase, the characters
// '.', '-' and '*' are dropped and '!' becomes 'i' to defeat the usual
// symbol substitutions.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch r {
		case '.', '-', '*':
		case '!':
			b.WriteRune('i')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Scan reports the blocked terms found in text. The effective block set
// is the base block list minus the base allow list, plus the guild
// block list, minus the guild allow list. Guild allow wins over every
// block source. Single words match whole tokens; phrases with spaces
// match as substrings. Safe for concurrent use.
func Scan(lists Lists, text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	blocked := effectiveBlockSet(lists)
	if len(blocked) == 0 {
		return nil
	}

	tokens := make(map[string]struct{})
	for _, token := range strings.FieldsFunc(normalized, isSeparator) {
		tokens[token] = struct{}{}
	}

	var matches []string
	for term := range blocked {
		if strings.ContainsRune(term, ' ') {
			if strings.Contains(normalized, term) {
				matches = append(matches, term)
			}
			continue
		}
		if _, ok := tokens[term]; ok {
			matches = append(matches, term)
		}
	}
	sort.Strings(matches)
	return matches
}

// Censor masks every occurrence of the matched terms with '#'. It
// operates on normalized text so the masked output lines up with what
// Scan matched.
func Censor(text string, matches []string) string {
	censored := Normalize(text)
	for _, term := range matches {
		mask := strings.Repeat("#", len(term))
		censored = strings.ReplaceAll(censored, term, mask)
	}
	return censored
}

func effectiveBlockSet(lists Lists) map[string]struct{} {
	blocked := make(map[string]struct{}, len(baseBlock)+len(lists.Block))
	for _, word := range baseBlock {
		blocked[word] = struct{}{}
	}
	for _, word := range baseAllow {
		delete(blocked, normalizeWord(word))
	}
	for _, word := range lists.Block {
		blocked[normalizeWord(word)] = struct{}{}
	}
	for _, word := range lists.Allow {
		delete(blocked, normalizeWord(word))
	}
	return blocked
}

func normalizeWord(word string) string {
	return strings.TrimSpace(Normalize(word))
}

func isSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return false
	case r >= '0' && r <= '9':
		return false
	case r == '\'':
		return false
	}
	return true
}
