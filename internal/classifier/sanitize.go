package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxTagRunes = 20
	FallbackTag = "general"
)

// SanitizeTag turns a raw model reply into a short keyword: lower case,
// accents folded, quotes and punctuation removed, whitespace runs collapsed
// to one space, at most MaxTagRunes runes. An empty result means the reply
// carried no tag.
func SanitizeTag(raw string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(raw),
	)
	if err != nil {
		folded = strings.ToLower(raw)
	}

	stripped := strings.Map(func(r rune) rune {
		if (unicode.IsPunct(r) && r != '-' && r != '_') || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, folded)

	tag := []rune(strings.Join(strings.Fields(stripped), " "))
	if len(tag) > MaxTagRunes {
		tag = tag[:MaxTagRunes]
	}
	return strings.TrimSpace(string(tag))
}

// normalizeReply trims and lower-cases a classification reply and strips
// surrounding quotes and a trailing period.
func normalizeReply(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.")
	return strings.TrimSpace(s)
}
