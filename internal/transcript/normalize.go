// Package transcript normalizes recognized text before it is typed.
package transcript

import (
	"regexp"
	"strings"
)

// Options controls transcript normalization.
type Options struct {
	TrailingSpace       bool
	CapitalizeSentences bool
}

var (
	// whisper emits bracketed annotations such as [BLANK_AUDIO] for non-speech.
	bracketAnnotationPattern = regexp.MustCompile(`\[[^\]]*\]`)
	noiseParenPattern        = regexp.MustCompile(`(?i)\((?:[a-z ]*\s)?(?:music|silence|laughs?|laughter|applause|inaudible|noise|coughs?|sighs?|blank audio|no speech)\)`)
)

// Normalize strips non-speech annotations, collapses whitespace, and applies
// the configured casing. An empty result means nothing should be typed.
func Normalize(text string, opts Options) string {
	text = bracketAnnotationPattern.ReplaceAllString(text, " ")
	text = noiseParenPattern.ReplaceAllString(text, " ")

	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" || !hasWordContent(normalized) {
		return ""
	}

	if opts.CapitalizeSentences {
		normalized = capitalizeSentences(normalized)
	}

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}

func capitalizeSentences(text string) string {
	text = capitalizeSentenceStarts(text)
	text = pronounIContractionPattern.ReplaceAllStringFunc(text, func(match string) string {
		return "I" + match[1:]
	})
	return capitalizeStandalonePronounI(text)
}

// hasWordContent rejects results that are only punctuation, like "." or "...".
func hasWordContent(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127
	}) >= 0
}
