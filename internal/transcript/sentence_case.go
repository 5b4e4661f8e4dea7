package transcript

import (
	"strings"
	"unicode"
)

// capitalizeSentenceStarts upper-cases the first letter of each sentence.
func capitalizeSentenceStarts(text string) string {
	runes := []rune(text)
	atStart := true

	for i, r := range runes {
		switch {
		case atStart && unicode.IsLetter(r):
			if shouldCapitalizeWordAt(runes, i) {
				runes[i] = unicode.ToUpper(r)
			}
			atStart = false
		case atStart && unicode.IsDigit(r):
			atStart = false
		case r == '!' || r == '?':
			atStart = true
		case r == '.':
			atStart = isSentenceBoundaryPeriod(runes, i)
		}
	}
	return string(runes)
}

func shouldCapitalizeWordAt(runes []rune, idx int) bool {
	token := strings.Trim(wordTokenFromIndex(runes, idx), ".")
	if token == "" {
		return true
	}
	return !isLowercaseSentenceAbbreviation(token)
}

func wordTokenFromIndex(runes []rune, idx int) string {
	if idx < 0 || idx >= len(runes) {
		return ""
	}
	end := idx
	for end < len(runes) && (unicode.IsLetter(runes[end]) || runes[end] == '.') {
		end++
	}
	return string(runes[idx:end])
}

func isSentencePrefixRune(r rune) bool {
	switch r {
	case ')', ']', '}', '\'', '"', '’', '”':
		return true
	default:
		return false
	}
}
