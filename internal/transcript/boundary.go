package transcript

import (
	"strings"
	"unicode"
)

// Abbreviations that end in a period without ending the sentence.
var lowercaseSentenceAbbreviations = map[string]struct{}{
	"e.g": {}, "i.e": {}, "etc": {}, "vs": {}, "approx": {}, "cf": {},
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "st": {}, "jr": {}, "sr": {},
}

func isLowercaseSentenceAbbreviation(token string) bool {
	_, ok := lowercaseSentenceAbbreviations[strings.ToLower(token)]
	return ok
}

// isSentenceBoundaryPeriod reports whether the period at idx ends a sentence.
// Decimals ("3.5"), dotted tokens ("example.com"), and known abbreviations
// do not.
func isSentenceBoundaryPeriod(runes []rune, idx int) bool {
	if idx+1 < len(runes) && !unicode.IsSpace(runes[idx+1]) && !isSentencePrefixRune(runes[idx+1]) {
		return false
	}
	token := strings.Trim(tokenBeforePeriod(runes, idx), ".")
	return token == "" || !isLowercaseSentenceAbbreviation(token)
}

func tokenBeforePeriod(runes []rune, idx int) string {
	start := idx
	for start > 0 {
		r := runes[start-1]
		if unicode.IsLetter(r) || r == '.' {
			start--
			continue
		}
		break
	}
	return string(runes[start:idx])
}
