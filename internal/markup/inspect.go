package markup

import (
	"regexp"
	"strings"
)

var (
	cueTokenRe   = regexp.MustCompile(`\[[a-z][a-z ]*\]`)
	macroAnyRe   = regexp.MustCompile(`\[\[/?[a-z]+(?::\d+)?\]\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripTags removes all markup elements, macros, and cue tokens, returning
// the text a listener would hear.
func StripTags(text string) string {
	text = anyTagRe.ReplaceAllString(text, "")
	text = macroAnyRe.ReplaceAllString(text, "")
	text = cueTokenRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CountWords counts whitespace-delimited words in plain text.
func CountWords(plain string) int {
	if strings.TrimSpace(plain) == "" {
		return 0
	}
	return len(strings.Fields(plain))
}

// TagCount counts markup elements and cue tokens in an annotated document.
func TagCount(text string) int {
	return len(anyTagRe.FindAllString(text, -1)) + len(cueTokenRe.FindAllString(text, -1))
}

// BreakDurations returns every break duration in the document, in
// milliseconds, in document order.
func BreakDurations(text string) []int {
	var out []int
	for _, tag := range breakTagRe.FindAllString(text, -1) {
		out = append(out, parseBreakMS(tag))
	}
	return out
}

// TagDensityPer10Words reports tags per ten spoken words.
func TagDensityPer10Words(text string) float64 {
	words := CountWords(StripTags(text))
	if words == 0 {
		return 0
	}
	return float64(TagCount(text)) * 10.0 / float64(words)
}
