package markup

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	multiSpaceRe  = regexp.MustCompile(`[ \t]+`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
	spacedDotsRe  = regexp.MustCompile(`\.( ?\.){2,}`)
	trailingWSRe  = regexp.MustCompile(`[ \t]+\n`)
	unicodeQuotes = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"–", " - ", "—", " - ", "―", " - ",
		"…", "...",
		" ", " ",
	)
)

// Normalize canonicalizes the script to a stable character set: straight
// quotes, ASCII dashes and ellipses, collapsed whitespace, and emoji padded
// with spaces. Paragraph breaks (blank lines) are preserved. The transform is
// idempotent.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = unicodeQuotes.Replace(text)
	text = spacedDotsRe.ReplaceAllString(text, "...")
	text = padEmoji(text)
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = trailingWSRe.ReplaceAllString(text, "\n")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// padEmoji inserts a space between emoji and adjacent word characters so the
// downstream tokenizer never glues a pictograph onto a word.
func padEmoji(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range runes {
		if isEmoji(r) {
			if i > 0 && !unicode.IsSpace(runes[i-1]) {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) && !isEmoji(runes[i+1]) {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F || r == 0x200D:
		return true
	}
	return false
}
