package chunker

import (
	"strings"
	"unicode"
)

// sentence is one tokenized unit of the annotated document. markupBody keeps
// the inline annotation; plain is the markup-stripped spoken text.
type sentence struct {
	markupBody   string
	plain        string
	paragraphEnd bool
}

// splitSentences tokenizes an annotated document into sentences using
// punctuation boundaries while tracking element nesting depth character by
// character. A boundary inside an open element is never honored; scanning
// continues until depth returns to zero.
func splitSentences(body string, stripFn func(string) string) []sentence {
	var sentences []sentence
	runes := []rune(body)
	depth := 0
	var cur strings.Builder

	flush := func(paragraphEnd bool) {
		raw := strings.TrimSpace(cur.String())
		cur.Reset()
		if raw == "" {
			return
		}
		sentences = append(sentences, sentence{
			markupBody:   raw,
			plain:        stripFn(raw),
			paragraphEnd: paragraphEnd,
		})
	}

	i := 0
	for i < len(runes) {
		r := runes[i]

		if r == '<' {
			end, selfClosing, closing := scanTag(runes, i)
			if end > i {
				cur.WriteString(string(runes[i:end]))
				switch {
				case selfClosing:
				case closing:
					if depth > 0 {
						depth--
					}
				default:
					depth++
				}
				i = end
				continue
			}
		}

		// Paragraph break is always a boundary at depth zero.
		if r == '\n' && depth == 0 && i+1 < len(runes) && runes[i+1] == '\n' {
			flush(true)
			for i < len(runes) && runes[i] == '\n' {
				i++
			}
			continue
		}

		cur.WriteRune(r)
		i++

		if depth != 0 || !isSentenceEnd(r) {
			continue
		}
		// Trailing punctuation run must complete (e.g. "?!", "...").
		if i < len(runes) && isSentenceEnd(runes[i]) {
			continue
		}
		// Absorb closing quotes and any pause markup that belongs to this
		// sentence before cutting.
		for i < len(runes) {
			if runes[i] == '"' || runes[i] == '\'' {
				cur.WriteRune(runes[i])
				i++
				continue
			}
			if runes[i] == '<' {
				end, selfClosing, _ := scanTag(runes, i)
				if end > i && selfClosing {
					cur.WriteString(string(runes[i:end]))
					i = end
					continue
				}
			}
			break
		}
		if i >= len(runes) || unicode.IsSpace(runes[i]) {
			flush(false)
		}
	}
	flush(false)
	return sentences
}

// scanTag returns the index just past a tag starting at i, plus whether the
// tag is self-closing or a closing tag. Returns i when no complete tag starts
// there, in which case '<' is treated as literal text.
func scanTag(runes []rune, i int) (end int, selfClosing, closing bool) {
	j := i + 1
	for j < len(runes) && runes[j] != '>' && runes[j] != '<' {
		j++
	}
	if j >= len(runes) || runes[j] != '>' {
		return i, false, false
	}
	closing = i+1 < len(runes) && runes[i+1] == '/'
	selfClosing = runes[j-1] == '/'
	return j + 1, selfClosing, closing
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// BoundaryDepths scans the document and reports the element depth at each
// produced sentence boundary offset; used to verify chunk boundaries never
// split an open element.
func BoundaryDepths(body string, boundaries []int) []int {
	depths := make([]int, len(boundaries))
	runes := []rune(body)
	depth := 0
	next := 0
	for i := 0; i < len(runes) && next < len(boundaries); {
		if i == boundaries[next] {
			depths[next] = depth
			next++
		}
		if runes[i] == '<' {
			end, selfClosing, closing := scanTag(runes, i)
			if end > i {
				switch {
				case selfClosing:
				case closing:
					if depth > 0 {
						depth--
					}
				default:
					depth++
				}
				i = end
				continue
			}
		}
		i++
	}
	return depths
}
