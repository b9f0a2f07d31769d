package markup

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// Macro syntax used between the macro and conversion stages. Double brackets
// keep the intermediate form unambiguous against both prose and the target
// markup dialect.
const (
	macroEmphOpen  = "[[emph]]"
	macroEmphClose = "[[/emph]]"
)

var (
	macroPauseRe   = regexp.MustCompile(`\[\[pause:(\d+)\]\]`)
	mdBoldRe       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	mdItalicRe     = regexp.MustCompile(`\*([^*\n]+)\*`)
	allCapsWordRe  = regexp.MustCompile(`\b[A-Z][A-Z']{2,}\b`)
	ellipsisMacroRe = regexp.MustCompile(`\.\.\.`)
)

func pauseMacro(ms int) string {
	return fmt.Sprintf("[[pause:%d]]", ms)
}

// InsertMacros maps punctuation to pause macros according to the timing
// table and detects ALL-CAPS and markdown emphasis, bounded by the
// per-clause emphasis cap. It runs on normalized plain text.
func InsertMacros(text string, timing tuning.TimingTable, markup tuning.MarkupParams) string {
	text = markEmphasis(text, markup)

	paragraphs := strings.Split(text, "\n\n")
	for pi, para := range paragraphs {
		paragraphs[pi] = insertPausesPara(para, timing)
	}
	return strings.Join(paragraphs, "\n\n"+pauseMacro(timing.ParagraphMS))
}

func insertPausesPara(para string, timing tuning.TimingTable) string {
	// Ellipses first so their dots are not re-matched as sentence ends.
	para = ellipsisMacroRe.ReplaceAllString(para, "..."+pauseMacro(timing.EllipsisMS))

	runes := []rune(para)
	var b strings.Builder
	b.Grow(len(para) + 64)
	macroDepth := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if r == '[' && i+1 < len(runes) && runes[i+1] == '[' {
			macroDepth++
		}
		if r == ']' && i > 0 && runes[i-1] == ']' && macroDepth > 0 {
			macroDepth--
		}
		if macroDepth > 0 {
			continue
		}
		var ms int
		switch r {
		case ',':
			ms = timing.CommaMS
		case ';', ':':
			ms = timing.ClauseMS
		case '.', '!':
			ms = timing.SentenceMS
		case '?':
			ms = timing.QuestionMS
		default:
			continue
		}
		// Only pause at a real boundary: end of text or before whitespace.
		// Skips decimals, abbreviations glued to words, and quoted commas.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		b.WriteString(pauseMacro(ms))
	}
	return b.String()
}

// markEmphasis wraps markdown-emphasized spans and ALL-CAPS words in
// emphasis macros, honoring the per-clause cap. ALL-CAPS words are restored
// to normal casing since the emphasis now lives in the markup.
func markEmphasis(text string, markup tuning.MarkupParams) string {
	if !markup.EnableEmphasis {
		// Still strip markdown markers so asterisks are never spoken.
		text = mdBoldRe.ReplaceAllString(text, "$1")
		text = mdItalicRe.ReplaceAllString(text, "$1")
		return text
	}

	clauses := splitClauses(text)
	for ci, clause := range clauses {
		count := 0
		clause = mdBoldRe.ReplaceAllStringFunc(clause, func(m string) string {
			inner := strings.Trim(m, "*")
			if count >= markup.MaxEmphasisPerClause {
				return inner
			}
			count++
			return macroEmphOpen + inner + macroEmphClose
		})
		clause = mdItalicRe.ReplaceAllStringFunc(clause, func(m string) string {
			inner := strings.Trim(m, "*")
			if count >= markup.MaxEmphasisPerClause {
				return inner
			}
			count++
			return macroEmphOpen + inner + macroEmphClose
		})
		clause = allCapsWordRe.ReplaceAllStringFunc(clause, func(w string) string {
			if isCommonAcronym(w) {
				return w
			}
			if count >= markup.MaxEmphasisPerClause {
				return w
			}
			count++
			return macroEmphOpen + recase(w) + macroEmphClose
		})
		clauses[ci] = clause
	}
	return strings.Join(clauses, "")
}

// splitClauses cuts text after clause punctuation, keeping separators
// attached to the preceding clause.
func splitClauses(text string) []string {
	var clauses []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		switch r {
		case ',', ';', ':', '.', '!', '?', '\n':
			clauses = append(clauses, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		clauses = append(clauses, cur.String())
	}
	return clauses
}

var commonAcronyms = map[string]struct{}{
	"USA": {}, "FBI": {}, "CIA": {}, "NASA": {}, "CEO": {}, "AI": {},
	"TV": {}, "DIY": {}, "FAQ": {}, "URL": {}, "GPS": {}, "DNA": {},
}

func isCommonAcronym(w string) bool {
	_, ok := commonAcronyms[w]
	return ok
}

// recase lowers a shouted word back to prose casing; the emphasis element
// now carries the stress instead of the capitals.
func recase(w string) string {
	return strings.ToLower(w)
}
