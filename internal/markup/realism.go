package markup

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// vocabSubs are conservative spoken-register substitutions. Keys are matched
// case-insensitively on word boundaries.
var vocabSubs = [][2]string{
	{"utilize", "use"},
	{"in order to", "to"},
	{"approximately", "about"},
	{"however", "but"},
	{"therefore", "so"},
	{"purchase", "buy"},
}

var (
	notNotRe     = regexp.MustCompile(`(?i)\b(?:not\s+)+not\b`)
	neverNeverRe = regexp.MustCompile(`(?i)\b(?:never\s+)+never\b`)
)

// dedupeNegations collapses stuttered negations ("not not", "never never")
// to a single token, keeping the original casing of the first occurrence.
func dedupeNegations(text string) string {
	keepFirst := func(match string) string {
		return strings.Fields(match)[0]
	}
	text = notNotRe.ReplaceAllStringFunc(text, keepFirst)
	return neverNeverRe.ReplaceAllStringFunc(text, keepFirst)
}

// ApplyRealism runs the bounded-probability conversational transforms. All
// randomness flows through rng; a nil rng or disabled config returns the
// input unchanged. Callers that need reproducible output seed rng themselves.
func ApplyRealism(text string, cfg tuning.RealismParams, rng *rand.Rand) string {
	if !cfg.Enabled || rng == nil {
		return text
	}

	paragraphs := strings.Split(text, "\n\n")
	for pi, para := range paragraphs {
		sentences := splitSentencesPlain(para)
		sentences = combineShortSentences(sentences, cfg.CombineProb, rng)
		for si, sent := range sentences {
			sent = substituteVocabulary(sent, cfg.VocabSubProb, rng)
			sent = insertHesitation(sent, cfg, rng)
			sent = prependAddressTerm(sent, cfg, rng)
			sent = emphasisCase(sent, cfg.EmphasisCaseProb, rng)
			sentences[si] = sent
		}
		paragraphs[pi] = strings.Join(sentences, " ")
	}
	out := strings.Join(paragraphs, "\n\n")

	if cfg.NegationDedup {
		out = dedupeNegations(out)
	}
	return out
}

func prependAddressTerm(sent string, cfg tuning.RealismParams, rng *rand.Rand) string {
	if len(cfg.AddressTerms) == 0 || rng.Float64() >= cfg.AddressTermRatio {
		return sent
	}
	term := cfg.AddressTerms[rng.Intn(len(cfg.AddressTerms))]
	return capitalizeFirst(term) + ", " + lowerFirst(sent)
}

func insertHesitation(sent string, cfg tuning.RealismParams, rng *rand.Rand) string {
	if len(cfg.Hesitations) == 0 || rng.Float64() >= cfg.HesitationProb {
		return sent
	}
	h := cfg.Hesitations[rng.Intn(len(cfg.Hesitations))]
	return capitalizeFirst(h) + " " + lowerFirst(sent)
}

// emphasisCase upper-cases one mid-sentence content word so the macro stage
// can pick it up as emphasis.
func emphasisCase(sent string, prob float64, rng *rand.Rand) string {
	if rng.Float64() >= prob {
		return sent
	}
	words := strings.Fields(sent)
	var candidates []int
	for i := 1; i < len(words)-1; i++ {
		w := strings.Trim(words[i], ".,!?;:\"'")
		if len(w) >= 4 && isAlphaWord(w) && w != strings.ToUpper(w) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return sent
	}
	i := candidates[rng.Intn(len(candidates))]
	words[i] = strings.ToUpper(words[i])
	return strings.Join(words, " ")
}

func substituteVocabulary(sent string, prob float64, rng *rand.Rand) string {
	for _, sub := range vocabSubs {
		if !containsFold(sent, sub[0]) {
			continue
		}
		if rng.Float64() >= prob {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(sub[0]) + `\b`)
		sent = re.ReplaceAllString(sent, sub[1])
	}
	return sent
}

// combineShortSentences joins pairs of adjacent short sentences with a
// conjunction to soften staccato pacing.
func combineShortSentences(sentences []string, prob float64, rng *rand.Rand) []string {
	const shortLen = 60
	var out []string
	for i := 0; i < len(sentences); i++ {
		cur := sentences[i]
		if i+1 < len(sentences) &&
			len(cur) < shortLen && len(sentences[i+1]) < shortLen &&
			strings.HasSuffix(cur, ".") &&
			rng.Float64() < prob {
			next := sentences[i+1]
			out = append(out, strings.TrimSuffix(cur, ".")+", and "+lowerFirst(next))
			i++
			continue
		}
		out = append(out, cur)
	}
	return out
}

// splitSentencesPlain is a punctuation-only splitter for plain text; the
// depth-aware splitter for annotated documents lives in the chunker.
func splitSentencesPlain(text string) []string {
	var sentences []string
	var cur strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i+1 >= len(runes)
			nextSpace := !atEnd && unicode.IsSpace(runes[i+1])
			if atEnd || nextSpace {
				if s := strings.TrimSpace(cur.String()); s != "" {
					sentences = append(sentences, s)
				}
				cur.Reset()
			}
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	// Leave acronyms and proper-noun-looking openers alone.
	if len(r) > 1 && unicode.IsUpper(r[1]) {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func isAlphaWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
