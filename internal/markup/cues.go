package markup

import (
	"math/rand"
	"strings"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// cueHints maps content keywords to the cue token that fits the mood.
// Lookup is case-insensitive against the sentence text.
var cueHints = []struct {
	keyword string
	cue     string
}{
	{"whisper", "[softly]"},
	{"quiet", "[softly]"},
	{"gentle", "[softly]"},
	{"amazing", "[excited]"},
	{"incredible", "[excited]"},
	{"finally", "[excited]"},
}

// InjectCues contextually inserts emotional/ambient cue tokens at sentence
// starts, bounded by the per-chunk cap and the document tag-density budget.
// Randomness flows through rng; nil rng or a disabled config is a no-op.
func InjectCues(text string, cfg tuning.CueParams, markup tuning.MarkupParams, rng *rand.Rand) string {
	if !cfg.Enabled || rng == nil || len(cfg.Palette) == 0 || cfg.MaxPerChunk <= 0 {
		return text
	}

	paragraphs := strings.Split(text, "\n\n")
	inserted := 0
	for pi, para := range paragraphs {
		if inserted >= cfg.MaxPerChunk {
			break
		}
		sentences := splitSentencesPlain(para)
		for si, sent := range sentences {
			if inserted >= cfg.MaxPerChunk {
				break
			}
			if strings.HasPrefix(sent, "[") {
				continue // already cued
			}
			cue, ok := pickCue(sent, cfg, rng)
			if !ok {
				continue
			}
			if overDensityBudget(strings.Join(paragraphs, "\n\n"), markup.MaxTagsPer10Words) {
				return strings.Join(paragraphs, "\n\n")
			}
			sentences[si] = cue + " " + sent
			inserted++
		}
		paragraphs[pi] = strings.Join(sentences, " ")
	}
	return strings.Join(paragraphs, "\n\n")
}

// pickCue chooses a cue for the sentence: keyword hints win, exclamations
// lean excited, otherwise an occasional random palette pick.
func pickCue(sent string, cfg tuning.CueParams, rng *rand.Rand) (string, bool) {
	lower := strings.ToLower(sent)
	for _, hint := range cueHints {
		if strings.Contains(lower, hint.keyword) && paletteHas(cfg.Palette, hint.cue) {
			return hint.cue, true
		}
	}
	if strings.HasSuffix(sent, "!") && paletteHas(cfg.Palette, "[excited]") && rng.Float64() < 0.5 {
		return "[excited]", true
	}
	if rng.Float64() < 0.1 {
		return cfg.Palette[rng.Intn(len(cfg.Palette))], true
	}
	return "", false
}

func paletteHas(palette []string, cue string) bool {
	for _, p := range palette {
		if p == cue {
			return true
		}
	}
	return false
}

func overDensityBudget(text string, maxPer10Words float64) bool {
	if maxPer10Words <= 0 {
		return false
	}
	return TagDensityPer10Words(text) >= maxPer10Words
}
