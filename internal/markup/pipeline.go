// Package markup turns a raw script into a validated annotated document:
// stable character set, optional conversational transforms, pause/emphasis
// macros resolved into the target markup dialect, model-aware sanitization,
// and optional cue injection. Every stage is a pure text transform; the
// pipeline only fails on empty or unspeakable input.
package markup

import (
	"errors"
	"math/rand"
	"strings"
	"unicode"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// ErrEmptyScript is returned when the input carries no speakable content.
var ErrEmptyScript = errors.New("script has no speakable content")

// Document is a validated annotated script. Body is well formed for the
// model class: balanced elements, break durations within the configured
// bounds, tag density under the configured ceiling.
type Document struct {
	Body       string
	ModelClass tuning.ModelClass
}

// PlainText returns the document stripped of all annotation.
func (d Document) PlainText() string {
	return StripTags(d.Body)
}

// WordCount counts the words a listener would hear.
func (d Document) WordCount() int {
	return CountWords(d.PlainText())
}

// Pipeline applies the fixed-order annotation stages. The random source
// feeds only the realism and cue stages; every other stage is deterministic.
type Pipeline struct {
	settings tuning.Settings
	rng      *rand.Rand
}

// NewPipeline builds a pipeline over immutable settings. rng may be nil when
// the probabilistic stages are disabled.
func NewPipeline(settings tuning.Settings, rng *rand.Rand) *Pipeline {
	return &Pipeline{settings: settings, rng: rng}
}

// Annotate runs the full stage order: normalize, conversational realism,
// macro insertion, markup conversion, sanitization, cue injection.
func (p *Pipeline) Annotate(script string) (Document, error) {
	if strings.TrimSpace(script) == "" {
		return Document{}, ErrEmptyScript
	}

	text := Normalize(script)
	if !speakable(text) {
		return Document{}, ErrEmptyScript
	}

	text = ApplyRealism(text, p.settings.Realism, p.rng)
	text = InsertMacros(text, p.settings.Timing, p.settings.Markup)
	text = ConvertMacros(text, p.settings)

	class := p.settings.Voice.ModelClass
	text = Sanitize(text, class)

	if class != tuning.ModelClassBare {
		text = InjectCues(text, p.settings.Cues, p.settings.Markup, p.rng)
	}

	return Document{Body: text, ModelClass: class}, nil
}

// speakable reports whether the text contains at least one letter or digit.
func speakable(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
