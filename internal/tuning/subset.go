package tuning

import (
	"fmt"
	"strings"
)

// SynthesisSubset is the projection of Settings whose fields change the
// synthesized audio for a given markup body. Anything outside this subset
// (chunking bounds, mastering, labels) must not influence cache keys.
type SynthesisSubset struct {
	ModelID        string
	VoiceID        string
	Stability      float64
	Similarity     float64
	Style          float64
	SpeakerBoost   bool
	RateMultiplier float64
	SampleRate     int
	Channels       int
	Format         string
}

// SynthesisSubset extracts the audio-affecting projection of s.
func (s Settings) SynthesisSubset() SynthesisSubset {
	return SynthesisSubset{
		ModelID:        s.Voice.ModelID,
		VoiceID:        s.Voice.VoiceID,
		Stability:      s.Voice.Stability,
		Similarity:     s.Voice.Similarity,
		Style:          s.Voice.Style,
		SpeakerBoost:   s.Voice.SpeakerBoost,
		RateMultiplier: s.Voice.RateMultiplier,
		SampleRate:     s.Export.SampleRate,
		Channels:       s.Export.Channels,
		Format:         s.Export.Format,
	}
}

// Canonical renders the subset as a stable byte sequence suitable for
// hashing. Field order is fixed and floats use a fixed precision so the
// encoding never drifts between runs or architectures.
func (ss SynthesisSubset) Canonical() []byte {
	var b strings.Builder
	sep := byte(0x1f)
	b.WriteString("v1")
	b.WriteByte(sep)
	b.WriteString(ss.ModelID)
	b.WriteByte(sep)
	b.WriteString(ss.VoiceID)
	b.WriteByte(sep)
	fmt.Fprintf(&b, "%.6f%c%.6f%c%.6f%c%t%c%.6f",
		ss.Stability, sep, ss.Similarity, sep, ss.Style, sep, ss.SpeakerBoost, sep, ss.RateMultiplier)
	b.WriteByte(sep)
	fmt.Fprintf(&b, "%d%c%d%c%s", ss.SampleRate, sep, ss.Channels, sep, ss.Format)
	return []byte(b.String())
}
