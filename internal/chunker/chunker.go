// Package chunker splits an annotated document into ordered, bounded,
// independently synthesizable chunks with neighbor context.
package chunker

import (
	"strings"

	"github.com/voxweave-labs/voxweave-core/internal/cache"
	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// Chunk is one bounded segment of the annotated document. Immutable once
// created; the orchestrator and cache share chunks read-only.
type Chunk struct {
	Index                int     `json:"index"`
	MarkupBody           string  `json:"markup_body"`
	PlainTextBody        string  `json:"plain_text_body"`
	EstimatedDurationSec float64 `json:"estimated_duration_sec"`
	CharCount            int     `json:"char_count"`
	ContentHash          string  `json:"content_hash"`
	PreviousContext      string  `json:"previous_context,omitempty"`
	NextContext          string  `json:"next_context,omitempty"`
}

// Stats summarizes a chunking pass for the caller.
type Stats struct {
	Chunks            int     `json:"chunks"`
	TotalChars        int     `json:"total_chars"`
	TotalEstimatedSec float64 `json:"total_estimated_sec"`
}

// directAddressOpeners force a boundary when a sentence speaks straight to
// the listener; keeping the address at a chunk head preserves delivery.
var directAddressOpeners = []string{"dear ", "hey ", "listen,", "look,", "my friend"}

// Split tokenizes the document and greedily packs sentences into chunks
// bounded by estimated duration and markup-stripped character count.
func Split(doc markup.Document, s tuning.Settings) []Chunk {
	sentences := splitSentences(doc.Body, markup.StripTags)
	if len(sentences) == 0 {
		return nil
	}

	cp := s.Chunking
	var groups [][]sentence
	var cur []sentence
	curChars := 0
	curDur := 0.0

	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
			curChars = 0
			curDur = 0
		}
	}

	for i, sent := range sentences {
		if len(cur) > 0 && forcesBoundary(sent, cp) {
			flush()
		}

		sentDur := estimateDuration(sent, s)
		sentChars := len(sent.plain)

		overTarget := curDur+sentDur > cp.TargetSeconds
		overChars := curChars+sentChars > cp.MaxChars
		meetsFloor := curChars >= cp.MinChars
		if len(cur) > 0 && (overTarget || overChars) && meetsFloor {
			flush()
		}

		cur = append(cur, sent)
		curChars += sentChars
		curDur += sentDur

		// A paragraph end after this sentence is a natural cut point once
		// the floor is met.
		if sent.paragraphEnd && curChars >= cp.MinChars && i < len(sentences)-1 {
			flush()
		}
	}
	flush()

	return assemble(groups, s)
}

// forcesBoundary reports whether the sentence must open a fresh chunk even
// under the soft ceiling: narrative-transition cues and direct-address
// openers cut regardless of packing efficiency.
func forcesBoundary(sent sentence, cp tuning.ChunkingParams) bool {
	lower := strings.ToLower(sent.plain)
	for _, cue := range cp.TransitionCues {
		if strings.HasPrefix(lower, strings.ToLower(cue)) {
			return true
		}
	}
	for _, opener := range directAddressOpeners {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}

// estimateDuration combines speaking time at the configured rate with the
// summed pause markup durations.
func estimateDuration(sent sentence, s tuning.Settings) float64 {
	words := markup.CountWords(sent.plain)
	wpm := s.Chunking.BaseWPM * s.Voice.RateMultiplier
	if wpm <= 0 {
		wpm = 150
	}
	dur := float64(words) / wpm * 60.0
	for _, ms := range markup.BreakDurations(sent.markupBody) {
		dur += float64(ms) / 1000.0
	}
	return dur
}

// assemble joins sentence groups into finished chunks: neighbor context,
// interior overlap markers, stable indices, and content hashes.
func assemble(groups [][]sentence, s tuning.Settings) []Chunk {
	subset := s.SynthesisSubset()
	halfOverlap := s.Chunking.OverlapMS / 2

	chunks := make([]Chunk, 0, len(groups))
	for gi, group := range groups {
		var bodies, plains []string
		dur := 0.0
		for _, sent := range group {
			bodies = append(bodies, sent.markupBody)
			plains = append(plains, sent.plain)
			dur += estimateDuration(sent, s)
		}
		body := strings.Join(bodies, " ")
		plain := strings.TrimSpace(strings.Join(plains, " "))
		if plain == "" {
			continue // never emit a zero-content chunk
		}

		if halfOverlap > 0 {
			if gi > 0 {
				body = markup.BreakTag(halfOverlap) + body
			}
			if gi < len(groups)-1 {
				body += markup.BreakTag(halfOverlap)
			}
		}

		chunk := Chunk{
			Index:                len(chunks),
			MarkupBody:           body,
			PlainTextBody:        plain,
			EstimatedDurationSec: dur,
			CharCount:            len(plain),
			ContentHash:          cache.Key(body, subset),
		}
		chunk.PreviousContext = neighborContext(groups, gi, -1, s.Chunking.ContextSentences)
		chunk.NextContext = neighborContext(groups, gi, +1, s.Chunking.ContextSentences)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// neighborContext gathers up to n plain-text sentences adjacent to group gi
// in the given direction. The context is a synthesis hint only and is never
// spoken.
func neighborContext(groups [][]sentence, gi, dir, n int) string {
	if n <= 0 {
		return ""
	}
	ni := gi + dir
	if ni < 0 || ni >= len(groups) {
		return ""
	}
	neighbor := groups[ni]
	var picked []string
	if dir < 0 {
		start := len(neighbor) - n
		if start < 0 {
			start = 0
		}
		for _, sent := range neighbor[start:] {
			picked = append(picked, sent.plain)
		}
	} else {
		end := n
		if end > len(neighbor) {
			end = len(neighbor)
		}
		for _, sent := range neighbor[:end] {
			picked = append(picked, sent.plain)
		}
	}
	return strings.Join(picked, " ")
}

// Summarize computes aggregate stats for a chunk list.
func Summarize(chunks []Chunk) Stats {
	st := Stats{Chunks: len(chunks)}
	for _, c := range chunks {
		st.TotalChars += c.CharCount
		st.TotalEstimatedSec += c.EstimatedDurationSec
	}
	return st
}
