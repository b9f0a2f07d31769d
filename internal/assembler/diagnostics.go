package assembler

import (
	"math"

	"github.com/voxweave-labs/voxweave-core/internal/chunker"
	"github.com/voxweave-labs/voxweave-core/internal/dsp"
	"github.com/voxweave-labs/voxweave-core/internal/markup"
)

// Diagnostics summarizes a finished master for operators: pacing,
// markup density, loudness and joins that came out audibly uneven.
type Diagnostics struct {
	DurationSeconds float64        `json:"duration_seconds"`
	WordCount       int            `json:"word_count"`
	EffectiveWPM    float64        `json:"effective_wpm"`
	TagDensity      float64        `json:"tag_density_per_10_words"`
	BreakHistogram  map[string]int `json:"break_histogram"`
	IntegratedLUFS  float64        `json:"integrated_lufs"`
	TruePeakDB      float64        `json:"true_peak_db"`
	JoinSpikes      []int          `json:"join_spikes,omitempty"`
}

// Diagnose measures the master against the chunks it was built from.
// joinOffsets are sample positions where segments were joined.
func (a *Assembler) Diagnose(master []float64, chunks []chunker.Chunk, joinOffsets []int) Diagnostics {
	rate := a.settings.Export.SampleRate
	duration := float64(len(master)) / float64(rate)

	words := 0
	tags := 0
	histogram := map[string]int{}
	for _, c := range chunks {
		words += markup.CountWords(c.PlainTextBody)
		tags += markup.TagCount(c.MarkupBody)
		for _, ms := range markup.BreakDurations(c.MarkupBody) {
			histogram[a.classifyBreak(ms)]++
		}
	}

	d := Diagnostics{
		DurationSeconds: duration,
		WordCount:       words,
		BreakHistogram:  histogram,
		IntegratedLUFS:  dsp.IntegratedLUFS(master, float64(rate)),
		TruePeakDB:      dsp.TruePeakDB(master),
		JoinSpikes:      detectJoinSpikes(master, joinOffsets, rate),
	}
	if duration > 0 {
		d.EffectiveWPM = float64(words) / duration * 60
	}
	if words > 0 {
		d.TagDensity = float64(tags) / float64(words) * 10
	}
	return d
}

// classifyBreak buckets a pause by the nearest timing-table entry.
func (a *Assembler) classifyBreak(ms int) string {
	t := a.settings.Timing
	classes := []struct {
		name string
		ms   int
	}{
		{"comma", t.CommaMS},
		{"clause", t.ClauseMS},
		{"sentence", t.SentenceMS},
		{"question", t.QuestionMS},
		{"ellipsis", t.EllipsisMS},
		{"paragraph", t.ParagraphMS},
	}
	best := classes[0].name
	bestDist := math.Abs(float64(ms - classes[0].ms))
	for _, c := range classes[1:] {
		if dist := math.Abs(float64(ms - c.ms)); dist < bestDist {
			best, bestDist = c.name, dist
		}
	}
	return best
}

// detectJoinSpikes flags joins where the 10ms of audio after the join
// is far louder than the 10ms before it.
func detectJoinSpikes(master []float64, joinOffsets []int, rate int) []int {
	window := rate / 100
	if window == 0 {
		return nil
	}
	var spikes []int
	for _, off := range joinOffsets {
		if off < window || off+window > len(master) {
			continue
		}
		before := meanAbs(master[off-window : off])
		after := meanAbs(master[off : off+window])
		if before > 1e-6 && after/before > 4 {
			spikes = append(spikes, off)
		}
	}
	return spikes
}

func meanAbs(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += math.Abs(s)
	}
	return sum / float64(len(samples))
}
