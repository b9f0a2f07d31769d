// Package assembler turns per-chunk synthesis output into one mastered
// export file. Segments are decoded to float64, aligned to the export
// format, joined in chunk order and run through the mastering chain.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/voxweave-labs/voxweave-core/internal/dsp"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// Segment is one chunk's worth of synthesized audio.
type Segment struct {
	Index      int
	PCM        []byte
	SampleRate int
	Channels   int
}

// Assembler joins and masters segments under one immutable settings value.
type Assembler struct {
	settings tuning.Settings
	logger   *slog.Logger
}

func NewAssembler(settings tuning.Settings, logger *slog.Logger) *Assembler {
	return &Assembler{
		settings: settings,
		logger:   logger.With(slog.String("component", "assembler")),
	}
}

// Assemble produces the mastered mono master at the export sample rate
// plus the sample offset of each interior join. Every segment must be
// present; a gap in the index sequence is an error.
func (a *Assembler) Assemble(ctx context.Context, segments []Segment) ([]float64, []int, error) {
	if len(segments) == 0 {
		return nil, nil, fmt.Errorf("no segments to assemble")
	}
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for i, seg := range ordered {
		if seg.Index != i {
			return nil, nil, fmt.Errorf("segment sequence has a gap at index %d", i)
		}
		if len(seg.PCM) == 0 {
			return nil, nil, fmt.Errorf("segment %d carries no audio", i)
		}
	}

	rate := a.settings.Export.SampleRate
	fadeLen := a.settings.Mastering.CrossfadeMS * rate / 1000

	var master []float64
	var joins []int
	for _, seg := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		samples := dsp.DecodePCM16(seg.PCM)
		if seg.Channels > 1 {
			samples = dsp.FoldToMono(samples, seg.Channels)
		}
		if seg.SampleRate != rate {
			samples = dsp.Resample(samples, seg.SampleRate, rate)
		}
		if master == nil {
			master = samples
			continue
		}
		joins = append(joins, len(master))
		master = dsp.Crossfade(master, samples, fadeLen)
	}

	a.applyMastering(master)
	a.logger.Debug("assembled master",
		slog.Int("segments", len(ordered)),
		slog.Float64("duration_sec", float64(len(master))/float64(rate)))
	return master, joins, nil
}

func (a *Assembler) applyMastering(master []float64) {
	m := a.settings.Mastering
	rate := float64(a.settings.Export.SampleRate)

	if m.HighpassEnabled {
		dsp.NewHighPass(rate, m.HighpassHz).ProcessBlock(master)
	}
	if m.DeesserEnabled {
		dsp.DeEsser{LowHz: m.DeesserLowHz, HighHz: m.DeesserHighHz, MaxCutDB: m.DeesserAmountDB}.Process(master, rate)
	}
	if m.CompressorEnabled {
		dsp.Compressor{
			ThresholdDB: m.CompThresholdDB,
			Ratio:       m.CompRatio,
			AttackMS:    m.CompAttackMS,
			ReleaseMS:   m.CompReleaseMS,
			MakeupDB:    m.CompMakeupDB,
		}.Process(master, rate)
	}
	if m.LoudnessEnabled {
		lufs := dsp.IntegratedLUFS(master, rate)
		if lufs > -90 {
			dsp.GainDB(master, m.TargetLUFS-lufs)
		}
		dsp.LimitTruePeak(master, m.TruePeakDB)
	}
}
