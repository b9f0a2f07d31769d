// Package orchestrator drives per-chunk synthesis: cache lookups first,
// then provider calls in fixed-size batches with bounded workers, one
// retry for transient failures, and results re-sorted into chunk order.
// A single unrecoverable failure fails the whole run; no partial audio
// is ever returned.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/voxweave-labs/voxweave-core/internal/assembler"
	"github.com/voxweave-labs/voxweave-core/internal/cache"
	"github.com/voxweave-labs/voxweave-core/internal/chunker"
	"github.com/voxweave-labs/voxweave-core/internal/dsp"
	"github.com/voxweave-labs/voxweave-core/internal/synth"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// Progress is invoked after each chunk completes, from worker goroutines.
type Progress func(done, total int)

type Orchestrator struct {
	synth      synth.Synthesizer
	cache      *cache.Cache
	settings   tuning.Settings
	workers    int
	batchDelay time.Duration
	seed       int64
	logger     *slog.Logger
}

func New(s synth.Synthesizer, c *cache.Cache, settings tuning.Settings, workers int, batchDelay time.Duration, seed int64, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		synth:      s,
		cache:      c,
		settings:   settings,
		workers:    workers,
		batchDelay: batchDelay,
		seed:       seed,
		logger:     logger.With(slog.String("component", "orchestrator")),
	}
}

// Synthesize renders every chunk to a segment. Chunks are processed in
// batches of the worker count; a delay between batches keeps bursty
// providers happy. Results come back ordered by chunk index.
func (o *Orchestrator) Synthesize(ctx context.Context, chunks []chunker.Chunk, progress Progress) ([]assembler.Segment, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	segments := make([]assembler.Segment, len(chunks))
	var done atomic.Int64
	var firstErr error
	var errOnce sync.Once

	for start := 0; start < len(chunks); start += o.workers {
		if start > 0 && o.batchDelay > 0 {
			select {
			case <-time.After(o.batchDelay):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}
		end := start + o.workers
		if end > len(chunks) {
			end = len(chunks)
		}

		var wg sync.WaitGroup
		for _, chunk := range chunks[start:end] {
			wg.Add(1)
			go func(c chunker.Chunk) {
				defer wg.Done()
				seg, err := o.renderChunk(ctx, c)
				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("chunk %d: %w", c.Index, err)
						cancel()
					})
					return
				}
				segments[c.Index] = seg
				if progress != nil {
					progress(int(done.Add(1)), len(chunks))
				}
			}(chunk)
		}
		wg.Wait()
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func (o *Orchestrator) renderChunk(ctx context.Context, chunk chunker.Chunk) (assembler.Segment, error) {
	subset := o.settings.SynthesisSubset()

	if pcm, ok := o.cache.Get(ctx, chunk.ContentHash); ok {
		o.logger.Debug("cache hit", slog.Int("chunk", chunk.Index))
		return assembler.Segment{
			Index:      chunk.Index,
			PCM:        pcm,
			SampleRate: subset.SampleRate,
			Channels:   subset.Channels,
		}, nil
	}

	capability := synth.CapabilityFor(o.settings.Voice.ModelClass)
	body := synth.RewriteForModel(chunk.MarkupBody, capability, o.settings.Timing)

	attempt := 0
	operation := func() (synth.Result, error) {
		req := o.buildRequest(chunk, body, capability, attempt)
		attempt++
		result, err := o.synth.Synthesize(ctx, req)
		if err == nil {
			return result, nil
		}
		if synth.Retryable(err) {
			o.logger.Warn("transient synthesis failure",
				slog.Int("chunk", chunk.Index),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return synth.Result{}, err
		}
		return synth.Result{}, backoff.Permanent(err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond
	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(2))
	if err != nil {
		return assembler.Segment{}, err
	}

	pcm := conformPCM(result.PCM, result.SampleRate, result.Channels, subset)
	o.cache.Put(ctx, chunk.ContentHash, pcm)
	return assembler.Segment{
		Index:      chunk.Index,
		PCM:        pcm,
		SampleRate: subset.SampleRate,
		Channels:   subset.Channels,
	}, nil
}

// conformPCM folds and resamples provider output into the synthesis
// subset's format before it is cached, so a provider that reports a
// deviating rate replays at the right pitch on cache hits.
func conformPCM(pcm []byte, fromRate, fromChannels int, subset tuning.SynthesisSubset) []byte {
	if fromRate == subset.SampleRate && fromChannels == subset.Channels {
		return pcm
	}
	samples := dsp.DecodePCM16(pcm)
	if fromChannels > 1 {
		samples = dsp.FoldToMono(samples, fromChannels)
	}
	if fromRate != subset.SampleRate {
		samples = dsp.Resample(samples, fromRate, subset.SampleRate)
	}
	if subset.Channels > 1 {
		interleaved := make([]float64, 0, len(samples)*subset.Channels)
		for _, s := range samples {
			for c := 0; c < subset.Channels; c++ {
				interleaved = append(interleaved, s)
			}
		}
		samples = interleaved
	}
	return dsp.EncodePCM16(samples)
}

// buildRequest assembles the provider request. Retries perturb the
// stability/similarity pair within a small bounded range so a model
// that produced a degenerate take gets a genuinely different roll.
func (o *Orchestrator) buildRequest(chunk chunker.Chunk, body string, capability synth.Capability, attempt int) synth.Request {
	voice := o.settings.Voice
	if attempt > 0 {
		rng := rand.New(rand.NewSource(o.seed + int64(chunk.Index)*31 + int64(attempt)))
		voice.Stability = clampUnit(voice.Stability + (rng.Float64()-0.5)*0.1)
		voice.Similarity = clampUnit(voice.Similarity + (rng.Float64()-0.5)*0.1)
	}

	req := synth.Request{
		Body:       body,
		ModelID:    voice.ModelID,
		VoiceID:    voice.VoiceID,
		Voice:      voice,
		SampleRate: o.settings.Export.SampleRate,
		Channels:   o.settings.Export.Channels,
	}
	if capability.SupportsContext {
		req.PreviousContext = chunk.PreviousContext
		req.NextContext = chunk.NextContext
	}
	if capability.SupportsSeed {
		req.Seed = o.seed + int64(chunk.Index)
	}
	return req
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
