package synth

import (
	"context"
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/zeebo/blake3"
)

// MockSynth renders a deterministic tone whose frequency and length derive
// from the request body, so identical requests always yield identical bytes.
// It counts calls, which the cache tests lean on.
type MockSynth struct {
	sampleRate int
	channels   int
	calls      atomic.Int64

	// FailWith, when set, is returned for every call.
	FailWith error
	// FailOnce is consumed by the first call.
	FailOnce error
}

// NewMockSynth builds a mock provider at the given output format.
func NewMockSynth(sampleRate, channels int) *MockSynth {
	return &MockSynth{sampleRate: sampleRate, channels: channels}
}

// Calls reports how many synthesis calls reached the provider.
func (m *MockSynth) Calls() int64 { return m.calls.Load() }

func (m *MockSynth) Synthesize(ctx context.Context, req Request) (Result, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return Result{}, NewProviderError(ErrClassTimeout, err)
	}
	if m.FailWith != nil {
		return Result{}, m.FailWith
	}
	if m.FailOnce != nil {
		err := m.FailOnce
		m.FailOnce = nil
		return Result{}, err
	}

	rate := m.sampleRate
	if req.SampleRate > 0 {
		rate = req.SampleRate
	}
	channels := m.channels
	if req.Channels > 0 {
		channels = req.Channels
	}

	plain := markup.StripTags(req.Body)
	words := markup.CountWords(plain)
	durSec := float64(words) / 150.0 * 60.0
	if durSec < 0.2 {
		durSec = 0.2
	}

	sum := blake3.Sum256([]byte(req.Body))
	freq := 180.0 + float64(binary.LittleEndian.Uint16(sum[:2])%240)

	frames := int(durSec * float64(rate))
	pcm := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		v := 0.25 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		sample := int16(v * math.MaxInt16)
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(pcm[(i*channels+ch)*2:], uint16(sample))
		}
	}
	return Result{PCM: pcm, SampleRate: rate, Channels: channels}, nil
}
