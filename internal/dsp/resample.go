package dsp

import "math"

// Resample converts samples from one rate to another with linear
// interpolation. Voice content has little energy near Nyquist so a
// polyphase filter bank is not warranted here.
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || len(samples) == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}

// FoldToMono averages interleaved multi-channel samples down to one
// channel. Mono input is returned as a copy.
func FoldToMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Crossfade joins two segments with an equal-power fade over fadeLen
// samples. When either segment is shorter than the fade the segments
// are concatenated directly.
func Crossfade(a, b []float64, fadeLen int) []float64 {
	if fadeLen <= 0 || len(a) < fadeLen || len(b) < fadeLen {
		out := make([]float64, 0, len(a)+len(b))
		out = append(out, a...)
		return append(out, b...)
	}
	out := make([]float64, 0, len(a)+len(b)-fadeLen)
	out = append(out, a[:len(a)-fadeLen]...)
	tail := a[len(a)-fadeLen:]
	for i := 0; i < fadeLen; i++ {
		t := float64(i) / float64(fadeLen)
		gOut := equalPowerGain(1 - t)
		gIn := equalPowerGain(t)
		out = append(out, tail[i]*gOut+b[i]*gIn)
	}
	return append(out, b[fadeLen:]...)
}

func equalPowerGain(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	// sqrt law: gOut^2 + gIn^2 == 1 across the fade.
	return math.Sqrt(t)
}
