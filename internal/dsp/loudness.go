package dsp

import "math"

// IntegratedLUFS measures integrated loudness per ITU-R BS.1770-4 for a
// mono signal: K-weighting (shelving boost + high-pass), 400ms blocks
// with 75% overlap, absolute gate at -70 LUFS and a relative gate 10 LU
// below the ungated mean.
func IntegratedLUFS(samples []float64, sampleRate float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	weighted := make([]float64, len(samples))
	copy(weighted, samples)
	shelf := NewHighShelf(sampleRate, 1681.97, 3.99984)
	hp := NewHighPass(sampleRate, 38.13547)
	shelf.ProcessBlock(weighted)
	hp.ProcessBlock(weighted)

	blockLen := int(0.4 * sampleRate)
	hop := blockLen / 4
	if blockLen == 0 || len(weighted) < blockLen {
		blockLen = len(weighted)
		hop = blockLen
	}

	var powers []float64
	for start := 0; start+blockLen <= len(weighted); start += hop {
		sum := 0.0
		for _, s := range weighted[start : start+blockLen] {
			sum += s * s
		}
		powers = append(powers, sum/float64(blockLen))
	}
	if len(powers) == 0 {
		return math.Inf(-1)
	}

	// Absolute gate.
	absThreshold := math.Pow(10, (-70+0.691)/10)
	var gated []float64
	for _, p := range powers {
		if p >= absThreshold {
			gated = append(gated, p)
		}
	}
	if len(gated) == 0 {
		return math.Inf(-1)
	}

	// Relative gate 10 LU below the mean of absolutely gated blocks.
	mean := 0.0
	for _, p := range gated {
		mean += p
	}
	mean /= float64(len(gated))
	relThreshold := mean * math.Pow(10, -1)

	sum, n := 0.0, 0
	for _, p := range gated {
		if p >= relThreshold {
			sum += p
			n++
		}
	}
	if n == 0 {
		return math.Inf(-1)
	}
	return -0.691 + 10*math.Log10(sum/float64(n))
}

// TruePeakDB estimates the true peak in dBTP using 4x linear-phase
// oversampling with a windowed-sinc interpolation kernel.
func TruePeakDB(samples []float64) float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	const taps = 8
	for i := range samples {
		for _, phase := range []float64{0.25, 0.5, 0.75} {
			v := 0.0
			for k := -taps; k <= taps; k++ {
				idx := i + k
				if idx < 0 || idx >= len(samples) {
					continue
				}
				x := float64(k) - phase
				v += samples[idx] * sincHann(x, taps)
			}
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return linToDB(peak)
}

func sincHann(x float64, taps int) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	sinc := math.Sin(px) / px
	window := 0.5 * (1 + math.Cos(px/float64(taps+1)))
	return sinc * window
}

// GainDB scales samples in place by the given dB amount.
func GainDB(samples []float64, db float64) {
	g := dbToLin(db)
	for i := range samples {
		samples[i] *= g
	}
}

// LimitTruePeak applies gain reduction so the true peak does not exceed
// ceilingDB, then hard-clips any residual overshoot at the sample level.
func LimitTruePeak(samples []float64, ceilingDB float64) float64 {
	peak := TruePeakDB(samples)
	if peak <= ceilingDB {
		return 0
	}
	reduction := peak - ceilingDB
	GainDB(samples, -reduction)
	ceiling := dbToLin(ceilingDB)
	for i, s := range samples {
		if s > ceiling {
			samples[i] = ceiling
		} else if s < -ceiling {
			samples[i] = -ceiling
		}
	}
	return reduction
}
