package dsp

import "math"

// Compressor is a feed-forward peak compressor with a log-domain gain
// computer and one-pole attack/release smoothing.
type Compressor struct {
	ThresholdDB float64
	Ratio       float64
	AttackMS    float64
	ReleaseMS   float64
	MakeupDB    float64
}

// Process applies compression in place and returns the peak gain
// reduction in dB that was observed.
func (c Compressor) Process(samples []float64, sampleRate float64) float64 {
	if c.Ratio <= 1 {
		return 0
	}
	attack := envCoeff(c.AttackMS, sampleRate)
	release := envCoeff(c.ReleaseMS, sampleRate)
	makeup := dbToLin(c.MakeupDB)

	env := 0.0
	maxReduction := 0.0
	for i, s := range samples {
		level := math.Abs(s)
		if level > env {
			env = attack*env + (1-attack)*level
		} else {
			env = release*env + (1-release)*level
		}

		levelDB := linToDB(env)
		reduction := 0.0
		if levelDB > c.ThresholdDB {
			reduction = (levelDB - c.ThresholdDB) * (1 - 1/c.Ratio)
		}
		if reduction > maxReduction {
			maxReduction = reduction
		}
		samples[i] = s * dbToLin(-reduction) * makeup
	}
	return maxReduction
}

// DeEsser attenuates sibilant energy in the [LowHz, HighHz] band. The
// sidechain is a band-pass centered on the geometric mean of the band
// edges; reduction tracks how far the band exceeds the broadband level
// and is capped at MaxCutDB.
type DeEsser struct {
	LowHz    float64
	HighHz   float64
	MaxCutDB float64
}

func (d DeEsser) Process(samples []float64, sampleRate float64) {
	if d.MaxCutDB <= 0 || len(samples) == 0 || d.HighHz <= d.LowHz {
		return
	}
	center := math.Sqrt(d.LowHz * d.HighHz)
	q := center / (d.HighHz - d.LowHz)
	side := NewBandPass(sampleRate, center, q)
	attack := envCoeff(0.5, sampleRate)
	release := envCoeff(30, sampleRate)
	broadCoeff := envCoeff(50, sampleRate)

	bandEnv, broadEnv := 0.0, 0.0
	for i, s := range samples {
		band := math.Abs(side.Process(s))
		if band > bandEnv {
			bandEnv = attack*bandEnv + (1-attack)*band
		} else {
			bandEnv = release*bandEnv + (1-release)*band
		}
		broadEnv = broadCoeff*broadEnv + (1-broadCoeff)*math.Abs(s)

		// Sibilance shows as band energy approaching the broadband level.
		excess := linToDB(bandEnv) - (linToDB(broadEnv) - 6)
		if excess > 0 {
			cut := math.Min(excess, d.MaxCutDB)
			samples[i] = s * dbToLin(-cut)
		}
	}
}

func envCoeff(ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1 / (ms / 1000 * sampleRate))
}

func dbToLin(db float64) float64 { return math.Pow(10, db/20) }

func linToDB(lin float64) float64 {
	if lin <= 1e-10 {
		return -200
	}
	return 20 * math.Log10(lin)
}
