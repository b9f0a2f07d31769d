package dsp

import "encoding/binary"

// DecodePCM16 converts little-endian 16-bit PCM bytes into float64
// samples in [-1, 1). A trailing odd byte is dropped.
func DecodePCM16(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float64(v) / 32768.0
	}
	return out
}

// EncodePCM16 converts float64 samples into little-endian 16-bit PCM
// bytes, clipping out-of-range values.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
