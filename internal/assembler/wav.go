package assembler

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ExportWAV encodes the mono master as a 16-bit WAV at the export
// format, duplicating the channel for multi-channel exports.
func (a *Assembler) ExportWAV(master []float64) ([]byte, error) {
	rate := a.settings.Export.SampleRate
	channels := a.settings.Export.Channels
	if channels < 1 {
		channels = 1
	}

	data := make([]int, len(master)*channels)
	for i, s := range master {
		v := int(s * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		for c := 0; c < channels; c++ {
			data[i*channels+c] = v
		}
	}
	buffer := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:   data,
	}

	var sink seekBuffer
	enc := wav.NewEncoder(&sink, rate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return sink.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back
// to patch the header once the payload length is known.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.buf) {
		b.buf = append(b.buf, make([]byte, need-len(b.buf))...)
	}
	copy(b.buf[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("unsupported whence")
	}
	if next < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = int(next)
	return next, nil
}
