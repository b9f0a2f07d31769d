package assembler

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/chunker"
	"github.com/voxweave-labs/voxweave-core/internal/dsp"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tonePCM(freq, amp float64, sampleRate int, seconds float64) []byte {
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return dsp.EncodePCM16(samples)
}

func TestAssembleMastersToTarget(t *testing.T) {
	settings := tuning.Default()
	a := NewAssembler(settings, testLogger())

	segments := []Segment{
		{Index: 0, PCM: tonePCM(400, 0.5, 44100, 2), SampleRate: 44100, Channels: 1},
		{Index: 1, PCM: tonePCM(300, 0.4, 44100, 2), SampleRate: 44100, Channels: 1},
	}
	master, joins, err := a.Assemble(context.Background(), segments)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(joins) != 1 {
		t.Fatalf("expected one join, got %d", len(joins))
	}

	lufs := dsp.IntegratedLUFS(master, 44100)
	if math.Abs(lufs-settings.Mastering.TargetLUFS) > 0.5 {
		t.Fatalf("mastered loudness %.2f LUFS, want %.2f", lufs, settings.Mastering.TargetLUFS)
	}
	if peak := dsp.TruePeakDB(master); peak > settings.Mastering.TruePeakDB+0.1 {
		t.Fatalf("true peak %.2f dBTP above ceiling %.2f", peak, settings.Mastering.TruePeakDB)
	}
}

func TestAssembleRestoresOrder(t *testing.T) {
	a := NewAssembler(tuning.Default(), testLogger())
	segments := []Segment{
		{Index: 1, PCM: tonePCM(300, 0.3, 44100, 0.5), SampleRate: 44100, Channels: 1},
		{Index: 0, PCM: tonePCM(400, 0.3, 44100, 0.5), SampleRate: 44100, Channels: 1},
	}
	master, _, err := a.Assemble(context.Background(), segments)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(master) == 0 {
		t.Fatal("empty master")
	}
}

func TestAssembleRejectsGaps(t *testing.T) {
	a := NewAssembler(tuning.Default(), testLogger())
	segments := []Segment{
		{Index: 0, PCM: tonePCM(400, 0.3, 44100, 0.5), SampleRate: 44100, Channels: 1},
		{Index: 2, PCM: tonePCM(300, 0.3, 44100, 0.5), SampleRate: 44100, Channels: 1},
	}
	if _, _, err := a.Assemble(context.Background(), segments); err == nil {
		t.Fatal("expected error for missing segment")
	}
}

func TestAssembleResamplesAndFolds(t *testing.T) {
	a := NewAssembler(tuning.Default(), testLogger())
	stereo := make([]float64, 22050*2)
	for i := 0; i < 22050; i++ {
		v := 0.3 * math.Sin(2*math.Pi*440*float64(i)/22050)
		stereo[i*2] = v
		stereo[i*2+1] = v
	}
	segments := []Segment{
		{Index: 0, PCM: dsp.EncodePCM16(stereo), SampleRate: 22050, Channels: 2},
	}
	master, _, err := a.Assemble(context.Background(), segments)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	// One second of audio at the export rate regardless of source format.
	if got := len(master); got < 43000 || got > 45000 {
		t.Fatalf("expected about 44100 samples, got %d", got)
	}
}

func TestExportWAVHeader(t *testing.T) {
	a := NewAssembler(tuning.Default(), testLogger())
	out, err := a.ExportWAV(make([]float64, 4410))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(out) < 44 {
		t.Fatalf("wav too short: %d bytes", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("bad wav header %q %q", out[0:4], out[8:12])
	}
}

func TestDiagnose(t *testing.T) {
	settings := tuning.Default()
	a := NewAssembler(settings, testLogger())

	chunks := []chunker.Chunk{
		{
			MarkupBody:    `One two three four five six.<break time="0.5s"/> Seven eight.<break time="0.25s"/>`,
			PlainTextBody: "One two three four five six. Seven eight.",
		},
	}
	master := make([]float64, 44100*4)
	d := a.Diagnose(master, chunks, nil)

	if d.WordCount != 8 {
		t.Fatalf("word count %d, want 8", d.WordCount)
	}
	if math.Abs(d.EffectiveWPM-120) > 0.01 {
		t.Fatalf("wpm %.2f, want 120", d.EffectiveWPM)
	}
	if d.BreakHistogram["sentence"] != 1 || d.BreakHistogram["comma"] != 1 {
		t.Fatalf("unexpected histogram %v", d.BreakHistogram)
	}
	if d.DurationSeconds != 4 {
		t.Fatalf("duration %.2f, want 4", d.DurationSeconds)
	}
}

func TestDetectJoinSpikes(t *testing.T) {
	master := make([]float64, 44100)
	for i := 22050; i < len(master); i++ {
		master[i] = 0.8
	}
	for i := 0; i < 22050; i++ {
		master[i] = 0.01
	}
	spikes := detectJoinSpikes(master, []int{22050}, 44100)
	if len(spikes) != 1 || spikes[0] != 22050 {
		t.Fatalf("expected spike at join, got %v", spikes)
	}
	if got := detectJoinSpikes(master, []int{100}, 44100); len(got) != 0 {
		t.Fatalf("expected no spike in quiet region, got %v", got)
	}
}
