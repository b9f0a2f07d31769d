package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/voxweave-labs/voxweave-core/internal/assembler"
	"github.com/voxweave-labs/voxweave-core/internal/blobstore"
	"github.com/voxweave-labs/voxweave-core/internal/cache"
	"github.com/voxweave-labs/voxweave-core/internal/config"
	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/voxweave-labs/voxweave-core/internal/renderstore"
	"github.com/voxweave-labs/voxweave-core/internal/synth"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testService(t *testing.T, synthesizer synth.Synthesizer) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Synthesis.Workers = 2
	cfg.Synthesis.BatchDelayMS = 0
	cfg.Synthesis.MaxScriptLen = 10000
	cfg.Store.Ephemeral = true

	store, err := renderstore.Open(context.Background(), cfg.Store, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	blobs := blobstore.NewMemStore()
	audioCache, err := cache.New(blobstore.NewMemStore(), 32, testLogger())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	svc := NewService(cfg, store, audioCache, blobs, synthesizer, nil, testLogger())
	t.Cleanup(svc.Close)
	return svc
}

func waitForTerminal(t *testing.T, svc *Service, renderID string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := svc.Status(context.Background(), renderID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if snap.State == StateDone || snap.State == StateFailed {
			return snap
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("render did not reach a terminal state")
	return Snapshot{}
}

func TestRenderEndToEnd(t *testing.T) {
	svc := testService(t, synth.NewMockSynth(44100, 1))
	script := "The morning fog lifted slowly over the harbor. Boats creaked at their moorings. Somewhere a bell rang twice."

	renderID, stats, err := svc.StartRender(context.Background(), script, tuning.Default())
	if err != nil {
		t.Fatalf("start render: %v", err)
	}
	if stats.Chunks < 1 || stats.TotalEstimatedSec <= 0 {
		t.Fatalf("implausible chunk stats %+v", stats)
	}
	snap := waitForTerminal(t, svc, renderID)
	if snap.State != StateDone {
		t.Fatalf("render ended %s: %s", snap.State, snap.Error)
	}
	if snap.ArtifactKey == "" {
		t.Fatal("completed render has no artifact key")
	}
	if snap.DurationSeconds <= 0 {
		t.Fatalf("duration %.2f", snap.DurationSeconds)
	}
	if snap.Diagnostics == nil || snap.Diagnostics.WordCount == 0 {
		t.Fatalf("diagnostics missing from completed render: %+v", snap.Diagnostics)
	}
	want := []string{StepMarkup, StepChunk, StepSynthesize, StepAssemble}
	if len(snap.StepsDone) != len(want) {
		t.Fatalf("steps done %v, want %v", snap.StepsDone, want)
	}
	for i, step := range want {
		if snap.StepsDone[i] != step {
			t.Fatalf("steps done %v, want %v", snap.StepsDone, want)
		}
	}

	wav, err := svc.Artifact(context.Background(), renderID)
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if len(wav) < 44 || string(wav[0:4]) != "RIFF" {
		t.Fatalf("artifact is not a wav file (%d bytes)", len(wav))
	}
}

func TestRenderFailsAtomically(t *testing.T) {
	mock := synth.NewMockSynth(44100, 1)
	mock.FailWith = synth.NewProviderError(synth.ErrClassAuth, errors.New("invalid key"))
	svc := testService(t, mock)

	renderID, _, err := svc.StartRender(context.Background(), "A short doomed script.", tuning.Default())
	if err != nil {
		t.Fatalf("start render: %v", err)
	}
	snap := waitForTerminal(t, svc, renderID)
	if snap.State != StateFailed {
		t.Fatalf("expected failure, got %s", snap.State)
	}
	if !strings.Contains(snap.Error, "invalid key") {
		t.Fatalf("error lost: %q", snap.Error)
	}
	if snap.ArtifactKey != "" {
		t.Fatal("failed render must not expose an artifact")
	}
	if _, err := svc.Artifact(context.Background(), renderID); err == nil {
		t.Fatal("artifact fetch should fail for a failed render")
	}
}

func TestStartRenderValidation(t *testing.T) {
	svc := testService(t, synth.NewMockSynth(44100, 1))

	if _, _, err := svc.StartRender(context.Background(), "", tuning.Default()); !errors.Is(err, markup.ErrEmptyScript) {
		t.Fatalf("empty script: %v", err)
	}
	long := strings.Repeat("word ", 3000)
	if _, _, err := svc.StartRender(context.Background(), long, tuning.Default()); !errors.Is(err, ErrScriptTooLong) {
		t.Fatalf("long script: %v", err)
	}
}

func TestStatusUnknownRender(t *testing.T) {
	svc := testService(t, synth.NewMockSynth(44100, 1))
	if _, err := svc.Status(context.Background(), "no-such-render"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobProgressNeverRegresses(t *testing.T) {
	j := newJob("r", time.Now)
	j.progress(StepSynthesize, 3, 5)
	j.progress(StepSynthesize, 1, 5)
	if snap := j.snapshot(); snap.Done != 3 {
		t.Fatalf("progress regressed to %d", snap.Done)
	}
	j.progress(StepAssemble, 0, 1)
	if snap := j.snapshot(); snap.Step != StepAssemble || snap.Done != 0 {
		t.Fatalf("step change should reset counts: %+v", j.snapshot())
	}
}

func TestJobFinishedStepsStayMarked(t *testing.T) {
	j := newJob("r", time.Now)
	j.finishStep(StepMarkup)
	j.finishStep(StepChunk)
	j.finishStep(StepMarkup)
	snap := j.snapshot()
	if len(snap.StepsDone) != 2 || snap.StepsDone[0] != StepMarkup || snap.StepsDone[1] != StepChunk {
		t.Fatalf("steps done %v", snap.StepsDone)
	}
	snap.StepsDone[0] = "mutated"
	if again := j.snapshot(); again.StepsDone[0] != StepMarkup {
		t.Fatalf("snapshot shares step slice with the job: %v", again.StepsDone)
	}
}

func TestJobTerminalStatesAreImmutable(t *testing.T) {
	j := newJob("r", time.Now)
	j.fail(StepSynthesize, "boom")
	j.complete("key", assembler.Diagnostics{DurationSeconds: 1})
	if snap := j.snapshot(); snap.State != StateFailed {
		t.Fatalf("terminal state overwritten: %s", snap.State)
	}
	j.progress(StepAssemble, 1, 1)
	if snap := j.snapshot(); snap.State != StateFailed || snap.Error != "boom" {
		t.Fatalf("terminal job mutated: %+v", snap)
	}
}
