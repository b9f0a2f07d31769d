// Package render owns the render-job lifecycle: it validates and chunks
// scripts synchronously, then synthesizes and masters asynchronously,
// reporting progress through the store and the bus. A render either
// yields one complete artifact or fails with no audio at all.
package render

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxweave-labs/voxweave-core/internal/assembler"
	"github.com/voxweave-labs/voxweave-core/internal/blobstore"
	"github.com/voxweave-labs/voxweave-core/internal/bus"
	"github.com/voxweave-labs/voxweave-core/internal/cache"
	"github.com/voxweave-labs/voxweave-core/internal/chunker"
	"github.com/voxweave-labs/voxweave-core/internal/config"
	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/voxweave-labs/voxweave-core/internal/orchestrator"
	"github.com/voxweave-labs/voxweave-core/internal/protocol"
	"github.com/voxweave-labs/voxweave-core/internal/renderstore"
	"github.com/voxweave-labs/voxweave-core/internal/synth"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

// ErrScriptTooLong is returned when the script exceeds the configured cap.
var ErrScriptTooLong = errors.New("script exceeds maximum length")

// ErrNotFound is returned when no render matches the requested ID.
var ErrNotFound = errors.New("render not found")

// Service accepts render requests and drives them to completion.
type Service struct {
	cfg    config.Config
	store  *renderstore.Store
	cache  *cache.Cache
	blobs  blobstore.Store
	synth  synth.Synthesizer
	bus    *bus.Client
	log    *slog.Logger
	tracer trace.Tracer
	clock  func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	seed int64

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(cfg config.Config, store *renderstore.Store, audioCache *cache.Cache, blobs blobstore.Store, synthesizer synth.Synthesizer, busClient *bus.Client, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:     cfg,
		store:   store,
		cache:   audioCache,
		blobs:   blobs,
		synth:   synthesizer,
		bus:     busClient,
		log:     logger.With(slog.String("component", "render")),
		tracer:  otel.Tracer("voxweave/render"),
		clock:   time.Now,
		jobs:    make(map[string]*job),
		seed:    time.Now().UnixNano(),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Close stops accepting work and waits for in-flight renders to wind down.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Healthy reports whether the service can accept renders.
func (s *Service) Healthy() bool {
	return s.baseCtx.Err() == nil
}

// StartRender validates, annotates and chunks the script synchronously,
// then schedules synthesis and assembly in the background. The returned
// render ID can be polled with Status immediately; the stats describe
// the chunk plan the render will execute.
func (s *Service) StartRender(ctx context.Context, script string, settings tuning.Settings) (string, chunker.Stats, error) {
	ctx, span := s.tracer.Start(ctx, "render.start")
	defer span.End()

	if err := s.baseCtx.Err(); err != nil {
		return "", chunker.Stats{}, fmt.Errorf("service shutting down: %w", err)
	}
	if max := s.cfg.Synthesis.MaxScriptLen; max > 0 && len(script) > max {
		return "", chunker.Stats{}, fmt.Errorf("%w: %d chars, limit %d", ErrScriptTooLong, len(script), max)
	}

	renderID := uuid.NewString()
	j := newJob(renderID, s.clock)

	pipeline := markup.NewPipeline(settings, rand.New(rand.NewSource(s.nextSeed())))
	doc, err := pipeline.Annotate(script)
	if err != nil {
		return "", chunker.Stats{}, err
	}
	j.finishStep(StepMarkup)
	chunks := chunker.Split(doc, settings)
	if len(chunks) == 0 {
		return "", chunker.Stats{}, markup.ErrEmptyScript
	}
	j.finishStep(StepChunk)
	stats := chunker.Summarize(chunks)

	span.SetAttributes(
		attribute.String("render.id", renderID),
		attribute.Int("render.chunks", len(chunks)),
	)

	j.setTotal(len(chunks))
	s.mu.Lock()
	s.jobs[renderID] = j
	s.mu.Unlock()

	scriptSum := blake3.Sum256([]byte(script))
	settingsSum := blake3.Sum256(settings.SynthesisSubset().Canonical())
	if err := s.store.CreateRender(ctx, renderstore.RenderRecord{
		RenderID:     renderID,
		State:        string(StateQueued),
		ScriptHash:   hex.EncodeToString(scriptSum[:]),
		SettingsHash: hex.EncodeToString(settingsSum[:]),
		ScriptChars:  len(script),
		Total:        len(chunks),
	}); err != nil {
		return "", chunker.Stats{}, fmt.Errorf("persist render: %w", err)
	}
	manifest := make([]renderstore.ManifestEntry, len(chunks))
	for i, c := range chunks {
		manifest[i] = renderstore.ManifestEntry{
			ChunkIndex:   c.Index,
			ContentHash:  c.ContentHash,
			CharCount:    c.CharCount,
			EstimatedSec: c.EstimatedDurationSec,
		}
	}
	if err := s.store.PutManifest(ctx, renderID, manifest); err != nil {
		return "", chunker.Stats{}, fmt.Errorf("persist manifest: %w", err)
	}

	s.publish(protocol.SubjectRenderQueuedPrefix, renderID, protocol.RenderQueued{
		RenderID:   renderID,
		ScriptSize: len(script),
		VoiceID:    settings.Voice.VoiceID,
		ModelID:    settings.Voice.ModelID,
		QueuedAt:   s.clock().UTC(),
	})
	s.log.Info("render queued",
		slog.String("render_id", renderID),
		slog.Int("chunks", len(chunks)),
		slog.Int("script_chars", len(script)))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(renderID, j, chunks, settings)
	}()
	return renderID, stats, nil
}

// Status reports the current state of a render, consulting live jobs
// first and falling back to the store for restarts.
func (s *Service) Status(ctx context.Context, renderID string) (Snapshot, error) {
	s.mu.Lock()
	j, ok := s.jobs[renderID]
	s.mu.Unlock()
	if ok {
		return j.snapshot(), nil
	}

	rec, err := s.store.GetRender(ctx, renderID)
	if errors.Is(err, renderstore.ErrNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		RenderID:        rec.RenderID,
		State:           State(rec.State),
		Step:            rec.Step,
		Done:            rec.Done,
		Total:           rec.Total,
		Error:           rec.Error,
		ArtifactKey:     rec.ArtifactKey,
		DurationSeconds: rec.DurationSeconds,
		IntegratedLUFS:  rec.IntegratedLUFS,
		TruePeakDB:      rec.TruePeakDB,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

// Events returns the recorded lifecycle trail for a render. Empty in
// ephemeral mode.
func (s *Service) Events(ctx context.Context, renderID string, limit int) ([]renderstore.Event, error) {
	return s.store.ListEvents(ctx, renderID, limit)
}

// Artifact fetches the finished master for a completed render.
func (s *Service) Artifact(ctx context.Context, renderID string) ([]byte, error) {
	snap, err := s.Status(ctx, renderID)
	if err != nil {
		return nil, err
	}
	if snap.State != StateDone || snap.ArtifactKey == "" {
		return nil, fmt.Errorf("render %s has no artifact", renderID)
	}
	return s.blobs.Get(ctx, snap.ArtifactKey)
}

func (s *Service) run(renderID string, j *job, chunks []chunker.Chunk, settings tuning.Settings) {
	ctx, span := s.tracer.Start(s.baseCtx, "render.run",
		trace.WithAttributes(attribute.String("render.id", renderID)))
	defer span.End()

	j.progress(StepSynthesize, 0, len(chunks))
	s.persistProgress(ctx, renderID, j)

	orch := orchestrator.New(s.synth, s.cache, settings,
		s.cfg.Synthesis.Workers,
		time.Duration(s.cfg.Synthesis.BatchDelayMS)*time.Millisecond,
		s.nextSeed(), s.log)
	segments, err := orch.Synthesize(ctx, chunks, func(done, total int) {
		j.progress(StepSynthesize, done, total)
		s.persistProgress(ctx, renderID, j)
	})
	if err != nil {
		s.failRender(ctx, renderID, j, StepSynthesize, err)
		return
	}
	j.finishStep(StepSynthesize)

	j.progress(StepAssemble, 0, 1)
	s.persistProgress(ctx, renderID, j)

	asm := assembler.NewAssembler(settings, s.log)
	master, joins, err := asm.Assemble(ctx, segments)
	if err != nil {
		s.failRender(ctx, renderID, j, StepAssemble, err)
		return
	}
	wavBytes, err := asm.ExportWAV(master)
	if err != nil {
		s.failRender(ctx, renderID, j, StepAssemble, err)
		return
	}

	sum := blake3.Sum256(wavBytes)
	artifactKey := hex.EncodeToString(sum[:])
	if _, err := s.blobs.Put(ctx, artifactKey, wavBytes); err != nil {
		s.failRender(ctx, renderID, j, StepAssemble, fmt.Errorf("store artifact: %w", err))
		return
	}

	diag := asm.Diagnose(master, chunks, joins)
	j.finishStep(StepAssemble)
	j.complete(artifactKey, diag)
	if err := s.store.MarkDone(ctx, renderID, artifactKey, diag.DurationSeconds, diag.IntegratedLUFS, diag.TruePeakDB); err != nil {
		s.log.Warn("persist completion failed",
			slog.String("render_id", renderID),
			slog.String("error", err.Error()))
	}
	s.publish(protocol.SubjectRenderCompletedPrefix, renderID, protocol.RenderCompleted{
		RenderID:        renderID,
		ArtifactKey:     artifactKey,
		DurationSeconds: diag.DurationSeconds,
		IntegratedLUFS:  diag.IntegratedLUFS,
		TruePeakDB:      diag.TruePeakDB,
		CompletedAt:     s.clock().UTC(),
	})
	s.log.Info("render completed",
		slog.String("render_id", renderID),
		slog.Float64("duration_sec", diag.DurationSeconds),
		slog.Float64("integrated_lufs", diag.IntegratedLUFS),
		slog.Float64("true_peak_db", diag.TruePeakDB),
		slog.Int("join_spikes", len(diag.JoinSpikes)))
	if len(diag.JoinSpikes) > 0 {
		s.log.Warn("uneven joins detected",
			slog.String("render_id", renderID),
			slog.Int("count", len(diag.JoinSpikes)))
	}
}

func (s *Service) failRender(ctx context.Context, renderID string, j *job, step string, cause error) {
	j.fail(step, cause.Error())
	if err := s.store.MarkFailed(ctx, renderID, step, cause.Error()); err != nil {
		s.log.Warn("persist failure failed",
			slog.String("render_id", renderID),
			slog.String("error", err.Error()))
	}
	s.publish(protocol.SubjectRenderFailedPrefix, renderID, protocol.RenderFailed{
		RenderID: renderID,
		Step:     step,
		Reason:   cause.Error(),
		FailedAt: s.clock().UTC(),
	})
	s.log.Error("render failed",
		slog.String("render_id", renderID),
		slog.String("step", step),
		slog.String("error", cause.Error()))
}

func (s *Service) persistProgress(ctx context.Context, renderID string, j *job) {
	snap := j.snapshot()
	if err := s.store.UpdateProgress(ctx, renderID, string(snap.State), snap.Step, snap.Done, snap.Total); err != nil {
		s.log.Warn("persist progress failed",
			slog.String("render_id", renderID),
			slog.String("error", err.Error()))
	}
	s.publish(protocol.SubjectRenderProgressPrefix, renderID, protocol.RenderProgress{
		RenderID:  renderID,
		Step:      snap.Step,
		Done:      snap.Done,
		Total:     snap.Total,
		Timestamp: snap.UpdatedAt.UTC(),
	})
}

// publish emits a lifecycle event on the bus and records it in the
// store's event trail. Neither sink failing affects the render.
func (s *Service) publish(prefix, renderID string, payload any) {
	if data, err := json.Marshal(payload); err == nil {
		if err := s.store.AppendEvent(s.baseCtx, renderstore.Event{
			RenderID: renderID,
			Type:     prefix,
			Payload:  data,
		}); err != nil {
			s.log.Warn("event trail write failed",
				slog.String("render_id", renderID),
				slog.String("error", err.Error()))
		}
	}
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(prefix+"."+renderID, payload); err != nil {
		s.log.Warn("bus publish failed",
			slog.String("subject", prefix),
			slog.String("error", err.Error()))
	}
}

func (s *Service) nextSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed++
	return s.seed
}
