package renderstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxweave-labs/voxweave-core/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.StoreConfig{DatabasePath: filepath.Join(t.TempDir(), "renders.db")}
	s, err := Open(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRenderLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := RenderRecord{
		RenderID:     "r-1",
		State:        "queued",
		ScriptHash:   "aaaa",
		SettingsHash: "bbbb",
		ScriptChars:  420,
	}
	if err := s.CreateRender(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.UpdateProgress(ctx, "r-1", "running", "synthesize", 2, 5); err != nil {
		t.Fatalf("progress: %v", err)
	}
	got, err := s.GetRender(ctx, "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "running" || got.Step != "synthesize" || got.Done != 2 || got.Total != 5 {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.ScriptChars != 420 {
		t.Fatalf("script chars %d, want 420", got.ScriptChars)
	}
	if got.ScriptHash != "aaaa" || got.SettingsHash != "bbbb" {
		t.Fatalf("hashes not stored: %+v", got)
	}

	if err := s.MarkDone(ctx, "r-1", "artifact-key", 120.5, -14.1, -1.2); err != nil {
		t.Fatalf("done: %v", err)
	}
	got, err = s.GetRender(ctx, "r-1")
	if err != nil {
		t.Fatalf("get after done: %v", err)
	}
	if got.State != "done" || got.ArtifactKey != "artifact-key" {
		t.Fatalf("unexpected terminal record %+v", got)
	}
	if got.DurationSeconds != 120.5 || got.IntegratedLUFS != -14.1 {
		t.Fatalf("measurements not stored: %+v", got)
	}
}

func TestMarkFailedStoresReason(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateRender(ctx, RenderRecord{RenderID: "r-2", State: "queued"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.MarkFailed(ctx, "r-2", "synthesize", "provider auth error"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, err := s.GetRender(ctx, "r-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "failed" || got.Error != "provider auth error" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestGetRenderNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRender(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateRender(ctx, RenderRecord{RenderID: "r-3", State: "queued"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	entries := []ManifestEntry{
		{ChunkIndex: 0, ContentHash: "aaa", CharCount: 300, EstimatedSec: 20.5},
		{ChunkIndex: 1, ContentHash: "bbb", CharCount: 280, EstimatedSec: 18.0},
	}
	if err := s.PutManifest(ctx, "r-3", entries); err != nil {
		t.Fatalf("put manifest: %v", err)
	}
	got, err := s.ListManifest(ctx, "r-3")
	if err != nil {
		t.Fatalf("list manifest: %v", err)
	}
	if len(got) != 2 || got[0].ContentHash != "aaa" || got[1].ChunkIndex != 1 {
		t.Fatalf("unexpected manifest %+v", got)
	}
}

func TestEventTrail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateRender(ctx, RenderRecord{RenderID: "r-4", State: "queued"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, typ := range []string{"queued", "progress", "completed"} {
		evt := Event{RenderID: "r-4", Type: typ, Payload: []byte("{}"), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.AppendEvent(ctx, evt); err != nil {
			t.Fatalf("append %s: %v", typ, err)
		}
	}
	events, err := s.ListEvents(ctx, "r-4", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 || events[0].Type != "queued" || events[2].Type != "completed" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestEphemeralModeIsNoOp(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Ephemeral: true}, testLogger())
	if err != nil {
		t.Fatalf("open ephemeral: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateRender(ctx, RenderRecord{RenderID: "r-5", State: "queued"}); err != nil {
		t.Fatalf("create should be a no-op: %v", err)
	}
	if _, err := s.GetRender(ctx, "r-5"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ephemeral get should report not found, got %v", err)
	}
}
