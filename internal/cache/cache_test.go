package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/voxweave-labs/voxweave-core/internal/blobstore"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestKeyIsStable(t *testing.T) {
	subset := tuning.Default().SynthesisSubset()
	a := Key("Hello there.", subset)
	b := Key("Hello there.", subset)
	if a != b {
		t.Fatalf("identical inputs must hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestKeyVariesWithBodyAndSettings(t *testing.T) {
	subset := tuning.Default().SynthesisSubset()
	base := Key("Hello there.", subset)

	if Key("Hello there!", subset) == base {
		t.Fatal("body change must change the key")
	}

	changed := subset
	changed.VoiceID = "other-voice"
	if Key("Hello there.", changed) == base {
		t.Fatal("voice change must change the key")
	}

	changed = subset
	changed.Stability += 0.01
	if Key("Hello there.", changed) == base {
		t.Fatal("stability change must change the key")
	}
}

func TestCacheHitAfterPut(t *testing.T) {
	store := blobstore.NewMemStore()
	c, err := New(store, 8, newLogger())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	key := Key("body", tuning.Default().SynthesisSubset())
	if _, ok := c.Get(context.Background(), key); ok {
		t.Fatal("expected miss before put")
	}
	c.Put(context.Background(), key, []byte("audio"))
	data, ok := c.Get(context.Background(), key)
	if !ok || string(data) != "audio" {
		t.Fatalf("expected hit with stored bytes, got ok=%v data=%q", ok, data)
	}

	counts := c.Counters()
	if counts.Hits != 1 || counts.Misses != 1 {
		t.Fatalf("unexpected counters: %+v", counts)
	}
}

func TestCacheDegradesOnStoreFailure(t *testing.T) {
	store := blobstore.NewMemStore()
	store.FailAll = true
	c, err := New(store, 8, newLogger())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	key := Key("body", tuning.Default().SynthesisSubset())
	if _, ok := c.Get(context.Background(), key); ok {
		t.Fatal("expected degraded miss on failing store")
	}
	// Writes must not fail the caller either.
	c.Put(context.Background(), key, []byte("audio"))

	counts := c.Counters()
	if counts.Degraded < 2 {
		t.Fatalf("expected degraded counts, got %+v", counts)
	}
	// The LRU still serves the bytes within this process.
	if data, ok := c.Get(context.Background(), key); !ok || string(data) != "audio" {
		t.Fatalf("expected hot-layer hit, got ok=%v data=%q", ok, data)
	}
}

func TestCacheSurvivesRestartViaStore(t *testing.T) {
	store := blobstore.NewMemStore()
	first, _ := New(store, 8, newLogger())
	key := Key("body", tuning.Default().SynthesisSubset())
	first.Put(context.Background(), key, []byte("audio"))

	second, _ := New(store, 8, newLogger())
	if data, ok := second.Get(context.Background(), key); !ok || string(data) != "audio" {
		t.Fatalf("expected store-backed hit in fresh cache, got ok=%v data=%q", ok, data)
	}
}
