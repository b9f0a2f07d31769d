// Package cache provides the content-addressable audio cache: stable key
// derivation over (markup body, synthesis settings subset) and a lookup
// layer that degrades store failures to forced misses.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/voxweave-labs/voxweave-core/internal/blobstore"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Key derives the stable content-addressed key for a chunk. The subset must
// contain every settings field that alters synthesized audio and nothing
// else; identical (body, subset) pairs always hash identically.
func Key(markupBody string, subset tuning.SynthesisSubset) string {
	h := blake3.New()
	h.Write(subset.Canonical())
	h.Write([]byte{0})
	h.Write([]byte(markupBody))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

// Counters is a point-in-time snapshot of cache traffic.
type Counters struct {
	Hits     uint64
	Misses   uint64
	Degraded uint64
}

// Cache fronts the blob store with an in-process LRU for hot chunk audio.
// A failing backend never fails a render: lookups degrade to misses and
// writes fall back to LRU only.
type Cache struct {
	store blobstore.Store
	hot   *lru.Cache[string, []byte]
	log   *slog.Logger

	hits     atomic.Uint64
	misses   atomic.Uint64
	degraded atomic.Uint64

	hitCounter  metric.Int64Counter
	missCounter metric.Int64Counter
}

// New builds a cache over store with an LRU of hotSize entries.
func New(store blobstore.Store, hotSize int, log *slog.Logger) (*Cache, error) {
	if hotSize <= 0 {
		hotSize = 128
	}
	hot, err := lru.New[string, []byte](hotSize)
	if err != nil {
		return nil, err
	}
	meter := otel.Meter("voxweave/cache")
	hitCounter, _ := meter.Int64Counter("cache.hits")
	missCounter, _ := meter.Int64Counter("cache.misses")
	return &Cache{
		store:       store,
		hot:         hot,
		log:         log.With(slog.String("component", "audio-cache")),
		hitCounter:  hitCounter,
		missCounter: missCounter,
	}, nil
}

// Get looks up chunk audio by key. The second return is false on any miss,
// including store failure.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := c.hot.Get(key); ok {
		c.hits.Add(1)
		if c.hitCounter != nil {
			c.hitCounter.Add(ctx, 1)
		}
		return data, true
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			c.degraded.Add(1)
			c.log.Warn("cache store unavailable, treating as miss", slog.String("error", err.Error()))
		}
		c.misses.Add(1)
		if c.missCounter != nil {
			c.missCounter.Add(ctx, 1)
		}
		return nil, false
	}

	c.hot.Add(key, data)
	c.hits.Add(1)
	if c.hitCounter != nil {
		c.hitCounter.Add(ctx, 1)
	}
	return data, true
}

// Put stores chunk audio under its content key. Store failure is logged and
// absorbed; identical bytes are expected for concurrent writers of one key,
// so last write wins.
func (c *Cache) Put(ctx context.Context, key string, data []byte) {
	c.hot.Add(key, data)
	if _, err := c.store.Put(ctx, key, data); err != nil {
		c.degraded.Add(1)
		c.log.Warn("cache store write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Counters snapshots traffic counts.
func (c *Cache) Counters() Counters {
	return Counters{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Degraded: c.degraded.Load(),
	}
}
