// Package runtime assembles the daemon: telemetry, the embedded bus,
// durable stores, the synthesis provider and the render service, plus
// the HTTP surface that exposes them.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxweave-labs/voxweave-core/internal/blobstore"
	"github.com/voxweave-labs/voxweave-core/internal/bus"
	"github.com/voxweave-labs/voxweave-core/internal/cache"
	"github.com/voxweave-labs/voxweave-core/internal/chunker"
	"github.com/voxweave-labs/voxweave-core/internal/config"
	"github.com/voxweave-labs/voxweave-core/internal/markup"
	"github.com/voxweave-labs/voxweave-core/internal/natsserver"
	"github.com/voxweave-labs/voxweave-core/internal/render"
	"github.com/voxweave-labs/voxweave-core/internal/renderstore"
	"github.com/voxweave-labs/voxweave-core/internal/synth"
	"github.com/voxweave-labs/voxweave-core/internal/tuning"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	renderSvc   *render.Service
	busClient   *bus.Client
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		r.logger.Warn("bus unavailable, lifecycle events disabled", slog.String("error", err.Error()))
		busClient = nil
	}
	r.busClient = busClient
	defer busClient.Close()

	store, err := renderstore.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("open render store: %w", err)
	}
	defer store.Close()

	blobs, err := blobstore.NewFSStore(r.cfg.Store.BlobRoot)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	audioCache, err := cache.New(blobs, 256, r.logger)
	if err != nil {
		return fmt.Errorf("build audio cache: %w", err)
	}

	synthesizer, err := buildSynthesizer(r.cfg)
	if err != nil {
		return fmt.Errorf("build synthesizer: %w", err)
	}

	r.renderSvc = render.NewService(r.cfg, store, audioCache, blobs, synthesizer, busClient, r.logger)
	defer r.renderSvc.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	mux.HandleFunc("POST /v1/renders", r.handleStartRender)
	mux.HandleFunc("GET /v1/renders/{id}", r.handleRenderStatus)
	mux.HandleFunc("GET /v1/renders/{id}/artifact", r.handleRenderArtifact)
	mux.HandleFunc("GET /v1/renders/{id}/events", r.handleRenderEvents)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("provider", r.cfg.Provider.Mode))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildSynthesizer(cfg config.Config) (synth.Synthesizer, error) {
	switch cfg.Provider.Mode {
	case "mock", "":
		return synth.NewMockSynth(cfg.Defaults.Export.SampleRate, cfg.Defaults.Export.Channels), nil
	case "exec":
		return synth.NewExecSynth(cfg.Provider.Command)
	case "http":
		return synth.NewHTTPSynth(cfg.Provider.Endpoint, cfg.Provider.APIKey,
			time.Duration(cfg.Provider.TimeoutMS)*time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", cfg.Provider.Mode)
	}
}

type startRenderRequest struct {
	Script   string           `json:"script"`
	Settings *tuning.Settings `json:"settings,omitempty"`
}

type startRenderResponse struct {
	RenderID string        `json:"render_id"`
	Plan     chunker.Stats `json:"plan"`
}

func (r *Runtime) handleStartRender(w http.ResponseWriter, req *http.Request) {
	var body startRenderRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings := r.cfg.Defaults
	if body.Settings != nil {
		settings = *body.Settings
	}

	renderID, stats, err := r.renderSvc.StartRender(req.Context(), body.Script, settings)
	if err != nil {
		switch {
		case errors.Is(err, markup.ErrEmptyScript), errors.Is(err, render.ErrScriptTooLong):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			r.logger.Error("start render failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "render could not be started")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, startRenderResponse{RenderID: renderID, Plan: stats})
}

func (r *Runtime) handleRenderStatus(w http.ResponseWriter, req *http.Request) {
	snap, err := r.renderSvc.Status(req.Context(), req.PathValue("id"))
	if errors.Is(err, render.ErrNotFound) {
		writeError(w, http.StatusNotFound, "render not found")
		return
	}
	if err != nil {
		r.logger.Error("status lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (r *Runtime) handleRenderArtifact(w http.ResponseWriter, req *http.Request) {
	data, err := r.renderSvc.Artifact(req.Context(), req.PathValue("id"))
	if errors.Is(err, render.ErrNotFound) {
		writeError(w, http.StatusNotFound, "render not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type renderEvent struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r *Runtime) handleRenderEvents(w http.ResponseWriter, req *http.Request) {
	events, err := r.renderSvc.Events(req.Context(), req.PathValue("id"), 200)
	if err != nil {
		r.logger.Error("event lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "events unavailable")
		return
	}
	out := make([]renderEvent, len(events))
	for i, e := range events {
		out[i] = renderEvent{Type: e.Type, Payload: e.Payload, CreatedAt: e.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.renderSvc != nil && r.renderSvc.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
