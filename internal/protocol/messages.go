// Package protocol defines the bus messages published over the render
// lifecycle. Subjects carry the render ID as their final token so
// consumers can subscribe per render or with a wildcard.
package protocol

import "time"

// RenderQueued announces a newly accepted render job.
type RenderQueued struct {
	RenderID   string    `json:"render_id"`
	ScriptSize int       `json:"script_size"`
	VoiceID    string    `json:"voice_id"`
	ModelID    string    `json:"model_id"`
	QueuedAt   time.Time `json:"queued_at"`
}

// RenderProgress reports per-step completion while a render runs.
type RenderProgress struct {
	RenderID  string    `json:"render_id"`
	Step      string    `json:"step"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// RenderCompleted carries the final artifact location and measurements.
type RenderCompleted struct {
	RenderID        string    `json:"render_id"`
	ArtifactKey     string    `json:"artifact_key"`
	DurationSeconds float64   `json:"duration_seconds"`
	IntegratedLUFS  float64   `json:"integrated_lufs"`
	TruePeakDB      float64   `json:"true_peak_db"`
	CompletedAt     time.Time `json:"completed_at"`
}

// RenderFailed reports a terminal failure; no partial audio exists.
type RenderFailed struct {
	RenderID string    `json:"render_id"`
	Step     string    `json:"step"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

const (
	SubjectRenderQueuedPrefix    = "render.queued"
	SubjectRenderProgressPrefix  = "render.progress"
	SubjectRenderCompletedPrefix = "render.completed"
	SubjectRenderFailedPrefix    = "render.failed"
)
