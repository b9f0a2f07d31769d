package render

import (
	"sync"
	"time"

	"github.com/voxweave-labs/voxweave-core/internal/assembler"
)

// State is the lifecycle state of a render job.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Pipeline step names reported in progress updates.
const (
	StepMarkup     = "markup"
	StepChunk      = "chunk"
	StepSynthesize = "synthesize"
	StepAssemble   = "assemble"
)

// Snapshot is a point-in-time view of a render job.
type Snapshot struct {
	RenderID        string                 `json:"render_id"`
	State           State                  `json:"state"`
	Step            string                 `json:"step,omitempty"`
	StepsDone       []string               `json:"steps_done,omitempty"`
	Done            int                    `json:"done"`
	Total           int                    `json:"total"`
	Error           string                 `json:"error,omitempty"`
	ArtifactKey     string                 `json:"artifact_key,omitempty"`
	DurationSeconds float64                `json:"duration_seconds,omitempty"`
	IntegratedLUFS  float64                `json:"integrated_lufs,omitempty"`
	TruePeakDB      float64                `json:"true_peak_db,omitempty"`
	Diagnostics     *assembler.Diagnostics `json:"diagnostics,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// job tracks one render's live state. Progress never moves backwards and
// terminal states are immutable.
type job struct {
	mu    sync.Mutex
	snap  Snapshot
	clock func() time.Time
}

func newJob(renderID string, clock func() time.Time) *job {
	now := clock()
	return &job{
		snap: Snapshot{
			RenderID:  renderID,
			State:     StateQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		clock: clock,
	}
}

// setTotal records the planned chunk count while still queued.
func (j *job) setTotal(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.terminal() {
		j.snap.Total = total
	}
}

func (j *job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := j.snap
	snap.StepsDone = append([]string(nil), j.snap.StepsDone...)
	return snap
}

// finishStep marks a pipeline step as complete. Completed steps are
// never unmarked.
func (j *job) finishStep(step string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.terminal() {
		return
	}
	for _, s := range j.snap.StepsDone {
		if s == step {
			return
		}
	}
	j.snap.StepsDone = append(j.snap.StepsDone, step)
	j.snap.UpdatedAt = j.clock()
}

func (j *job) terminal() bool {
	return j.snap.State == StateDone || j.snap.State == StateFailed
}

// progress advances to running and records step completion. Counts that
// regress are dropped; completed workers may report out of order.
func (j *job) progress(step string, done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.terminal() {
		return
	}
	j.snap.State = StateRunning
	if step != j.snap.Step {
		j.snap.Step = step
		j.snap.Done = 0
		j.snap.Total = total
	}
	if done > j.snap.Done {
		j.snap.Done = done
	}
	if total > j.snap.Total {
		j.snap.Total = total
	}
	j.snap.UpdatedAt = j.clock()
}

func (j *job) fail(step, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.terminal() {
		return
	}
	j.snap.State = StateFailed
	j.snap.Step = step
	j.snap.Error = reason
	j.snap.UpdatedAt = j.clock()
}

func (j *job) complete(artifactKey string, diag assembler.Diagnostics) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.terminal() {
		return
	}
	j.snap.State = StateDone
	j.snap.Step = ""
	j.snap.Done = j.snap.Total
	j.snap.ArtifactKey = artifactKey
	j.snap.DurationSeconds = diag.DurationSeconds
	j.snap.IntegratedLUFS = diag.IntegratedLUFS
	j.snap.TruePeakDB = diag.TruePeakDB
	j.snap.Diagnostics = &diag
	j.snap.UpdatedAt = j.clock()
}
