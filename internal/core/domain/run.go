package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// MetricSet maps a metric name to its computed value.
type MetricSet map[string]float64

// Run is one training (or evaluation) execution recorded by the tracker.
// A run is mutable only while RUNNING; once ended it is never changed.
type Run struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Status      RunStatus         `json:"status"`
	Params      map[string]string `json:"params"`
	Metrics     MetricSet         `json:"metrics"`
	ArtifactURI string            `json:"artifact_uri"`
	Tags        map[string]string `json:"tags"`
	CreatedAt   time.Time         `json:"created_at"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
}

// Registrable reports whether a model version may be created from this run.
// Failed runs and runs without a stored artifact are never registrable.
func (r *Run) Registrable() bool {
	return r.Status == RunStatusFinished && r.ArtifactURI != ""
}

// MetricPoint is one per-iteration training metric observation.
type MetricPoint struct {
	RunID    uuid.UUID `json:"run_id"`
	Name     string    `json:"name"`
	Value    float64   `json:"value"`
	Step     int       `json:"step"`
	LoggedAt time.Time `json:"logged_at"`
}
