package ports

import (
	"context"

	"github.com/google/uuid"

	"model-pipeline/internal/core/domain"
)

// ExperimentTracker is the thin client contract to the run-logging service:
// it opens and closes runs and stores parameters, metrics and the artifact
// pointer under a run identifier. The core only consumes this contract.
type ExperimentTracker interface {
	StartRun(ctx context.Context, name string, tags map[string]string) (*domain.Run, error)

	LogParams(ctx context.Context, runID uuid.UUID, params map[string]string) error

	// LogMetric records one per-iteration metric observation.
	LogMetric(ctx context.Context, runID uuid.UUID, name string, value float64, step int) error

	// LogMetrics records a final metric set on the run.
	LogMetrics(ctx context.Context, runID uuid.UUID, metrics domain.MetricSet) error

	SetTag(ctx context.Context, runID uuid.UUID, key, value string) error

	// SetArtifact records the stored artifact location on the run.
	SetArtifact(ctx context.Context, runID uuid.UUID, uri string) error

	// EndRun closes the run as FINISHED or FAILED. Ended runs are immutable.
	EndRun(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error

	GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error)
}

// ArtifactStore holds serialized model artifacts outside the registry,
// addressed by an opaque URI recorded on the run.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) (uri string, err error)
	Get(ctx context.Context, uri string) ([]byte, error)
	Exists(ctx context.Context, uri string) (bool, error)
}
