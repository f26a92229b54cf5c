package ports

import (
	"context"

	"github.com/google/uuid"

	"model-pipeline/internal/core/domain"
)

// ModelVersionRepository is the durable (model name, version) → artifact
// mapping. Version numbers are allocated by the store: strictly increasing
// per model and never reused, even when a registration fails after the
// number was consumed.
type ModelVersionRepository interface {
	// Create allocates the next version number for the model and stores the
	// mapping. It never overwrites an existing version.
	Create(ctx context.Context, modelName string, runID uuid.UUID, artifactURI, description string) (*domain.ModelVersion, error)

	// FindByRun returns the most recent version registered from the given
	// run under this model name, or domain.ErrVersionNotFound.
	FindByRun(ctx context.Context, modelName string, runID uuid.UUID) (*domain.ModelVersion, error)

	Get(ctx context.Context, modelName string, version int) (*domain.ModelVersion, error)

	// List returns all versions of a model ordered by version ascending.
	List(ctx context.Context, modelName string) ([]*domain.ModelVersion, error)

	ListModels(ctx context.Context) ([]string, error)

	UpdateDescription(ctx context.Context, modelName string, version int, description string) error

	// Delete fails with domain.ErrVersionInUse while any alias binds the
	// version.
	Delete(ctx context.Context, modelName string, version int) error
}

// AliasRepository stores the mutable alias → version bindings. All
// mutations are single atomic conditional updates against the backing
// store; the core holds no authoritative in-memory copy.
type AliasRepository interface {
	Get(ctx context.Context, modelName, alias string) (*domain.Alias, error)

	ListByModel(ctx context.Context, modelName string) ([]*domain.Alias, error)

	// Bind writes the alias binding. expected selects the compare-and-swap
	// mode: nil binds unconditionally, 0 requires the alias to be unbound,
	// any other value requires the alias to currently bind that version.
	// A failed comparison returns domain.ErrRegistryConflict and leaves the
	// binding unchanged.
	Bind(ctx context.Context, a *domain.Alias, expected *int) error

	Remove(ctx context.Context, modelName, alias string) error
}

// GateDecisionRepository persists gate decisions so a later promotion can
// look them up without recomputation.
type GateDecisionRepository interface {
	Save(ctx context.Context, d *domain.GateDecision) error

	// Latest returns the most recent decision for the run under the given
	// policy fingerprint, or domain.ErrGateDecisionNotFound.
	Latest(ctx context.Context, runID uuid.UUID, policyFingerprint string) (*domain.GateDecision, error)

	// LatestByRun returns the most recent decision for the run under any
	// policy; used to read a baseline's recorded metric set.
	LatestByRun(ctx context.Context, runID uuid.UUID) (*domain.GateDecision, error)
}
