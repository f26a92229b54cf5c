package domain

import (
	"time"

	"github.com/google/uuid"
)

// ModelVersion is an immutable pointer from (model name, integer version)
// to the artifact produced by a specific run. Version numbers are assigned
// by the registry: strictly increasing per model, never reused, not
// guaranteed contiguous. Only the description may be updated afterwards.
type ModelVersion struct {
	ModelName   string    `json:"model_name"`
	Version     int       `json:"version"`
	RunID       uuid.UUID `json:"run_id"`
	ArtifactURI string    `json:"artifact_uri"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ModelInfo aggregates everything the registry knows about one model name.
type ModelInfo struct {
	Name     string          `json:"name"`
	Versions []*ModelVersion `json:"versions"`
	Aliases  []*Alias        `json:"aliases"`
}
