package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
)

// RegistryService creates and queries model versions. Registration is the
// only way a version comes into existence, and only from a finished run with
// a completed artifact.
type RegistryService struct {
	tracker   ports.ExperimentTracker
	versions  ports.ModelVersionRepository
	aliases   ports.AliasRepository
	artifacts ports.ArtifactStore
}

func NewRegistryService(
	tracker ports.ExperimentTracker,
	versions ports.ModelVersionRepository,
	aliases ports.AliasRepository,
	artifacts ports.ArtifactStore,
) *RegistryService {
	return &RegistryService{tracker: tracker, versions: versions, aliases: aliases, artifacts: artifacts}
}

// Register creates a model version from a run. Registering the same run
// under the same model name twice is a no-op returning the existing version;
// force requests an explicit new version for the same training output.
func (s *RegistryService) Register(ctx context.Context, runID uuid.UUID, modelName, description string, force bool) (*domain.ModelVersion, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}

	run, err := s.tracker.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Registrable() {
		return nil, fmt.Errorf("%w: run %s is %s", domain.ErrArtifactMissing, runID, run.Status)
	}
	exists, err := s.artifacts.Exists(ctx, run.ArtifactURI)
	if err != nil {
		return nil, fmt.Errorf("check artifact: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: artifact %s is gone", domain.ErrArtifactMissing, run.ArtifactURI)
	}

	if !force {
		if existing, err := s.versions.FindByRun(ctx, modelName, runID); err == nil {
			log.WithFields(log.Fields{
				"model":   modelName,
				"version": existing.Version,
				"run_id":  runID,
			}).Info("run already registered, returning existing version")
			return existing, nil
		} else if !errors.Is(err, domain.ErrVersionNotFound) {
			return nil, err
		}
	}

	v, err := s.versions.Create(ctx, modelName, runID, run.ArtifactURI, description)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"model": modelName, "version": v.Version, "run_id": runID}).
		Info("model version registered")
	return v, nil
}

func (s *RegistryService) ListVersions(ctx context.Context, modelName string) ([]*domain.ModelVersion, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	return s.versions.List(ctx, modelName)
}

func (s *RegistryService) GetVersionInfo(ctx context.Context, modelName string, version int) (*domain.ModelVersion, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	if version <= 0 {
		return nil, domain.ErrInvalidVersion
	}
	return s.versions.Get(ctx, modelName, version)
}

func (s *RegistryService) UpdateDescription(ctx context.Context, modelName string, version int, description string) error {
	if modelName == "" {
		return domain.ErrInvalidModelName
	}
	if version <= 0 {
		return domain.ErrInvalidVersion
	}
	return s.versions.UpdateDescription(ctx, modelName, version, description)
}

// DeleteVersion removes a version. A version bound by any alias cannot be
// deleted without first reassigning or removing the aliases pointing to it.
func (s *RegistryService) DeleteVersion(ctx context.Context, modelName string, version int) error {
	if modelName == "" {
		return domain.ErrInvalidModelName
	}
	if version <= 0 {
		return domain.ErrInvalidVersion
	}
	if err := s.versions.Delete(ctx, modelName, version); err != nil {
		return err
	}
	log.WithFields(log.Fields{"model": modelName, "version": version}).Info("model version deleted")
	return nil
}

func (s *RegistryService) ListModels(ctx context.Context) ([]string, error) {
	return s.versions.ListModels(ctx)
}

// ModelInfo returns everything the registry knows about one model name.
func (s *RegistryService) ModelInfo(ctx context.Context, modelName string) (*domain.ModelInfo, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	versions, err := s.versions.List(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.ErrModelNotFound
	}
	aliases, err := s.aliases.ListByModel(ctx, modelName)
	if err != nil {
		return nil, err
	}
	return &domain.ModelInfo{Name: modelName, Versions: versions, Aliases: aliases}, nil
}
