package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"model-pipeline/internal/core/domain"
)

// MockTracker is a mock of ExperimentTracker.
type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) StartRun(ctx context.Context, name string, tags map[string]string) (*domain.Run, error) {
	args := m.Called(ctx, name, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockTracker) LogParams(ctx context.Context, runID uuid.UUID, params map[string]string) error {
	args := m.Called(ctx, runID, params)
	return args.Error(0)
}

func (m *MockTracker) LogMetric(ctx context.Context, runID uuid.UUID, name string, value float64, step int) error {
	args := m.Called(ctx, runID, name, value, step)
	return args.Error(0)
}

func (m *MockTracker) LogMetrics(ctx context.Context, runID uuid.UUID, metrics domain.MetricSet) error {
	args := m.Called(ctx, runID, metrics)
	return args.Error(0)
}

func (m *MockTracker) SetTag(ctx context.Context, runID uuid.UUID, key, value string) error {
	args := m.Called(ctx, runID, key, value)
	return args.Error(0)
}

func (m *MockTracker) SetArtifact(ctx context.Context, runID uuid.UUID, uri string) error {
	args := m.Called(ctx, runID, uri)
	return args.Error(0)
}

func (m *MockTracker) EndRun(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *MockTracker) GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

// MockVersionRepo is a mock of ModelVersionRepository.
type MockVersionRepo struct {
	mock.Mock
}

func (m *MockVersionRepo) Create(ctx context.Context, modelName string, runID uuid.UUID, artifactURI, description string) (*domain.ModelVersion, error) {
	args := m.Called(ctx, modelName, runID, artifactURI, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockVersionRepo) FindByRun(ctx context.Context, modelName string, runID uuid.UUID) (*domain.ModelVersion, error) {
	args := m.Called(ctx, modelName, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockVersionRepo) Get(ctx context.Context, modelName string, version int) (*domain.ModelVersion, error) {
	args := m.Called(ctx, modelName, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockVersionRepo) List(ctx context.Context, modelName string) ([]*domain.ModelVersion, error) {
	args := m.Called(ctx, modelName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ModelVersion), args.Error(1)
}

func (m *MockVersionRepo) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockVersionRepo) UpdateDescription(ctx context.Context, modelName string, version int, description string) error {
	args := m.Called(ctx, modelName, version, description)
	return args.Error(0)
}

func (m *MockVersionRepo) Delete(ctx context.Context, modelName string, version int) error {
	args := m.Called(ctx, modelName, version)
	return args.Error(0)
}

// MockAliasRepo is a mock of AliasRepository.
type MockAliasRepo struct {
	mock.Mock
}

func (m *MockAliasRepo) Get(ctx context.Context, modelName, alias string) (*domain.Alias, error) {
	args := m.Called(ctx, modelName, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Alias), args.Error(1)
}

func (m *MockAliasRepo) ListByModel(ctx context.Context, modelName string) ([]*domain.Alias, error) {
	args := m.Called(ctx, modelName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Alias), args.Error(1)
}

func (m *MockAliasRepo) Bind(ctx context.Context, a *domain.Alias, expected *int) error {
	args := m.Called(ctx, a, expected)
	return args.Error(0)
}

func (m *MockAliasRepo) Remove(ctx context.Context, modelName, alias string) error {
	args := m.Called(ctx, modelName, alias)
	return args.Error(0)
}

// MockDecisionRepo is a mock of GateDecisionRepository.
type MockDecisionRepo struct {
	mock.Mock
}

func (m *MockDecisionRepo) Save(ctx context.Context, d *domain.GateDecision) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDecisionRepo) Latest(ctx context.Context, runID uuid.UUID, policyFingerprint string) (*domain.GateDecision, error) {
	args := m.Called(ctx, runID, policyFingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GateDecision), args.Error(1)
}

func (m *MockDecisionRepo) LatestByRun(ctx context.Context, runID uuid.UUID) (*domain.GateDecision, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GateDecision), args.Error(1)
}
