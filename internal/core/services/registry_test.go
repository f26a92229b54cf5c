package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/testutil"
)

func finishedRun(t *testing.T, store *testutil.FakeArtifactStore) *domain.Run {
	t.Helper()
	runID := uuid.New()
	uri, err := store.Put(context.Background(), "runs/"+runID.String()+"/model.json", []byte("{}"))
	require.NoError(t, err)
	return &domain.Run{ID: runID, Status: domain.RunStatusFinished, ArtifactURI: uri}
}

func TestRegistryService_Register(t *testing.T) {
	tracker := new(testutil.MockTracker)
	versions := new(testutil.MockVersionRepo)
	store := testutil.NewFakeArtifactStore()
	svc := NewRegistryService(tracker, versions, new(testutil.MockAliasRepo), store)

	run := finishedRun(t, store)
	created := &domain.ModelVersion{ModelName: "churn-model", Version: 1, RunID: run.ID, ArtifactURI: run.ArtifactURI}

	tracker.On("GetRun", mock.Anything, run.ID).Return(run, nil)
	versions.On("FindByRun", mock.Anything, "churn-model", run.ID).Return(nil, domain.ErrVersionNotFound)
	versions.On("Create", mock.Anything, "churn-model", run.ID, run.ArtifactURI, "first candidate").
		Return(created, nil)

	v, err := svc.Register(context.Background(), run.ID, "churn-model", "first candidate", false)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, run.ID, v.RunID)
}

func TestRegistryService_Register_RunNotFound(t *testing.T) {
	tracker := new(testutil.MockTracker)
	svc := NewRegistryService(tracker, new(testutil.MockVersionRepo), new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	runID := uuid.New()
	tracker.On("GetRun", mock.Anything, runID).Return(nil, domain.ErrRunNotFound)

	_, err := svc.Register(context.Background(), runID, "churn-model", "", false)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRegistryService_Register_FailedRun(t *testing.T) {
	tracker := new(testutil.MockTracker)
	svc := NewRegistryService(tracker, new(testutil.MockVersionRepo), new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	run := &domain.Run{ID: uuid.New(), Status: domain.RunStatusFailed}
	tracker.On("GetRun", mock.Anything, run.ID).Return(run, nil)

	_, err := svc.Register(context.Background(), run.ID, "churn-model", "", false)
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestRegistryService_Register_ArtifactGone(t *testing.T) {
	tracker := new(testutil.MockTracker)
	svc := NewRegistryService(tracker, new(testutil.MockVersionRepo), new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	// Finished run pointing at an artifact the store no longer has.
	run := &domain.Run{ID: uuid.New(), Status: domain.RunStatusFinished, ArtifactURI: "mem://runs/gone/model.json"}
	tracker.On("GetRun", mock.Anything, run.ID).Return(run, nil)

	_, err := svc.Register(context.Background(), run.ID, "churn-model", "", false)
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestRegistryService_Register_IdempotentForSameRun(t *testing.T) {
	tracker := new(testutil.MockTracker)
	versions := new(testutil.MockVersionRepo)
	store := testutil.NewFakeArtifactStore()
	svc := NewRegistryService(tracker, versions, new(testutil.MockAliasRepo), store)

	run := finishedRun(t, store)
	existing := &domain.ModelVersion{ModelName: "churn-model", Version: 4, RunID: run.ID}

	tracker.On("GetRun", mock.Anything, run.ID).Return(run, nil)
	versions.On("FindByRun", mock.Anything, "churn-model", run.ID).Return(existing, nil)

	v, err := svc.Register(context.Background(), run.ID, "churn-model", "", false)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Version)
	versions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistryService_Register_ForceCreatesNewVersion(t *testing.T) {
	tracker := new(testutil.MockTracker)
	versions := new(testutil.MockVersionRepo)
	store := testutil.NewFakeArtifactStore()
	svc := NewRegistryService(tracker, versions, new(testutil.MockAliasRepo), store)

	run := finishedRun(t, store)
	created := &domain.ModelVersion{ModelName: "churn-model", Version: 5, RunID: run.ID}

	tracker.On("GetRun", mock.Anything, run.ID).Return(run, nil)
	versions.On("Create", mock.Anything, "churn-model", run.ID, run.ArtifactURI, "").Return(created, nil)

	v, err := svc.Register(context.Background(), run.ID, "churn-model", "", true)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Version)
	versions.AssertNotCalled(t, "FindByRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegistryService_Register_EmptyModelName(t *testing.T) {
	svc := NewRegistryService(new(testutil.MockTracker), new(testutil.MockVersionRepo),
		new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	_, err := svc.Register(context.Background(), uuid.New(), "", "", false)
	assert.ErrorIs(t, err, domain.ErrInvalidModelName)
}

func TestRegistryService_UpdateDescription(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	svc := NewRegistryService(new(testutil.MockTracker), versions, new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	versions.On("UpdateDescription", mock.Anything, "churn-model", 2, "tuned on augmented data").Return(nil)
	require.NoError(t, svc.UpdateDescription(context.Background(), "churn-model", 2, "tuned on augmented data"))

	err := svc.UpdateDescription(context.Background(), "churn-model", 0, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
}

func TestRegistryService_DeleteVersion_InUse(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	svc := NewRegistryService(new(testutil.MockTracker), versions, new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	versions.On("Delete", mock.Anything, "churn-model", 3).Return(domain.ErrVersionInUse)

	err := svc.DeleteVersion(context.Background(), "churn-model", 3)
	assert.ErrorIs(t, err, domain.ErrVersionInUse)
}

func TestRegistryService_DeleteVersion_NotFound(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	svc := NewRegistryService(new(testutil.MockTracker), versions, new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	versions.On("Delete", mock.Anything, "churn-model", 7).Return(domain.ErrVersionNotFound)

	err := svc.DeleteVersion(context.Background(), "churn-model", 7)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestRegistryService_ModelInfo(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	svc := NewRegistryService(new(testutil.MockTracker), versions, aliases, testutil.NewFakeArtifactStore())

	vs := []*domain.ModelVersion{
		{ModelName: "churn-model", Version: 1},
		{ModelName: "churn-model", Version: 2},
	}
	as := []*domain.Alias{{ModelName: "churn-model", Alias: domain.AliasChampion, Version: 2}}
	versions.On("List", mock.Anything, "churn-model").Return(vs, nil)
	aliases.On("ListByModel", mock.Anything, "churn-model").Return(as, nil)

	info, err := svc.ModelInfo(context.Background(), "churn-model")
	require.NoError(t, err)
	assert.Equal(t, "churn-model", info.Name)
	assert.Len(t, info.Versions, 2)
	assert.Len(t, info.Aliases, 1)
}

func TestRegistryService_ModelInfo_UnknownModel(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	svc := NewRegistryService(new(testutil.MockTracker), versions, new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	versions.On("List", mock.Anything, "nope").Return([]*domain.ModelVersion{}, nil)

	_, err := svc.ModelInfo(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestRegistryService_GetVersionInfo_Validation(t *testing.T) {
	svc := NewRegistryService(new(testutil.MockTracker), new(testutil.MockVersionRepo),
		new(testutil.MockAliasRepo), testutil.NewFakeArtifactStore())

	_, err := svc.GetVersionInfo(context.Background(), "", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidModelName)

	_, err = svc.GetVersionInfo(context.Background(), "churn-model", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
}
