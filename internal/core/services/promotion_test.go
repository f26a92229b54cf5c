package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/testutil"
)

func passingDecision(runID uuid.UUID, policy domain.GatePolicy) *domain.GateDecision {
	return &domain.GateDecision{
		ID:                uuid.New(),
		RunID:             runID,
		Passed:            true,
		Reasons:           []string{},
		PolicyFingerprint: policy.Fingerprint(),
		CreatedAt:         time.Now().UTC(),
	}
}

func testPolicy() domain.GatePolicy {
	return domain.GatePolicy{
		Thresholds:    []domain.Threshold{{Metric: "auc", Bound: 0.8, Direction: domain.DirectionMin}},
		PrimaryMetric: "auc",
	}
}

func TestPromotionService_Promote_RejectedWithoutDecision(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	runID := uuid.New()
	policy := testPolicy()
	versions.On("Get", mock.Anything, "churn-model", 1).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 1, RunID: runID}, nil)
	decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
		Return(nil, domain.ErrGateDecisionNotFound)

	_, err := svc.Promote(context.Background(), "churn-model", 1, domain.AliasChampion,
		PromoteOptions{Policy: policy})
	assert.ErrorIs(t, err, domain.ErrGateNotPassed)
	aliases.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromotionService_Promote_RejectedOnFailedDecision(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	runID := uuid.New()
	policy := testPolicy()
	versions.On("Get", mock.Anything, "churn-model", 2).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 2, RunID: runID}, nil)
	decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
		Return(&domain.GateDecision{RunID: runID, Passed: false, Reasons: []string{"auc below 0.80"}}, nil)

	_, err := svc.Promote(context.Background(), "churn-model", 2, domain.AliasChampion,
		PromoteOptions{Policy: policy})
	require.ErrorIs(t, err, domain.ErrGateNotPassed)
	assert.Contains(t, err.Error(), "auc below 0.80")
	aliases.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromotionService_Promote_FirstBinding(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	runID := uuid.New()
	policy := testPolicy()
	versions.On("Get", mock.Anything, "churn-model", 1).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 1, RunID: runID}, nil)
	decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
		Return(passingDecision(runID, policy), nil)
	aliases.On("Get", mock.Anything, "churn-model", domain.AliasChampion).
		Return(nil, domain.ErrAliasNotFound)
	aliases.On("Bind", mock.Anything, mock.AnythingOfType("*domain.Alias"),
		mock.MatchedBy(func(expected *int) bool { return expected != nil && *expected == 0 })).
		Return(nil)

	binding, err := svc.Promote(context.Background(), "churn-model", 1, domain.AliasChampion,
		PromoteOptions{Policy: policy})
	require.NoError(t, err)
	assert.Equal(t, 1, binding.Version)
	assert.Contains(t, binding.AuditReason, "gated: decision")
}

func TestPromotionService_Promote_RebindsFromCurrentVersion(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	runID := uuid.New()
	policy := testPolicy()
	versions.On("Get", mock.Anything, "churn-model", 2).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 2, RunID: runID}, nil)
	decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
		Return(passingDecision(runID, policy), nil)
	aliases.On("Get", mock.Anything, "churn-model", domain.AliasChampion).
		Return(&domain.Alias{ModelName: "churn-model", Alias: domain.AliasChampion, Version: 1}, nil)
	aliases.On("Bind", mock.Anything, mock.AnythingOfType("*domain.Alias"),
		mock.MatchedBy(func(expected *int) bool { return expected != nil && *expected == 1 })).
		Return(nil)

	binding, err := svc.Promote(context.Background(), "churn-model", 2, domain.AliasChampion,
		PromoteOptions{Policy: policy})
	require.NoError(t, err)
	assert.Equal(t, 2, binding.Version)
}

func TestPromotionService_Promote_OverrideSkipsGate(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	versions.On("Get", mock.Anything, "churn-model", 1).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 1, RunID: uuid.New()}, nil)
	aliases.On("Get", mock.Anything, "churn-model", domain.AliasChampion).
		Return(nil, domain.ErrAliasNotFound)
	aliases.On("Bind", mock.Anything, mock.AnythingOfType("*domain.Alias"), mock.Anything).Return(nil)

	binding, err := svc.Promote(context.Background(), "churn-model", 1, domain.AliasChampion,
		PromoteOptions{Override: true, OverrideReason: "emergency rollback"})
	require.NoError(t, err)
	assert.Equal(t, "override: emergency rollback", binding.AuditReason)
	decisions.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromotionService_Promote_LostRace(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	runID := uuid.New()
	policy := testPolicy()
	versions.On("Get", mock.Anything, "churn-model", 2).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 2, RunID: runID}, nil)
	decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
		Return(passingDecision(runID, policy), nil)
	aliases.On("Get", mock.Anything, "churn-model", domain.AliasChampion).
		Return(&domain.Alias{ModelName: "churn-model", Alias: domain.AliasChampion, Version: 1}, nil)
	aliases.On("Bind", mock.Anything, mock.AnythingOfType("*domain.Alias"), mock.Anything).
		Return(domain.ErrRegistryConflict)

	_, err := svc.Promote(context.Background(), "churn-model", 2, domain.AliasChampion,
		PromoteOptions{Policy: policy})
	assert.ErrorIs(t, err, domain.ErrRegistryConflict)
}

func TestPromotionService_Promote_ConcurrentPromotionsOneWins(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := testutil.NewFakeAliasRepo()
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	policy := testPolicy()
	runs := map[int]uuid.UUID{2: uuid.New(), 3: uuid.New()}
	for v, runID := range runs {
		versions.On("Get", mock.Anything, "churn-model", v).
			Return(&domain.ModelVersion{ModelName: "churn-model", Version: v, RunID: runID}, nil)
		decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
			Return(passingDecision(runID, policy), nil)
	}

	require.NoError(t, aliases.Bind(context.Background(), &domain.Alias{
		ModelName: "churn-model", Alias: domain.AliasChampion, Version: 1,
	}, nil))

	// Both promotions race from the same observed binding; the store's
	// compare-and-swap lets exactly one through.
	one := 1
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, v := range []int{2, 3} {
		wg.Add(1)
		go func(i, v int) {
			defer wg.Done()
			_, errs[i] = svc.Promote(context.Background(), "churn-model", v, domain.AliasChampion,
				PromoteOptions{Policy: policy, ExpectedVersion: &one})
		}(i, v)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, domain.ErrRegistryConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	final, err := aliases.Get(context.Background(), "churn-model", domain.AliasChampion)
	require.NoError(t, err)
	assert.Contains(t, []int{2, 3}, final.Version)
}

func TestPromotionService_Promote_ValidatesInput(t *testing.T) {
	svc := NewPromotionService(new(testutil.MockVersionRepo), new(testutil.MockAliasRepo), new(testutil.MockDecisionRepo))

	_, err := svc.Promote(context.Background(), "", 1, "champion", PromoteOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidModelName)

	_, err = svc.Promote(context.Background(), "m", 0, "champion", PromoteOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)

	_, err = svc.Promote(context.Background(), "m", 1, "", PromoteOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidAliasName)
}

func TestPromotionService_SetAlias_FirstAssignmentBindsDirectly(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	aliases.On("Get", mock.Anything, "churn-model", domain.AliasStaging).
		Return(nil, domain.ErrAliasNotFound)
	versions.On("Get", mock.Anything, "churn-model", 1).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 1, RunID: uuid.New()}, nil)
	aliases.On("Bind", mock.Anything, mock.AnythingOfType("*domain.Alias"),
		mock.MatchedBy(func(expected *int) bool { return expected != nil && *expected == 0 })).
		Return(nil)

	binding, err := svc.SetAlias(context.Background(), "churn-model", 1, domain.AliasStaging, domain.GatePolicy{})
	require.NoError(t, err)
	assert.Equal(t, "initial assignment", binding.AuditReason)
	decisions.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromotionService_SetAlias_ReassignmentGoesThroughGate(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	decisions := new(testutil.MockDecisionRepo)
	svc := NewPromotionService(versions, aliases, decisions)

	runID := uuid.New()
	policy := testPolicy()
	aliases.On("Get", mock.Anything, "churn-model", domain.AliasChampion).
		Return(&domain.Alias{ModelName: "churn-model", Alias: domain.AliasChampion, Version: 1}, nil)
	versions.On("Get", mock.Anything, "churn-model", 2).
		Return(&domain.ModelVersion{ModelName: "churn-model", Version: 2, RunID: runID}, nil)
	decisions.On("Latest", mock.Anything, runID, policy.Fingerprint()).
		Return(nil, domain.ErrGateDecisionNotFound)

	_, err := svc.SetAlias(context.Background(), "churn-model", 2, domain.AliasChampion, policy)
	assert.ErrorIs(t, err, domain.ErrGateNotPassed)
	aliases.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromotionService_SetAlias_UnknownVersion(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	svc := NewPromotionService(versions, aliases, new(testutil.MockDecisionRepo))

	aliases.On("Get", mock.Anything, "churn-model", domain.AliasStaging).
		Return(nil, domain.ErrAliasNotFound)
	versions.On("Get", mock.Anything, "churn-model", 9).
		Return(nil, domain.ErrVersionNotFound)

	_, err := svc.SetAlias(context.Background(), "churn-model", 9, domain.AliasStaging, domain.GatePolicy{})
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestPromotionService_RemoveAlias(t *testing.T) {
	aliases := new(testutil.MockAliasRepo)
	svc := NewPromotionService(new(testutil.MockVersionRepo), aliases, new(testutil.MockDecisionRepo))

	aliases.On("Remove", mock.Anything, "churn-model", domain.AliasStaging).Return(nil)
	assert.NoError(t, svc.RemoveAlias(context.Background(), "churn-model", domain.AliasStaging))

	aliases.On("Remove", mock.Anything, "churn-model", "shadow").Return(domain.ErrAliasNotFound)
	assert.ErrorIs(t, svc.RemoveAlias(context.Background(), "churn-model", "shadow"), domain.ErrAliasNotFound)
}

func TestPromotionService_Resolve(t *testing.T) {
	versions := new(testutil.MockVersionRepo)
	aliases := new(testutil.MockAliasRepo)
	svc := NewPromotionService(versions, aliases, new(testutil.MockDecisionRepo))

	expected := &domain.ModelVersion{ModelName: "churn-model", Version: 3, RunID: uuid.New()}
	aliases.On("Get", mock.Anything, "churn-model", domain.AliasChampion).
		Return(&domain.Alias{ModelName: "churn-model", Alias: domain.AliasChampion, Version: 3}, nil)
	versions.On("Get", mock.Anything, "churn-model", 3).Return(expected, nil)

	v, err := svc.Resolve(context.Background(), "churn-model", domain.AliasChampion)
	require.NoError(t, err)
	assert.Equal(t, expected, v)
}
