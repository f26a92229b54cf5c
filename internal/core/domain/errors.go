package domain

import "errors"

// ============================================================================
// Configuration Errors
// ============================================================================

var (
	ErrConfigInvalid = errors.New("configuration is missing or malformed")
)

// ============================================================================
// Referential Integrity Errors
// ============================================================================

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrArtifactNotFound = errors.New("model artifact not found or corrupt")
	ErrArtifactMissing  = errors.New("run has no completed artifact")
	ErrModelNotFound    = errors.New("registered model not found")
	ErrVersionNotFound  = errors.New("model version not found")
	ErrAliasNotFound    = errors.New("alias not found")
)

// ============================================================================
// Evaluation Errors
// ============================================================================

var (
	ErrMetricComputation    = errors.New("required metric cannot be computed from evaluation data")
	ErrGateDecisionNotFound = errors.New("no gate decision recorded for this run and policy")
)

// ============================================================================
// Validation Errors
// ============================================================================

var (
	ErrInvalidModelName = errors.New("model name is required")
	ErrInvalidVersion   = errors.New("model version must be a positive integer")
	ErrInvalidAliasName = errors.New("alias name is required")
)

// ============================================================================
// Business Rule Errors
// ============================================================================

var (
	// ErrGateNotPassed blocks a promotion whose target version has no
	// passing gate decision for the policy in force and no override.
	ErrGateNotPassed = errors.New("version has no passing gate decision for the current policy")

	// ErrVersionInUse blocks deleting a version while any alias binds it.
	ErrVersionInUse = errors.New("version is bound by an alias and cannot be deleted")

	// ErrRegistryConflict signals a lost atomic-update race; the caller may
	// safely retry after re-reading current state.
	ErrRegistryConflict = errors.New("concurrent registry update lost the race")
)
