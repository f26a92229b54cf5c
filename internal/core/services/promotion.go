package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
)

// PromotionService is the alias state machine. Each (model, alias) pair is
// either unbound or bound to exactly one version; rebinding is applied as a
// single atomic compare-and-swap against the backing store, so racing
// promotions cannot interleave into a binding neither caller intended.
type PromotionService struct {
	versions  ports.ModelVersionRepository
	aliases   ports.AliasRepository
	decisions ports.GateDecisionRepository
}

func NewPromotionService(
	versions ports.ModelVersionRepository,
	aliases ports.AliasRepository,
	decisions ports.GateDecisionRepository,
) *PromotionService {
	return &PromotionService{versions: versions, aliases: aliases, decisions: decisions}
}

type PromoteOptions struct {
	// Override skips the gate check. The override is recorded in the
	// binding's audit reason so it stays distinguishable from a gated
	// promotion.
	Override       bool
	OverrideReason string
	// ExpectedVersion pins the compare-and-swap to a specific prior
	// binding; nil uses the binding observed at the start of the call.
	ExpectedVersion *int
	Policy          domain.GatePolicy
}

// Promote rebinds the alias to the given version. It succeeds only when the
// version's run has a stored passing gate decision for the policy in force,
// or an explicit override is supplied. On a lost race the binding is left
// unchanged and domain.ErrRegistryConflict is returned.
func (s *PromotionService) Promote(ctx context.Context, modelName string, version int, alias string, opts PromoteOptions) (*domain.Alias, error) {
	if err := validateBinding(modelName, version, alias); err != nil {
		return nil, err
	}

	v, err := s.versions.Get(ctx, modelName, version)
	if err != nil {
		return nil, err
	}

	audit, err := s.gateAudit(ctx, v, opts)
	if err != nil {
		return nil, err
	}

	expected := 0
	current, err := s.aliases.Get(ctx, modelName, alias)
	switch {
	case err == nil:
		expected = current.Version
	case errors.Is(err, domain.ErrAliasNotFound):
		// unbound: first assignment
	default:
		return nil, err
	}
	if opts.ExpectedVersion != nil {
		expected = *opts.ExpectedVersion
	}

	binding := &domain.Alias{
		ModelName:   modelName,
		Alias:       alias,
		Version:     version,
		AuditReason: audit,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.aliases.Bind(ctx, binding, &expected); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"model":    modelName,
		"alias":    alias,
		"version":  version,
		"previous": expected,
		"audit":    audit,
	}).Info("alias promoted")
	return binding, nil
}

// SetAlias performs the direct first assignment of an alias. When the alias
// is already bound, reassignment is a promotion and goes through the gate.
func (s *PromotionService) SetAlias(ctx context.Context, modelName string, version int, alias string, policy domain.GatePolicy) (*domain.Alias, error) {
	if err := validateBinding(modelName, version, alias); err != nil {
		return nil, err
	}

	if _, err := s.aliases.Get(ctx, modelName, alias); err == nil {
		return s.Promote(ctx, modelName, version, alias, PromoteOptions{Policy: policy})
	} else if !errors.Is(err, domain.ErrAliasNotFound) {
		return nil, err
	}

	if _, err := s.versions.Get(ctx, modelName, version); err != nil {
		return nil, err
	}

	expected := 0
	binding := &domain.Alias{
		ModelName:   modelName,
		Alias:       alias,
		Version:     version,
		AuditReason: "initial assignment",
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.aliases.Bind(ctx, binding, &expected); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"model": modelName, "alias": alias, "version": version}).
		Info("alias assigned")
	return binding, nil
}

// RemoveAlias transitions the alias back to unbound. The previously bound
// version remains a valid, independently addressable model version.
func (s *PromotionService) RemoveAlias(ctx context.Context, modelName, alias string) error {
	if modelName == "" {
		return domain.ErrInvalidModelName
	}
	if alias == "" {
		return domain.ErrInvalidAliasName
	}
	if err := s.aliases.Remove(ctx, modelName, alias); err != nil {
		return err
	}
	log.WithFields(log.Fields{"model": modelName, "alias": alias}).Info("alias removed")
	return nil
}

// Resolve returns the version currently bound to the alias.
func (s *PromotionService) Resolve(ctx context.Context, modelName, alias string) (*domain.ModelVersion, error) {
	if modelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	if alias == "" {
		return nil, domain.ErrInvalidAliasName
	}
	a, err := s.aliases.Get(ctx, modelName, alias)
	if err != nil {
		return nil, err
	}
	return s.versions.Get(ctx, modelName, a.Version)
}

func (s *PromotionService) gateAudit(ctx context.Context, v *domain.ModelVersion, opts PromoteOptions) (string, error) {
	if opts.Override {
		reason := opts.OverrideReason
		if reason == "" {
			reason = "operator override"
		}
		return "override: " + reason, nil
	}

	d, err := s.decisions.Latest(ctx, v.RunID, opts.Policy.Fingerprint())
	if err != nil {
		if errors.Is(err, domain.ErrGateDecisionNotFound) {
			return "", fmt.Errorf("%w: version %d has not been evaluated", domain.ErrGateNotPassed, v.Version)
		}
		return "", err
	}
	if !d.Passed {
		return "", fmt.Errorf("%w: %s", domain.ErrGateNotPassed, strings.Join(d.Reasons, "; "))
	}
	return "gated: decision " + d.ID.String(), nil
}

func validateBinding(modelName string, version int, alias string) error {
	if modelName == "" {
		return domain.ErrInvalidModelName
	}
	if version <= 0 {
		return domain.ErrInvalidVersion
	}
	if alias == "" {
		return domain.ErrInvalidAliasName
	}
	return nil
}
