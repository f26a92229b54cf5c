package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
)

type gateDecisionRepo struct {
	pool *pgxpool.Pool
}

func NewGateDecisionRepository(pool *pgxpool.Pool) ports.GateDecisionRepository {
	return &gateDecisionRepo{pool: pool}
}

func (r *gateDecisionRepo) Save(ctx context.Context, d *domain.GateDecision) error {
	reasonsJSON, err := json.Marshal(d.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	metricsJSON, err := json.Marshal(d.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	var baselineJSON []byte
	if d.Baseline != nil {
		baselineJSON, err = json.Marshal(d.Baseline)
		if err != nil {
			return fmt.Errorf("marshal baseline: %w", err)
		}
	}
	var attributionsJSON []byte
	if d.Attributions != nil {
		attributionsJSON, err = json.Marshal(d.Attributions)
		if err != nil {
			return fmt.Errorf("marshal attributions: %w", err)
		}
	}

	query := `
		INSERT INTO gate_decision
			(id, run_id, policy_fingerprint, passed, reasons, metrics, baseline, attributions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		d.ID, d.RunID, d.PolicyFingerprint, d.Passed,
		reasonsJSON, metricsJSON, baselineJSON, attributionsJSON, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save gate decision: %w", err)
	}
	return nil
}

func (r *gateDecisionRepo) Latest(ctx context.Context, runID uuid.UUID, policyFingerprint string) (*domain.GateDecision, error) {
	query := `
		SELECT id, run_id, policy_fingerprint, passed, reasons, metrics, baseline, attributions, created_at
		FROM gate_decision
		WHERE run_id = $1 AND policy_fingerprint = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanDecision(r.pool.QueryRow(ctx, query, runID, policyFingerprint))
}

func (r *gateDecisionRepo) LatestByRun(ctx context.Context, runID uuid.UUID) (*domain.GateDecision, error) {
	query := `
		SELECT id, run_id, policy_fingerprint, passed, reasons, metrics, baseline, attributions, created_at
		FROM gate_decision
		WHERE run_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanDecision(r.pool.QueryRow(ctx, query, runID))
}

func scanDecision(row pgx.Row) (*domain.GateDecision, error) {
	d := &domain.GateDecision{}
	var reasonsJSON, metricsJSON, baselineJSON, attributionsJSON []byte
	err := row.Scan(
		&d.ID, &d.RunID, &d.PolicyFingerprint, &d.Passed,
		&reasonsJSON, &metricsJSON, &baselineJSON, &attributionsJSON, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGateDecisionNotFound
		}
		return nil, fmt.Errorf("scan gate decision: %w", err)
	}
	if err := json.Unmarshal(reasonsJSON, &d.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &d.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if len(baselineJSON) > 0 {
		if err := json.Unmarshal(baselineJSON, &d.Baseline); err != nil {
			return nil, fmt.Errorf("unmarshal baseline: %w", err)
		}
	}
	if len(attributionsJSON) > 0 {
		if err := json.Unmarshal(attributionsJSON, &d.Attributions); err != nil {
			return nil, fmt.Errorf("unmarshal attributions: %w", err)
		}
	}
	return d, nil
}
