package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
)

// runRepo is the postgres-backed experiment tracker. Runs are mutable only
// while RUNNING; every write predicate includes status = 'RUNNING' so ended
// runs stay immutable at the store level.
type runRepo struct {
	pool *pgxpool.Pool
}

func NewExperimentTracker(pool *pgxpool.Pool) ports.ExperimentTracker {
	return &runRepo{pool: pool}
}

func (r *runRepo) StartRun(ctx context.Context, name string, tags map[string]string) (*domain.Run, error) {
	if tags == nil {
		tags = map[string]string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	run := &domain.Run{
		ID:        uuid.New(),
		Name:      name,
		Status:    domain.RunStatusRunning,
		Params:    map[string]string{},
		Metrics:   domain.MetricSet{},
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO run (id, name, status, artifact_uri, tags, created_at)
		VALUES ($1, $2, $3, '', $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, run.ID, run.Name, string(run.Status), tagsJSON, run.CreatedAt); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (r *runRepo) LogParams(ctx context.Context, runID uuid.UUID, params map[string]string) error {
	for name, value := range params {
		query := `
			INSERT INTO run_param (run_id, name, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (run_id, name) DO UPDATE SET value = EXCLUDED.value
		`
		if _, err := r.pool.Exec(ctx, query, runID, name, value); err != nil {
			return fmt.Errorf("log param %s: %w", name, err)
		}
	}
	return nil
}

func (r *runRepo) LogMetric(ctx context.Context, runID uuid.UUID, name string, value float64, step int) error {
	query := `
		INSERT INTO run_metric (run_id, name, value, step, logged_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, runID, name, value, step, time.Now().UTC()); err != nil {
		return fmt.Errorf("log metric %s: %w", name, err)
	}
	return nil
}

func (r *runRepo) LogMetrics(ctx context.Context, runID uuid.UUID, metrics domain.MetricSet) error {
	for name, value := range metrics {
		if err := r.LogMetric(ctx, runID, name, value, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *runRepo) SetTag(ctx context.Context, runID uuid.UUID, key, value string) error {
	query := `
		UPDATE run SET tags = tags || jsonb_build_object($2::text, $3::text)
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, runID, key, value)
	if err != nil {
		return fmt.Errorf("set tag %s: %w", key, err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *runRepo) SetArtifact(ctx context.Context, runID uuid.UUID, uri string) error {
	query := `UPDATE run SET artifact_uri = $2 WHERE id = $1 AND status = 'RUNNING'`
	result, err := r.pool.Exec(ctx, query, runID, uri)
	if err != nil {
		return fmt.Errorf("set artifact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *runRepo) EndRun(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error {
	query := `
		UPDATE run SET status = $2, ended_at = $3
		WHERE id = $1 AND status = 'RUNNING'
	`
	result, err := r.pool.Exec(ctx, query, runID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *runRepo) GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, name, status, artifact_uri, tags, created_at, ended_at
		FROM run WHERE id = $1
	`
	run := &domain.Run{}
	var tagsJSON []byte
	var status string
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID, &run.Name, &status, &run.ArtifactURI, &tagsJSON, &run.CreatedAt, &run.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	if err := json.Unmarshal(tagsJSON, &run.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal run tags: %w", err)
	}

	run.Params = map[string]string{}
	rows, err := r.pool.Query(ctx, `SELECT name, value FROM run_param WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run params: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan run param: %w", err)
		}
		run.Params[name] = value
	}

	// Latest observation per metric name.
	run.Metrics = domain.MetricSet{}
	metricRows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (name) name, value
		FROM run_metric WHERE run_id = $1
		ORDER BY name, step DESC, logged_at DESC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run metrics: %w", err)
	}
	defer metricRows.Close()
	for metricRows.Next() {
		var name string
		var value float64
		if err := metricRows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan run metric: %w", err)
		}
		run.Metrics[name] = value
	}

	return run, nil
}
