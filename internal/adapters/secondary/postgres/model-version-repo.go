package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
)

type modelVersionRepo struct {
	pool *pgxpool.Pool
}

func NewModelVersionRepository(pool *pgxpool.Pool) ports.ModelVersionRepository {
	return &modelVersionRepo{pool: pool}
}

// Create allocates the next version number and stores the mapping. The
// counter increment commits independently of the version insert, so a
// failed registration consumes its number: version numbers are strictly
// increasing and never reused, but not guaranteed contiguous.
func (r *modelVersionRepo) Create(ctx context.Context, modelName string, runID uuid.UUID, artifactURI, description string) (*domain.ModelVersion, error) {
	var version int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO model_version_seq (model_name, next_version)
		VALUES ($1, 1)
		ON CONFLICT (model_name)
		DO UPDATE SET next_version = model_version_seq.next_version + 1
		RETURNING next_version
	`, modelName).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("allocate version number: %w", err)
	}

	v := &domain.ModelVersion{
		ModelName:   modelName,
		Version:     version,
		RunID:       runID,
		ArtifactURI: artifactURI,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO model_version (model_name, version, run_id, artifact_uri, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query, v.ModelName, v.Version, v.RunID, v.ArtifactURI, v.Description, v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrRegistryConflict
		}
		return nil, fmt.Errorf("create model version: %w", err)
	}
	return v, nil
}

func (r *modelVersionRepo) FindByRun(ctx context.Context, modelName string, runID uuid.UUID) (*domain.ModelVersion, error) {
	query := `
		SELECT model_name, version, run_id, artifact_uri, description, created_at
		FROM model_version
		WHERE model_name = $1 AND run_id = $2
		ORDER BY version DESC
		LIMIT 1
	`
	return scanVersion(r.pool.QueryRow(ctx, query, modelName, runID))
}

func (r *modelVersionRepo) Get(ctx context.Context, modelName string, version int) (*domain.ModelVersion, error) {
	query := `
		SELECT model_name, version, run_id, artifact_uri, description, created_at
		FROM model_version
		WHERE model_name = $1 AND version = $2
	`
	return scanVersion(r.pool.QueryRow(ctx, query, modelName, version))
}

func (r *modelVersionRepo) List(ctx context.Context, modelName string) ([]*domain.ModelVersion, error) {
	query := `
		SELECT model_name, version, run_id, artifact_uri, description, created_at
		FROM model_version
		WHERE model_name = $1
		ORDER BY version ASC
	`
	rows, err := r.pool.Query(ctx, query, modelName)
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	defer rows.Close()

	versions := []*domain.ModelVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *modelVersionRepo) ListModels(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT model_name FROM model_version ORDER BY model_name`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan model name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *modelVersionRepo) UpdateDescription(ctx context.Context, modelName string, version int, description string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE model_version SET description = $3
		WHERE model_name = $1 AND version = $2
	`, modelName, version, description)
	if err != nil {
		return fmt.Errorf("update version description: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

// Delete removes a version. The alias table's foreign key restricts the
// delete while any alias binds the version, which surfaces as VersionInUse.
func (r *modelVersionRepo) Delete(ctx context.Context, modelName string, version int) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM model_version WHERE model_name = $1 AND version = $2
	`, modelName, version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrVersionInUse
		}
		return fmt.Errorf("delete model version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

func scanVersion(row pgx.Row) (*domain.ModelVersion, error) {
	v := &domain.ModelVersion{}
	err := row.Scan(&v.ModelName, &v.Version, &v.RunID, &v.ArtifactURI, &v.Description, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("scan model version: %w", err)
	}
	return v, nil
}
