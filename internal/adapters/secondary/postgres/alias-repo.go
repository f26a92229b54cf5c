package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
)

// aliasRepo stores alias bindings. Every mutation is a single statement, so
// concurrent promotions on the same alias resolve atomically in the store:
// readers never observe a half-updated binding and a lost compare-and-swap
// leaves the binding untouched.
type aliasRepo struct {
	pool *pgxpool.Pool
}

func NewAliasRepository(pool *pgxpool.Pool) ports.AliasRepository {
	return &aliasRepo{pool: pool}
}

func (r *aliasRepo) Get(ctx context.Context, modelName, alias string) (*domain.Alias, error) {
	query := `
		SELECT model_name, alias, version, audit_reason, updated_at
		FROM model_alias
		WHERE model_name = $1 AND alias = $2
	`
	a := &domain.Alias{}
	err := r.pool.QueryRow(ctx, query, modelName, alias).Scan(
		&a.ModelName, &a.Alias, &a.Version, &a.AuditReason, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAliasNotFound
		}
		return nil, fmt.Errorf("get alias: %w", err)
	}
	return a, nil
}

func (r *aliasRepo) ListByModel(ctx context.Context, modelName string) ([]*domain.Alias, error) {
	query := `
		SELECT model_name, alias, version, audit_reason, updated_at
		FROM model_alias
		WHERE model_name = $1
		ORDER BY alias
	`
	rows, err := r.pool.Query(ctx, query, modelName)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	aliases := []*domain.Alias{}
	for rows.Next() {
		a := &domain.Alias{}
		if err := rows.Scan(&a.ModelName, &a.Alias, &a.Version, &a.AuditReason, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func (r *aliasRepo) Bind(ctx context.Context, a *domain.Alias, expected *int) error {
	switch {
	case expected == nil:
		return r.bindUnconditional(ctx, a)
	case *expected == 0:
		return r.bindIfUnbound(ctx, a)
	default:
		return r.bindIfCurrent(ctx, a, *expected)
	}
}

func (r *aliasRepo) bindUnconditional(ctx context.Context, a *domain.Alias) error {
	query := `
		INSERT INTO model_alias (model_name, alias, version, audit_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_name, alias)
		DO UPDATE SET version = EXCLUDED.version,
		              audit_reason = EXCLUDED.audit_reason,
		              updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, a.ModelName, a.Alias, a.Version, a.AuditReason, a.UpdatedAt)
	return mapBindError(err)
}

func (r *aliasRepo) bindIfUnbound(ctx context.Context, a *domain.Alias) error {
	query := `
		INSERT INTO model_alias (model_name, alias, version, audit_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, a.ModelName, a.Alias, a.Version, a.AuditReason, a.UpdatedAt)
	return mapBindError(err)
}

func (r *aliasRepo) bindIfCurrent(ctx context.Context, a *domain.Alias, expected int) error {
	query := `
		UPDATE model_alias
		SET version = $3, audit_reason = $4, updated_at = $5
		WHERE model_name = $1 AND alias = $2 AND version = $6
	`
	result, err := r.pool.Exec(ctx, query, a.ModelName, a.Alias, a.Version, a.AuditReason, a.UpdatedAt, expected)
	if err != nil {
		return mapBindError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRegistryConflict
	}
	return nil
}

func (r *aliasRepo) Remove(ctx context.Context, modelName, alias string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM model_alias WHERE model_name = $1 AND alias = $2
	`, modelName, alias)
	if err != nil {
		return fmt.Errorf("remove alias: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAliasNotFound
	}
	return nil
}

func mapBindError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			// another writer bound the alias first
			return domain.ErrRegistryConflict
		case "23503":
			// binding references a version that does not exist
			return domain.ErrVersionNotFound
		}
	}
	return fmt.Errorf("bind alias: %w", err)
}
