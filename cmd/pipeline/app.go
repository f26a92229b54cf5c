package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"model-pipeline/internal/adapters/secondary/objstore"
	"model-pipeline/internal/adapters/secondary/postgres"
	"model-pipeline/internal/config"
	ports "model-pipeline/internal/core/ports/output"
	"model-pipeline/internal/core/services"
)

// app wires the repositories and services for one CLI operation. Each
// operation is a short-lived unit of work; all shared mutable state lives in
// the registry/tracking store, never in this process.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	tracker   ports.ExperimentTracker
	versions  ports.ModelVersionRepository
	aliases   ports.AliasRepository
	decisions ports.GateDecisionRepository
	artifacts *objstore.Client

	training   *services.TrainingService
	evaluation *services.EvaluationService
	registry   *services.RegistryService
	promotion  *services.PromotionService
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	initLogger(cfg)

	poolCfg, err := pgxpool.ParseConfig(cfg.Tracking.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse tracking store config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Tracking.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Tracking.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Tracking.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create tracking store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping tracking store: %w", err)
	}

	store, err := objstore.NewClient(cfg.Artifacts)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		pool:      pool,
		tracker:   postgres.NewExperimentTracker(pool),
		versions:  postgres.NewModelVersionRepository(pool),
		aliases:   postgres.NewAliasRepository(pool),
		decisions: postgres.NewGateDecisionRepository(pool),
		artifacts: store,
	}
	a.training = services.NewTrainingService(a.tracker, a.artifacts)
	a.evaluation = services.NewEvaluationService(a.tracker, a.decisions, a.versions, a.artifacts)
	a.registry = services.NewRegistryService(a.tracker, a.versions, a.aliases, a.artifacts)
	a.promotion = services.NewPromotionService(a.versions, a.aliases, a.decisions)

	return a, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
