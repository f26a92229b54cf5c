package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
	"model-pipeline/internal/model"
)

// TrainingService runs the black-box training procedure and persists its
// parameters, per-iteration metrics and final artifact under a new run.
type TrainingService struct {
	tracker   ports.ExperimentTracker
	artifacts ports.ArtifactStore
}

func NewTrainingService(tracker ports.ExperimentTracker, artifacts ports.ArtifactStore) *TrainingService {
	return &TrainingService{tracker: tracker, artifacts: artifacts}
}

type TrainParams struct {
	DataPath        string
	RunName         string
	ModelName       string
	Features        []string
	TargetColumn    string
	Hyperparameters model.Hyperparameters
	Tags            map[string]string
}

// Train executes one training run. On any failure after the run is opened,
// the run is closed as FAILED and no artifact pointer is recorded, so the
// run can never be registered as a model version.
func (s *TrainingService) Train(ctx context.Context, p TrainParams) (*domain.Run, error) {
	if p.ModelName == "" {
		return nil, domain.ErrInvalidModelName
	}
	if p.DataPath == "" {
		return nil, fmt.Errorf("%w: training data path is required", domain.ErrConfigInvalid)
	}

	tags := map[string]string{"task": "model_training", "model_name": p.ModelName}
	for k, v := range p.Tags {
		tags[k] = v
	}

	run, err := s.tracker.StartRun(ctx, p.RunName, tags)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	log.WithFields(log.Fields{"run_id": run.ID, "model": p.ModelName}).Info("training run started")

	if err := s.tracker.LogParams(ctx, run.ID, trainingParams(p)); err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("log params: %w", err))
	}

	ds, err := model.LoadCSV(p.DataPath, p.Features, p.TargetColumn, nil)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("load training data: %w", err))
	}
	log.WithFields(log.Fields{"rows": len(ds.Features), "features": len(ds.FeatureNames)}).Info("training data loaded")

	result, err := model.Train(ds, p.Hyperparameters)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("train model: %w", err))
	}

	for _, it := range result.History {
		if err := s.tracker.LogMetric(ctx, run.ID, "train_log_loss", it.TrainLoss, it.Round); err != nil {
			return nil, s.fail(ctx, run, fmt.Errorf("log iteration metric: %w", err))
		}
		if err := s.tracker.LogMetric(ctx, run.ID, "validation_log_loss", it.ValLoss, it.Round); err != nil {
			return nil, s.fail(ctx, run, fmt.Errorf("log iteration metric: %w", err))
		}
	}

	final := domain.MetricSet{}
	for name, value := range result.Metrics {
		final[name] = value
	}
	for name, weight := range result.TopWeights(10) {
		final["feature_importance/"+name] = weight
	}
	if err := s.tracker.LogMetrics(ctx, run.ID, final); err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("log final metrics: %w", err))
	}

	result.Artifact.ModelName = p.ModelName
	data, err := result.Artifact.Encode()
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("encode artifact: %w", err))
	}
	uri, err := s.artifacts.Put(ctx, fmt.Sprintf("runs/%s/model.json", run.ID), data)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("store artifact: %w", err))
	}
	if err := s.tracker.SetArtifact(ctx, run.ID, uri); err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("record artifact: %w", err))
	}

	if err := s.tracker.EndRun(ctx, run.ID, domain.RunStatusFinished); err != nil {
		return nil, fmt.Errorf("end run: %w", err)
	}

	log.WithFields(log.Fields{
		"run_id":        run.ID,
		"best_round":    result.BestRound,
		"test_accuracy": result.Metrics["test_accuracy"],
		"artifact_uri":  uri,
	}).Info("training run finished")

	run.Status = domain.RunStatusFinished
	run.ArtifactURI = uri
	run.Metrics = final
	return run, nil
}

// fail closes the run as FAILED and returns the original error. Partially
// written metrics stay attached to the failed run; the registry refuses to
// register versions from it.
func (s *TrainingService) fail(ctx context.Context, run *domain.Run, cause error) error {
	if err := s.tracker.EndRun(ctx, run.ID, domain.RunStatusFailed); err != nil {
		log.WithError(err).WithField("run_id", run.ID).Warn("could not mark run failed")
	}
	log.WithError(cause).WithField("run_id", run.ID).Error("training run failed")
	return cause
}

func trainingParams(p TrainParams) map[string]string {
	hp := p.Hyperparameters
	return map[string]string{
		"booster":                 hp.Booster,
		"objective":               hp.Objective,
		"eval_metrics":            strings.Join(hp.EvalMetrics, ","),
		"device":                  hp.Device,
		"learning_rate":           strconv.FormatFloat(hp.LearningRate, 'g', -1, 64),
		"rounds":                  strconv.Itoa(hp.Rounds),
		"early_stopping_patience": strconv.Itoa(hp.EarlyStoppingPatience),
		"train_test_split":        strconv.FormatFloat(hp.TrainTestSplit, 'g', -1, 64),
		"random_state":            strconv.FormatInt(hp.RandomState, 10),
		"lambda":                  strconv.FormatFloat(hp.Lambda, 'g', -1, 64),
		"target_column":           p.TargetColumn,
		"feature_count":           strconv.Itoa(len(p.Features)),
	}
}
