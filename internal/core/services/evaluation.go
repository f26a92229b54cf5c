package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"model-pipeline/internal/core/domain"
	ports "model-pipeline/internal/core/ports/output"
	"model-pipeline/internal/model"
)

// EvaluationService scores a run's artifact against a held-out dataset and
// records the resulting gate decision. Evaluation is idempotent: the same
// run, dataset and policy yield an equivalent decision on every invocation.
type EvaluationService struct {
	tracker   ports.ExperimentTracker
	decisions ports.GateDecisionRepository
	versions  ports.ModelVersionRepository
	artifacts ports.ArtifactStore
}

func NewEvaluationService(
	tracker ports.ExperimentTracker,
	decisions ports.GateDecisionRepository,
	versions ports.ModelVersionRepository,
	artifacts ports.ArtifactStore,
) *EvaluationService {
	return &EvaluationService{tracker: tracker, decisions: decisions, versions: versions, artifacts: artifacts}
}

// BaselineRef names the version used as the regression comparison point,
// typically the currently-promoted champion.
type BaselineRef struct {
	ModelName string
	Version   int
}

type EvaluateParams struct {
	RunID        uuid.UUID
	EvalDataPath string
	Policy       domain.GatePolicy
	Baseline     *BaselineRef
	Attribution  bool
	RunName      string
}

// Evaluate loads the run's artifact, computes the full metric suite, checks
// every configured threshold without short-circuiting, optionally compares
// against the baseline version on the primary metric, and stores the
// decision. Threshold violations are data, not faults: they come back
// inside the decision, never as an error.
func (s *EvaluationService) Evaluate(ctx context.Context, p EvaluateParams) (*domain.GateDecision, error) {
	run, err := s.tracker.GetRun(ctx, p.RunID)
	if err != nil {
		return nil, err
	}

	artifact, err := s.loadArtifact(ctx, run.ArtifactURI)
	if err != nil {
		return nil, err
	}

	ds, err := model.LoadCSV(p.EvalDataPath, artifact.FeatureNames, artifact.TargetColumn, artifact.Encoders)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}

	probs, err := artifact.Predict(ds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}

	suite, err := model.ComputeAll(ds.Labels, probs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}
	metrics := domain.MetricSet(suite)

	// A threshold naming a metric outside the computed suite fails the
	// evaluation rather than silently skipping the threshold.
	if missing := p.Policy.MissingMetrics(metrics); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMetricComputation, strings.Join(missing, ", "))
	}

	reasons := p.Policy.Check(metrics)

	var baseline *domain.BaselineComparison
	if p.Baseline != nil {
		baseline, err = s.compareBaseline(ctx, p, metrics)
		if err != nil {
			return nil, err
		}
		if baseline.Regressed {
			reasons = append(reasons, fmt.Sprintf(
				"baseline regression on %s (candidate %.4f, baseline %.4f, tolerance %.4f)",
				baseline.Metric, baseline.Candidate, baseline.Baseline, baseline.Tolerance))
		}
	}

	decision := &domain.GateDecision{
		ID:                uuid.New(),
		RunID:             p.RunID,
		Passed:            len(reasons) == 0,
		Reasons:           reasons,
		Metrics:           metrics,
		PolicyFingerprint: p.Policy.Fingerprint(),
		Baseline:          baseline,
		CreatedAt:         time.Now().UTC(),
	}
	if p.Attribution {
		decision.Attributions = artifact.Attributions(ds)
	}

	if err := s.decisions.Save(ctx, decision); err != nil {
		return nil, fmt.Errorf("save gate decision: %w", err)
	}

	s.logEvaluationRun(ctx, p, decision)

	log.WithFields(log.Fields{
		"run_id":  p.RunID,
		"passed":  decision.Passed,
		"reasons": decision.Reasons,
	}).Info("gate decision recorded")

	return decision, nil
}

func (s *EvaluationService) loadArtifact(ctx context.Context, uri string) (*model.Artifact, error) {
	if uri == "" {
		return nil, domain.ErrArtifactNotFound
	}
	data, err := s.artifacts.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactNotFound, err)
	}
	artifact, err := model.DecodeArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactNotFound, err)
	}
	return artifact, nil
}

// compareBaseline resolves the baseline version's primary-metric value from
// its most recent recorded evaluation, recomputing on the same dataset when
// no evaluation was ever stored.
func (s *EvaluationService) compareBaseline(ctx context.Context, p EvaluateParams, candidate domain.MetricSet) (*domain.BaselineComparison, error) {
	primary := p.Policy.PrimaryMetric
	if primary == "" {
		return nil, fmt.Errorf("%w: baseline comparison requires a primary metric", domain.ErrConfigInvalid)
	}
	candidateValue, ok := candidate[primary]
	if !ok {
		return nil, fmt.Errorf("%w: primary metric %s", domain.ErrMetricComputation, primary)
	}

	bv, err := s.versions.Get(ctx, p.Baseline.ModelName, p.Baseline.Version)
	if err != nil {
		return nil, err
	}

	baselineValue, err := s.baselineMetric(ctx, bv, primary, p.EvalDataPath)
	if err != nil {
		return nil, err
	}

	direction := domain.DirectionMin
	for _, t := range p.Policy.Thresholds {
		if t.Metric == primary {
			direction = t.Direction
		}
	}

	regressed := candidateValue < baselineValue-p.Policy.BaselineTolerance
	if direction == domain.DirectionMax {
		regressed = candidateValue > baselineValue+p.Policy.BaselineTolerance
	}

	return &domain.BaselineComparison{
		ModelName: bv.ModelName,
		Version:   bv.Version,
		Metric:    primary,
		Baseline:  baselineValue,
		Candidate: candidateValue,
		Tolerance: p.Policy.BaselineTolerance,
		Regressed: regressed,
	}, nil
}

func (s *EvaluationService) baselineMetric(ctx context.Context, bv *domain.ModelVersion, primary, dataPath string) (float64, error) {
	if d, err := s.decisions.LatestByRun(ctx, bv.RunID); err == nil {
		if v, ok := d.Metrics[primary]; ok {
			return v, nil
		}
	}

	log.WithFields(log.Fields{"model": bv.ModelName, "version": bv.Version}).
		Info("baseline has no recorded evaluation, recomputing on the evaluation dataset")

	artifact, err := s.loadArtifact(ctx, bv.ArtifactURI)
	if err != nil {
		return 0, err
	}
	ds, err := model.LoadCSV(dataPath, artifact.FeatureNames, artifact.TargetColumn, artifact.Encoders)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}
	probs, err := artifact.Predict(ds)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}
	v, err := model.ComputeMetric(primary, ds.Labels, probs)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}
	return v, nil
}

// logEvaluationRun records the evaluation as its own tracker run, tagged
// with the source run so later tooling can find the latest decision for a
// candidate. Tracker failures here do not fail the evaluation: the decision
// is already durably stored.
func (s *EvaluationService) logEvaluationRun(ctx context.Context, p EvaluateParams, d *domain.GateDecision) {
	name := p.RunName
	if name == "" {
		name = "eval_" + p.RunID.String()[:8]
	}
	run, err := s.tracker.StartRun(ctx, name, map[string]string{
		"task":          "model_evaluation",
		"source_run_id": p.RunID.String(),
	})
	if err != nil {
		log.WithError(err).Warn("could not open evaluation run")
		return
	}
	if err := s.tracker.LogMetrics(ctx, run.ID, d.Metrics); err != nil {
		log.WithError(err).Warn("could not log evaluation metrics")
	}
	if err := s.tracker.SetTag(ctx, run.ID, "validation_passed", strconv.FormatBool(d.Passed)); err != nil {
		log.WithError(err).Warn("could not tag evaluation run")
	}
	if err := s.tracker.EndRun(ctx, run.ID, domain.RunStatusFinished); err != nil {
		log.WithError(err).Warn("could not close evaluation run")
	}
}

// WritePredictions scores the dataset with the run's artifact and writes a
// prediction CSV: the encoded feature columns, the true label, the
// positive-class probability and the 0.5-cutoff prediction.
func (s *EvaluationService) WritePredictions(ctx context.Context, runID uuid.UUID, dataPath, outPath string) error {
	run, err := s.tracker.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	artifact, err := s.loadArtifact(ctx, run.ArtifactURI)
	if err != nil {
		return err
	}
	ds, err := model.LoadCSV(dataPath, artifact.FeatureNames, artifact.TargetColumn, artifact.Encoders)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}
	probs, err := artifact.Predict(ds)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMetricComputation, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create predictions file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string{}, ds.FeatureNames...), ds.TargetColumn, "probability", "prediction")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}
	for i, row := range ds.Features {
		record := make([]string, 0, len(row)+3)
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		record = append(record,
			strconv.FormatFloat(ds.Labels[i], 'g', -1, 64),
			strconv.FormatFloat(probs[i], 'f', 6, 64),
			strconv.Itoa(boolToInt(probs[i] >= 0.5)),
		)
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write predictions: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}

	log.WithFields(log.Fields{"run_id": runID, "rows": len(ds.Features), "path": outPath}).
		Info("predictions written")
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
