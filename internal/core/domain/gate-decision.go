package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ThresholdDirection string

const (
	// DirectionMin requires metric >= bound (quality metrics: accuracy, auc, ...).
	DirectionMin ThresholdDirection = "min"
	// DirectionMax requires metric <= bound (error metrics: log_loss, ...).
	DirectionMax ThresholdDirection = "max"
)

// Threshold is one configured bound on an evaluation metric.
type Threshold struct {
	Metric    string             `json:"metric"`
	Bound     float64            `json:"bound"`
	Direction ThresholdDirection `json:"direction"`
}

// Violated reports whether the given value breaks this threshold.
func (t Threshold) Violated(value float64) bool {
	if t.Direction == DirectionMax {
		return value > t.Bound
	}
	return value < t.Bound
}

// Reason renders the violation text for this threshold, e.g.
// "auc below 0.80".
func (t Threshold) Reason() string {
	word := "below"
	if t.Direction == DirectionMax {
		word = "above"
	}
	return fmt.Sprintf("%s %s %s", t.Metric, word, formatBound(t.Bound))
}

// formatBound renders a bound with its exact decimal digits, padded to at
// least two so 0.8 reads back as the conventional "0.80".
func formatBound(b float64) string {
	s := strconv.FormatFloat(b, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s + ".00"
	}
	if len(s)-dot-1 < 2 {
		return s + "0"
	}
	return s
}

// GatePolicy is the promotion policy in force for one evaluation: the full
// threshold set plus the primary metric used for baseline comparison.
// Thresholds are an explicit evaluation input, never implicit state; a
// changed policy yields a different fingerprint and forces re-evaluation.
type GatePolicy struct {
	Thresholds        []Threshold `json:"thresholds"`
	PrimaryMetric     string      `json:"primary_metric"`
	BaselineTolerance float64     `json:"baseline_tolerance"`
}

// Check compares the metric set against every threshold and returns the
// complete ordered reason list. It never short-circuits: all violations are
// enumerated so the full reason list is available to the caller.
// A metric named by a threshold but absent from the set is a computation
// failure and is reported by the evaluator before Check is reached.
func (p GatePolicy) Check(metrics MetricSet) []string {
	reasons := make([]string, 0)
	for _, t := range p.sorted() {
		value, ok := metrics[t.Metric]
		if !ok {
			continue
		}
		if t.Violated(value) {
			reasons = append(reasons, t.Reason())
		}
	}
	return reasons
}

// MissingMetrics returns the threshold metrics absent from the set, in
// deterministic order.
func (p GatePolicy) MissingMetrics(metrics MetricSet) []string {
	var missing []string
	for _, t := range p.sorted() {
		if _, ok := metrics[t.Metric]; !ok {
			missing = append(missing, t.Metric)
		}
	}
	return missing
}

// Fingerprint is a stable digest of the policy. Two policies with the same
// thresholds, primary metric and tolerance produce the same fingerprint
// regardless of threshold ordering.
func (p GatePolicy) Fingerprint() string {
	h := sha256.New()
	for _, t := range p.sorted() {
		fmt.Fprintf(h, "%s|%s|%s\n", t.Metric, t.Direction,
			strconv.FormatFloat(t.Bound, 'g', -1, 64))
	}
	fmt.Fprintf(h, "primary=%s|tol=%s\n", p.PrimaryMetric,
		strconv.FormatFloat(p.BaselineTolerance, 'g', -1, 64))
	return hex.EncodeToString(h.Sum(nil))
}

func (p GatePolicy) sorted() []Threshold {
	ts := make([]Threshold, len(p.Thresholds))
	copy(ts, p.Thresholds)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Metric < ts[j].Metric })
	return ts
}

// BaselineComparison records the regression check against the
// currently-promoted version on the policy's primary metric.
type BaselineComparison struct {
	ModelName string  `json:"model_name"`
	Version   int     `json:"version"`
	Metric    string  `json:"metric"`
	Baseline  float64 `json:"baseline"`
	Candidate float64 `json:"candidate"`
	Tolerance float64 `json:"tolerance"`
	Regressed bool    `json:"regressed"`
}

// GateDecision is the recorded outcome of evaluating one run against one
// policy. It is produced exactly once per evaluation invocation and never
// retroactively altered; a changed policy requires a new evaluation.
type GateDecision struct {
	ID                uuid.UUID           `json:"id"`
	RunID             uuid.UUID           `json:"run_id"`
	Passed            bool                `json:"passed"`
	Reasons           []string            `json:"reasons"`
	Metrics           MetricSet           `json:"metrics"`
	PolicyFingerprint string              `json:"policy_fingerprint"`
	Baseline          *BaselineComparison `json:"baseline,omitempty"`
	// Attributions is optional explainability enrichment; it never
	// participates in the pass/fail outcome.
	Attributions map[string]float64 `json:"attributions,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}
