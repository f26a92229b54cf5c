package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Artifact is the serialized predictive model plus the metadata needed to
// reproduce its inputs: feature list, target column, categorical encoders,
// standardization constants and the training configuration snapshot.
// An artifact is owned by the run that produced it and referenced, never
// duplicated, by registered model versions.
type Artifact struct {
	ModelName    string          `json:"model_name"`
	FeatureNames []string        `json:"feature_names"`
	TargetColumn string          `json:"target_column"`
	Weights      []float64       `json:"weights"`
	Bias         float64         `json:"bias"`
	Means        []float64       `json:"means"`
	Stds         []float64       `json:"stds"`
	Encoders     Encoders        `json:"encoders,omitempty"`
	Config       Hyperparameters `json:"config"`
	TrainedAt    time.Time       `json:"trained_at"`
}

// Encode serializes the artifact for object storage.
func (a *Artifact) Encode() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// DecodeArtifact deserializes and validates a stored artifact. Truncated or
// inconsistent payloads are reported as corrupt.
func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	n := len(a.FeatureNames)
	if n == 0 || len(a.Weights) != n || len(a.Means) != n || len(a.Stds) != n {
		return nil, fmt.Errorf("decode artifact: inconsistent feature metadata")
	}
	return &a, nil
}

// Score returns the positive-class probability for one feature row given in
// the artifact's feature order.
func (a *Artifact) Score(row []float64) float64 {
	z := a.Bias
	for j, w := range a.Weights {
		z += w * a.standardize(j, row[j])
	}
	return sigmoid(z)
}

// Predict scores every row of the dataset.
func (a *Artifact) Predict(ds *Dataset) ([]float64, error) {
	if len(ds.FeatureNames) != len(a.FeatureNames) {
		return nil, fmt.Errorf("predict: dataset has %d features, model expects %d",
			len(ds.FeatureNames), len(a.FeatureNames))
	}
	for j, name := range a.FeatureNames {
		if ds.FeatureNames[j] != name {
			return nil, fmt.Errorf("predict: feature %d is %q, model expects %q",
				j, ds.FeatureNames[j], name)
		}
	}
	probs := make([]float64, len(ds.Features))
	for i, row := range ds.Features {
		probs[i] = a.Score(row)
	}
	return probs, nil
}

// Attributions returns a per-feature contribution summary over the dataset:
// the mean absolute standardized contribution of each feature to the
// pre-sigmoid score. Enrichment only; not part of gate pass/fail logic.
func (a *Artifact) Attributions(ds *Dataset) map[string]float64 {
	out := make(map[string]float64, len(a.FeatureNames))
	if len(ds.Features) == 0 {
		return out
	}
	for j, name := range a.FeatureNames {
		var sum float64
		for _, row := range ds.Features {
			sum += math.Abs(a.Weights[j] * a.standardize(j, row[j]))
		}
		out[name] = sum / float64(len(ds.Features))
	}
	return out
}

func (a *Artifact) standardize(j int, v float64) float64 {
	std := a.Stds[j]
	if std == 0 {
		std = 1
	}
	return (v - a.Means[j]) / std
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
