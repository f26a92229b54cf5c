package model

import (
	"fmt"
	"math"
	"time"
)

// Hyperparameters is the enumerated training configuration. The trainer is
// treated as a black box by the rest of the system: what matters is that it
// consumes this configuration and emits an artifact plus a metric set.
type Hyperparameters struct {
	Booster               string   `json:"booster"`
	Objective             string   `json:"objective"`
	EvalMetrics           []string `json:"eval_metrics"`
	Device                string   `json:"device"`
	LearningRate          float64  `json:"learning_rate"`
	Rounds                int      `json:"rounds"`
	EarlyStoppingPatience int      `json:"early_stopping_patience"`
	TrainTestSplit        float64  `json:"train_test_split"`
	RandomState           int64    `json:"random_state"`
	Lambda                float64  `json:"lambda"`
}

func (hp Hyperparameters) withDefaults() Hyperparameters {
	if hp.Booster == "" {
		hp.Booster = "gblinear"
	}
	if hp.Objective == "" {
		hp.Objective = "binary:logistic"
	}
	if len(hp.EvalMetrics) == 0 {
		hp.EvalMetrics = []string{"log_loss", "accuracy"}
	}
	if hp.Device == "" {
		hp.Device = "cpu"
	}
	if hp.LearningRate <= 0 {
		hp.LearningRate = 0.1
	}
	if hp.Rounds <= 0 {
		hp.Rounds = 200
	}
	if hp.EarlyStoppingPatience <= 0 {
		hp.EarlyStoppingPatience = 10
	}
	if hp.TrainTestSplit <= 0 || hp.TrainTestSplit >= 1 {
		hp.TrainTestSplit = 0.2
	}
	return hp
}

// IterationMetrics is one round of training history.
type IterationMetrics struct {
	Round     int
	TrainLoss float64
	ValLoss   float64
}

// TrainResult is everything one training execution emits.
type TrainResult struct {
	Artifact  *Artifact
	History   []IterationMetrics
	BestRound int
	// Metrics is the final training metric set (train/validation suite).
	Metrics map[string]float64
}

// Train fits a binary classifier on the dataset. The model is a
// standardized logistic regression trained by full-batch gradient descent
// with L2 regularization and validation-loss early stopping. Same data,
// same hyperparameters and same seed reproduce the same result on the same
// hardware; bit-identity across hardware is not promised.
func Train(ds *Dataset, hp Hyperparameters) (*TrainResult, error) {
	hp = hp.withDefaults()

	if hp.Objective != "binary:logistic" {
		return nil, fmt.Errorf("unsupported objective %q", hp.Objective)
	}
	if len(ds.Features) == 0 || len(ds.FeatureNames) == 0 {
		return nil, fmt.Errorf("training data is empty")
	}

	train, val := ds.Split(hp.TrainTestSplit, hp.RandomState)
	if len(val.Features) == 0 {
		val = train
	}

	means, stds := moments(train)
	xTrain := standardizeAll(train, means, stds)
	xVal := standardizeAll(val, means, stds)

	n := len(ds.FeatureNames)
	w := make([]float64, n)
	best := make([]float64, n)
	var bias, bestBias float64

	bestLoss := math.Inf(1)
	bestRound := 0
	patience := 0
	history := make([]IterationMetrics, 0, hp.Rounds)

	for round := 0; round < hp.Rounds; round++ {
		gradW, gradB := gradients(xTrain, train.Labels, w, bias, hp.Lambda)
		for j := range w {
			w[j] -= hp.LearningRate * gradW[j]
		}
		bias -= hp.LearningRate * gradB

		trainLoss := loss(xTrain, train.Labels, w, bias)
		valLoss := loss(xVal, val.Labels, w, bias)
		history = append(history, IterationMetrics{Round: round, TrainLoss: trainLoss, ValLoss: valLoss})

		if math.IsNaN(trainLoss) || math.IsInf(trainLoss, 0) {
			return nil, fmt.Errorf("training diverged at round %d", round)
		}

		if valLoss < bestLoss-1e-9 {
			bestLoss = valLoss
			bestRound = round
			copy(best, w)
			bestBias = bias
			patience = 0
		} else {
			patience++
			if patience >= hp.EarlyStoppingPatience {
				break
			}
		}
	}

	artifact := &Artifact{
		FeatureNames: append([]string{}, ds.FeatureNames...),
		TargetColumn: ds.TargetColumn,
		Weights:      best,
		Bias:         bestBias,
		Means:        means,
		Stds:         stds,
		Encoders:     ds.Encoders,
		Config:       hp,
		TrainedAt:    time.Now().UTC(),
	}

	metrics, err := finalMetrics(artifact, train, val)
	if err != nil {
		return nil, err
	}

	return &TrainResult{
		Artifact:  artifact,
		History:   history,
		BestRound: bestRound,
		Metrics:   metrics,
	}, nil
}

// TopWeights returns the k features with the largest absolute weight,
// mirroring the feature-importance summary logged after training.
func (r *TrainResult) TopWeights(k int) map[string]float64 {
	type fw struct {
		name string
		abs  float64
	}
	all := make([]fw, len(r.Artifact.FeatureNames))
	for j, name := range r.Artifact.FeatureNames {
		all[j] = fw{name, math.Abs(r.Artifact.Weights[j])}
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].abs > all[i].abs {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if k > len(all) {
		k = len(all)
	}
	out := make(map[string]float64, k)
	for _, f := range all[:k] {
		out[f.name] = f.abs
	}
	return out
}

func moments(ds *Dataset) (means, stds []float64) {
	n := len(ds.FeatureNames)
	means = make([]float64, n)
	stds = make([]float64, n)
	rows := float64(len(ds.Features))
	for _, row := range ds.Features {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= rows
	}
	for _, row := range ds.Features {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / rows)
	}
	return means, stds
}

func standardizeAll(ds *Dataset, means, stds []float64) [][]float64 {
	out := make([][]float64, len(ds.Features))
	for i, row := range ds.Features {
		x := make([]float64, len(row))
		for j, v := range row {
			std := stds[j]
			if std == 0 {
				std = 1
			}
			x[j] = (v - means[j]) / std
		}
		out[i] = x
	}
	return out
}

func gradients(x [][]float64, y, w []float64, bias, lambda float64) ([]float64, float64) {
	n := len(w)
	gradW := make([]float64, n)
	var gradB float64
	rows := float64(len(x))
	for i, row := range x {
		z := bias
		for j, v := range row {
			z += w[j] * v
		}
		e := sigmoid(z) - y[i]
		for j, v := range row {
			gradW[j] += e * v
		}
		gradB += e
	}
	for j := range gradW {
		gradW[j] = gradW[j]/rows + lambda*w[j]
	}
	return gradW, gradB / rows
}

func loss(x [][]float64, y, w []float64, bias float64) float64 {
	probs := make([]float64, len(x))
	for i, row := range x {
		z := bias
		for j, v := range row {
			z += w[j] * v
		}
		probs[i] = sigmoid(z)
	}
	return logLoss(y, probs)
}

func finalMetrics(a *Artifact, train, val *Dataset) (map[string]float64, error) {
	out := map[string]float64{}
	trainProbs, err := a.Predict(train)
	if err != nil {
		return nil, err
	}
	valProbs, err := a.Predict(val)
	if err != nil {
		return nil, err
	}
	trainAcc, err := ComputeMetric("accuracy", train.Labels, trainProbs)
	if err != nil {
		return nil, err
	}
	valAcc, err := ComputeMetric("accuracy", val.Labels, valProbs)
	if err != nil {
		return nil, err
	}
	out["train_accuracy"] = trainAcc
	out["test_accuracy"] = valAcc
	out["train_log_loss"] = logLoss(train.Labels, trainProbs)
	out["test_log_loss"] = logLoss(val.Labels, valProbs)
	return out, nil
}
