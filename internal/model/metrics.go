package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownMetric is returned when a configured threshold names a metric
// this evaluator cannot compute.
var ErrUnknownMetric = errors.New("unknown evaluation metric")

// KnownMetrics lists every metric the evaluator computes, in stable order.
func KnownMetrics() []string {
	return []string{"accuracy", "auc", "f1_score", "log_loss", "precision", "recall"}
}

// ComputeAll scores the full metric suite from true labels and predicted
// positive-class probabilities.
func ComputeAll(labels, probs []float64) (map[string]float64, error) {
	out := make(map[string]float64, 6)
	for _, name := range KnownMetrics() {
		v, err := ComputeMetric(name, labels, probs)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// ComputeMetric computes a single named metric. Binary predictions use the
// conventional 0.5 probability cutoff.
func ComputeMetric(name string, labels, probs []float64) (float64, error) {
	if len(labels) == 0 || len(labels) != len(probs) {
		return 0, fmt.Errorf("metric %s: labels and predictions must be non-empty and equal length", name)
	}
	switch name {
	case "accuracy":
		tp, tn, fp, fn := confusion(labels, probs)
		return float64(tp+tn) / float64(tp+tn+fp+fn), nil
	case "precision":
		tp, _, fp, _ := confusion(labels, probs)
		if tp+fp == 0 {
			return 0, nil
		}
		return float64(tp) / float64(tp+fp), nil
	case "recall":
		tp, _, _, fn := confusion(labels, probs)
		if tp+fn == 0 {
			return 0, nil
		}
		return float64(tp) / float64(tp+fn), nil
	case "f1_score":
		p, _ := ComputeMetric("precision", labels, probs)
		r, _ := ComputeMetric("recall", labels, probs)
		if p+r == 0 {
			return 0, nil
		}
		return 2 * p * r / (p + r), nil
	case "auc":
		return rocAUC(labels, probs)
	case "log_loss":
		return logLoss(labels, probs), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
}

func confusion(labels, probs []float64) (tp, tn, fp, fn int) {
	for i, y := range labels {
		pred := probs[i] >= 0.5
		switch {
		case pred && y == 1:
			tp++
		case pred && y == 0:
			fp++
		case !pred && y == 1:
			fn++
		default:
			tn++
		}
	}
	return
}

// rocAUC computes the area under the ROC curve by the rank-sum
// (Mann-Whitney) formulation with midrank tie handling.
func rocAUC(labels, probs []float64) (float64, error) {
	n := len(labels)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && probs[idx[j+1]] == probs[idx[i]] {
			j++
		}
		mid := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = mid
		}
		i = j + 1
	}

	var pos, rankSum float64
	for i, y := range labels {
		if y == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0, fmt.Errorf("auc: evaluation data contains a single class")
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg), nil
}

func logLoss(labels, probs []float64) float64 {
	const eps = 1e-15
	var sum float64
	for i, y := range labels {
		p := math.Min(math.Max(probs[i], eps), 1-eps)
		if y == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(labels))
}
