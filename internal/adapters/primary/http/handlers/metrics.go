package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "model_pipeline",
	Name:      "predictions_total",
	Help:      "Predictions served, labeled by model and alias.",
}, []string{"model", "alias"})
