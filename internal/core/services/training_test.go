package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/model"
	"model-pipeline/internal/testutil"
)

func writeTrainingData(t *testing.T, rows int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("x,y\n")
	for i := 0; i < rows; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d,1\n", i+1)
		} else {
			fmt.Fprintf(&sb, "%d,0\n", -(i + 1))
		}
	}
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestTrainingService_Train(t *testing.T) {
	tracker := new(testutil.MockTracker)
	store := testutil.NewFakeArtifactStore()
	svc := NewTrainingService(tracker, store)

	started := &domain.Run{ID: uuid.New(), Status: domain.RunStatusRunning}
	tracker.On("StartRun", mock.Anything, "candidate-1", mock.Anything).Return(started, nil)
	tracker.On("LogParams", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("LogMetric", mock.Anything, started.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tracker.On("LogMetrics", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("SetArtifact", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("EndRun", mock.Anything, started.ID, domain.RunStatusFinished).Return(nil)

	run, err := svc.Train(context.Background(), TrainParams{
		DataPath:        writeTrainingData(t, 40),
		RunName:         "candidate-1",
		ModelName:       "churn-model",
		Features:        []string{"x"},
		TargetColumn:    "y",
		Hyperparameters: model.Hyperparameters{RandomState: 7, Rounds: 30},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusFinished, run.Status)
	assert.Equal(t, fmt.Sprintf("mem://runs/%s/model.json", run.ID), run.ArtifactURI)
	assert.Contains(t, run.Metrics, "test_accuracy")
	assert.Contains(t, run.Metrics, "feature_importance/x")

	// The stored artifact decodes back into a usable model.
	data, err := store.Get(context.Background(), run.ArtifactURI)
	require.NoError(t, err)
	artifact, err := model.DecodeArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, "churn-model", artifact.ModelName)
	assert.Equal(t, []string{"x"}, artifact.FeatureNames)
}

func TestTrainingService_Train_MissingDataMarksRunFailed(t *testing.T) {
	tracker := new(testutil.MockTracker)
	svc := NewTrainingService(tracker, testutil.NewFakeArtifactStore())

	started := &domain.Run{ID: uuid.New(), Status: domain.RunStatusRunning}
	tracker.On("StartRun", mock.Anything, mock.Anything, mock.Anything).Return(started, nil)
	tracker.On("LogParams", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("EndRun", mock.Anything, started.ID, domain.RunStatusFailed).Return(nil)

	_, err := svc.Train(context.Background(), TrainParams{
		DataPath:     filepath.Join(t.TempDir(), "missing.csv"),
		ModelName:    "churn-model",
		Features:     []string{"x"},
		TargetColumn: "y",
	})
	require.Error(t, err)
	tracker.AssertCalled(t, "EndRun", mock.Anything, started.ID, domain.RunStatusFailed)
}

func TestTrainingService_Train_Validation(t *testing.T) {
	svc := NewTrainingService(new(testutil.MockTracker), testutil.NewFakeArtifactStore())

	_, err := svc.Train(context.Background(), TrainParams{DataPath: "data.csv"})
	assert.ErrorIs(t, err, domain.ErrInvalidModelName)

	_, err = svc.Train(context.Background(), TrainParams{ModelName: "churn-model"})
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestTrainingService_Train_TagsRun(t *testing.T) {
	tracker := new(testutil.MockTracker)
	store := testutil.NewFakeArtifactStore()
	svc := NewTrainingService(tracker, store)

	started := &domain.Run{ID: uuid.New(), Status: domain.RunStatusRunning}
	tracker.On("StartRun", mock.Anything, mock.Anything, mock.MatchedBy(func(tags map[string]string) bool {
		return tags["task"] == "model_training" && tags["model_name"] == "churn-model" && tags["team"] == "growth"
	})).Return(started, nil)
	tracker.On("LogParams", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("LogMetric", mock.Anything, started.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tracker.On("LogMetrics", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("SetArtifact", mock.Anything, started.ID, mock.Anything).Return(nil)
	tracker.On("EndRun", mock.Anything, started.ID, domain.RunStatusFinished).Return(nil)

	_, err := svc.Train(context.Background(), TrainParams{
		DataPath:        writeTrainingData(t, 20),
		ModelName:       "churn-model",
		Features:        []string{"x"},
		TargetColumn:    "y",
		Hyperparameters: model.Hyperparameters{RandomState: 1, Rounds: 20},
		Tags:            map[string]string{"team": "growth"},
	})
	require.NoError(t, err)
}
