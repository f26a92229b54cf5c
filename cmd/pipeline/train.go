package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"model-pipeline/internal/core/services"
)

func newTrainCmd() *cobra.Command {
	var (
		dataPath string
		runName  string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model and record the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.training.Train(cmd.Context(), services.TrainParams{
				DataPath:        dataPath,
				RunName:         runName,
				ModelName:       a.cfg.Model.Name,
				Features:        a.cfg.Features.TrainingFeatures,
				TargetColumn:    a.cfg.Features.TargetColumn,
				Hyperparameters: a.cfg.Model.Hyperparameters,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s finished\n", run.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "artifact %s\n", run.ArtifactURI)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "training-data-path", "data/training_data.csv", "CSV file with training data")
	cmd.Flags().StringVar(&runName, "run-name", "", "optional run name")
	return cmd
}
