package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/core/services"
)

func newEvalCmd() *cobra.Command {
	var (
		runID              string
		dataPath           string
		predictionsPath    string
		validateThresholds bool
		baselineVersion    int
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a trained run against the gate policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(runID)
			if err != nil {
				return fmt.Errorf("%w: --run-id must be a valid run id", domain.ErrConfigInvalid)
			}

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			params := services.EvaluateParams{
				RunID:        id,
				EvalDataPath: dataPath,
				Policy:       a.cfg.GatePolicy(),
				Attribution:  a.cfg.Evaluation.Attribution,
			}
			if cmd.Flags().Changed("compare-baseline") {
				params.Baseline = &services.BaselineRef{
					ModelName: a.cfg.Model.Name,
					Version:   baselineVersion,
				}
			}

			decision, err := a.evaluation.Evaluate(cmd.Context(), params)
			if err != nil {
				return err
			}

			printDecision(cmd, decision)

			if predictionsPath != "" {
				if err := a.evaluation.WritePredictions(cmd.Context(), id, dataPath, predictionsPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "predictions written to %s\n", predictionsPath)
			}

			if validateThresholds && !decision.Passed {
				return fmt.Errorf("%w: %s", domain.ErrGateNotPassed, strings.Join(decision.Reasons, "; "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run to evaluate (required)")
	cmd.Flags().StringVar(&dataPath, "eval-data-path", "data/eval_data.csv", "CSV file with evaluation data")
	cmd.Flags().StringVar(&predictionsPath, "output-path-prediction", "", "optional CSV file for per-row predictions")
	cmd.Flags().BoolVar(&validateThresholds, "validate-thresholds", false, "exit non-zero when the gate decision fails")
	cmd.Flags().IntVar(&baselineVersion, "compare-baseline", 0, "registered version to compare the primary metric against")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

func printDecision(cmd *cobra.Command, d *domain.GateDecision) {
	out := cmd.OutOrStdout()
	status := "PASSED"
	if !d.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(out, "gate decision %s: %s\n", d.ID, status)
	for _, r := range d.Reasons {
		fmt.Fprintf(out, "  - %s\n", r)
	}
	if d.Baseline != nil {
		fmt.Fprintf(out, "baseline %s: candidate %.4f vs baseline %.4f\n",
			d.Baseline.Metric, d.Baseline.Candidate, d.Baseline.Baseline)
	}
}
