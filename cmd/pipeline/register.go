package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"model-pipeline/internal/core/domain"
)

func newRegisterCmd() *cobra.Command {
	var (
		runID       string
		modelName   string
		description string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a finished run as a model version",
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

			name := modelName
			if name == "" {
				name = a.cfg.Model.Name
			}

			v, err := a.registry.Register(cmd.Context(), id, name, description, force)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "registered %s version %d\n", v.ModelName, v.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run to register (required)")
	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().StringVar(&description, "description", "", "version description")
	cmd.Flags().BoolVar(&force, "force", false, "register a new version even when the run is already registered")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
