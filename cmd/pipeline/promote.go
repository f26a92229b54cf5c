package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/core/services"
)

func newPromoteCmd() *cobra.Command {
	var (
		modelName       string
		version         int
		alias           string
		override        bool
		overrideReason  string
		expectedVersion int
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Rebind an alias to a version that passed the gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name := modelName
			if name == "" {
				name = a.cfg.Model.Name
			}

			opts := services.PromoteOptions{
				Override:       override,
				OverrideReason: overrideReason,
				Policy:         a.cfg.GatePolicy(),
			}
			if cmd.Flags().Changed("expected-version") {
				opts.ExpectedVersion = &expectedVersion
			}

			binding, err := a.promotion.Promote(cmd.Context(), name, version, alias, opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s -> version %d\n",
				binding.ModelName, binding.Alias, binding.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().IntVar(&version, "version", 0, "version to promote (required)")
	cmd.Flags().StringVar(&alias, "alias", domain.AliasChampion, "alias to rebind")
	cmd.Flags().BoolVar(&override, "override", false, "skip the gate check")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "recorded reason for the override")
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "fail unless the alias currently points at this version")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
