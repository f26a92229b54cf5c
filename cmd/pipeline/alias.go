package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"model-pipeline/internal/core/domain"
)

func newSetAliasCmd() *cobra.Command {
	var (
		modelName string
		version   int
		alias     string
	)

	cmd := &cobra.Command{
		Use:   "set-alias",
		Short: "Assign an alias to a version",
		Long: "Assign an alias to a version. A first assignment binds directly; " +
			"reassigning a bound alias goes through the promotion gate.",
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

			binding, err := a.promotion.SetAlias(cmd.Context(), name, version, alias, a.cfg.GatePolicy())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s -> version %d\n",
				binding.ModelName, binding.Alias, binding.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().IntVar(&version, "version", 0, "version to bind (required)")
	cmd.Flags().StringVar(&alias, "alias", domain.AliasStaging, "alias to assign")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newDeleteAliasCmd() *cobra.Command {
	var (
		modelName string
		alias     string
	)

	cmd := &cobra.Command{
		Use:   "delete-alias",
		Short: "Unbind an alias",
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

			if err := a.promotion.RemoveAlias(cmd.Context(), name, alias); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s removed\n", name, alias)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().StringVar(&alias, "alias", "", "alias to remove (required)")
	_ = cmd.MarkFlagRequired("alias")
	return cmd
}
