package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"model-pipeline/internal/core/domain"
)

func newListCmd() *cobra.Command {
	var modelName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered models, or the versions of one model",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if modelName == "" {
				names, err := a.registry.ListModels(cmd.Context())
				if err != nil {
					return err
				}
				infos := make([]*domain.ModelInfo, 0, len(names))
				for _, n := range names {
					info, err := a.registry.ModelInfo(cmd.Context(), n)
					if err != nil {
						return err
					}
					infos = append(infos, info)
				}
				return writeModelSummary(cmd.OutOrStdout(), infos)
			}

			versions, err := a.registry.ListVersions(cmd.Context(), modelName)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tRUN\tCREATED\tDESCRIPTION")
			for _, v := range versions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					v.Version, v.RunID, v.CreatedAt.Format("2006-01-02 15:04:05"), v.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "list versions of this model instead of model names")
	return cmd
}

// writeModelSummary prints one row per model with its version numbers and
// alias bindings, e.g. "churn  v1, v2, v3  @production->3, @staging->2".
func writeModelSummary(out io.Writer, infos []*domain.ModelInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tVERSIONS\tALIASES")
	for _, info := range infos {
		versions := make([]string, 0, len(info.Versions))
		for _, v := range info.Versions {
			versions = append(versions, "v"+strconv.Itoa(v.Version))
		}
		aliases := make([]string, 0, len(info.Aliases))
		for _, al := range info.Aliases {
			aliases = append(aliases, fmt.Sprintf("@%s->%d", al.Alias, al.Version))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			info.Name, strings.Join(versions, ", "), strings.Join(aliases, ", "))
	}
	return w.Flush()
}

func newInfoCmd() *cobra.Command {
	var (
		modelName string
		version   int
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show a model's versions and aliases, or one version",
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
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("version") {
				v, err := a.registry.GetVersionInfo(cmd.Context(), name, version)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s version %d\n", v.ModelName, v.Version)
				fmt.Fprintf(out, "  run:      %s\n", v.RunID)
				fmt.Fprintf(out, "  artifact: %s\n", v.ArtifactURI)
				fmt.Fprintf(out, "  created:  %s\n", v.CreatedAt.Format("2006-01-02 15:04:05"))
				if v.Description != "" {
					fmt.Fprintf(out, "  note:     %s\n", v.Description)
				}
				return nil
			}

			info, err := a.registry.ModelInfo(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d version(s)\n", info.Name, len(info.Versions))
			for _, al := range info.Aliases {
				fmt.Fprintf(out, "  @%s -> version %d (%s)\n", al.Alias, al.Version, al.AuditReason)
			}
			for _, v := range info.Versions {
				fmt.Fprintf(out, "  version %d  run %s\n", v.Version, v.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().IntVar(&version, "version", 0, "show one version only")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var (
		modelName   string
		version     int
		description string
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Update a version's description",
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

			if err := a.registry.UpdateDescription(cmd.Context(), name, version, description); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s version %d updated\n", name, version)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().IntVar(&version, "version", 0, "version to update (required)")
	cmd.Flags().StringVar(&description, "description", "", "new description (required)")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newDeleteVersionCmd() *cobra.Command {
	var (
		modelName string
		version   int
	)

	cmd := &cobra.Command{
		Use:   "delete-version",
		Short: "Delete an unaliased model version",
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

			if err := a.registry.DeleteVersion(cmd.Context(), name, version); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s version %d\n", name, version)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model-name", "", "registered model name (default from config)")
	cmd.Flags().IntVar(&version, "version", 0, "version to delete (required)")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
