package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VCGI/VT-DataRail-Tools/internal/toolbox"
)

const defaultManifest = "datarail.tbx.yaml"

func toolboxCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "toolbox",
		Short: "List, validate and run the toolbox's tools",
	}
	cmd.PersistentFlags().StringVar(&manifestPath, "manifest", defaultManifest, "toolbox manifest")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the toolbox's tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := toolbox.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", m.Name, m.Alias)
			for _, t := range m.Tools {
				fmt.Fprintf(out, "  %-16s %s\n", t.ID, t.Label)
				if t.Descriptor != nil {
					if desc := strings.TrimSpace(t.Descriptor.Description); desc != "" {
						fmt.Fprintf(out, "  %-16s %s\n", "", desc)
					}
					for _, p := range t.Descriptor.Parameters {
						req := ""
						if p.Required {
							req = " (required)"
						}
						fmt.Fprintf(out, "    %s=<%s>%s  %s\n", p.Name, p.Type, req, p.Description)
					}
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the manifest against the script folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := toolbox.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tools OK\n", manifestPath, len(m.Tools))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <tool-id> [name=value ...]",
		Short: "Run a tool by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := toolbox.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			params, err := toolbox.ParseParams(args[1:])
			if err != nil {
				return err
			}
			return tools().Dispatch(cmd.Context(), m, args[0], params)
		},
	})
	return cmd
}

// tools binds the toolbox's tool IDs to the CLI's implementations.
func tools() *toolbox.Registry {
	reg := toolbox.NewRegistry()
	reg.Register("SendFreight", func(ctx context.Context, params map[string]string) error {
		_, err := sendFreight(ctx, params["config"])
		return err
	})
	reg.Register("InspectMetadata", func(ctx context.Context, params map[string]string) error {
		return inspectMetadata(ctx, inspectOptions{
			items:     params["items"],
			report:    params["report"],
			workspace: params["workspace"],
			iso:       params["iso"],
			fgdc:      params["fgdc"],
		})
	})
	return reg
}
