package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/metadata"
)

type inspectOptions struct {
	items     string
	report    string
	workspace string
	iso       string
	fgdc      string
}

func inspectMetadataCmd() *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect-metadata",
		Short: "Check items' metadata against the VT GIS Metadata Standard and append a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectMetadata(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.items, "items", "", "semicolon-delimited items")
	cmd.Flags().StringVar(&opts.report, "report", "", "report file (appended)")
	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "geodatabase holding the items (fgdb:<dir>, <dir> or a postgres URL)")
	cmd.Flags().StringVar(&opts.iso, "iso", "", "ISO 19139 export for a single item")
	cmd.Flags().StringVar(&opts.fgdc, "fgdc", "", "FGDC-CSDGM export for a single item")
	_ = cmd.MarkFlagRequired("items")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}

func inspectMetadata(ctx context.Context, opts inspectOptions) error {
	items := metadata.SplitItems(opts.items)
	if len(items) == 0 {
		return errors.New("no items to inspect")
	}

	var src metadata.Source
	switch {
	case opts.workspace != "":
		ws, err := gdb.Open(ctx, workspaceConfig(opts.workspace))
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		defer ws.Close()
		src = metadata.WorkspaceSource{Workspace: ws}
	case opts.iso != "" || opts.fgdc != "":
		if opts.iso == "" || opts.fgdc == "" {
			return errors.New("--iso and --fgdc must be given together")
		}
		if len(items) != 1 {
			return errors.New("--iso/--fgdc inspect exactly one item")
		}
		src = metadata.PairSource{ISO: opts.iso, FGDC: opts.fgdc}
	default:
		src = metadata.FileSource{}
	}

	rw, err := metadata.OpenReport(opts.report)
	if err != nil {
		return err
	}
	results, runErr := metadata.Run(ctx, src, items, rw, time.Now(), logger)
	if err := rw.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	logger.Info().Int("items", len(results)).Str("report", opts.report).Msg("metadata inspection finished")
	return nil
}

// workspaceConfig reads a workspace flag: a postgres URL, "kind:path", or a bare
// file geodatabase directory.
func workspaceConfig(s string) gdb.Config {
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") {
		return gdb.Config{Kind: "postgres", URL: s}
	}
	if kind, rest, ok := strings.Cut(s, ":"); ok {
		if _, known := gdb.DefaultRegistry().Get(kind); known {
			if strings.EqualFold(kind, "postgres") {
				return gdb.Config{Kind: kind, URL: rest}
			}
			return gdb.Config{Kind: kind, Path: rest}
		}
	}
	return gdb.Config{Kind: "fgdb", Path: s}
}
