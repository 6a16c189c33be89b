package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/gdb/filegdb"
	"github.com/VCGI/VT-DataRail-Tools/internal/protocol"
)

func initGDBCmd() *cobra.Command {
	var kind, path, url, role, note string
	cmd := &cobra.Command{
		Use:   "init-gdb",
		Short: "Create a geodatabase's exchange-protocol tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := protocol.ParseRole(role)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var ws gdb.Workspace
			switch kind {
			case filegdb.Kind:
				if path == "" {
					return fmt.Errorf("--path is required for a file geodatabase")
				}
				ws, err = filegdb.Create(path)
			default:
				ws, err = gdb.Open(ctx, gdb.Config{Kind: kind, Path: path, URL: url})
			}
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := protocol.Provision(ctx, ws, r, note); err != nil {
				return err
			}
			logger.Info().Str("kind", ws.Kind()).Str("path", ws.Path()).Str("role", string(r)).Msg("geodatabase provisioned")
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", filegdb.Kind, "workspace kind (fgdb or postgres)")
	cmd.Flags().StringVar(&path, "path", "", "file geodatabase directory")
	cmd.Flags().StringVar(&url, "url", "", "postgres connection URL")
	cmd.Flags().StringVar(&role, "role", "", "protocol role (hub or spoke)")
	cmd.Flags().StringVar(&note, "note", "", "README note")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
