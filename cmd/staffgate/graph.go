package main

import (
	"fmt"

	"github.com/aretw0/staffgate"
	"github.com/aretw0/staffgate/internal/presentation/graph"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the conversation graphs",
		Long: `Outputs a Mermaid diagram (graph TD) of the applicant and reviewer graphs.
With --identity the state of that identity's conversation is highlighted,
read from the configured store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			raw, _ := cmd.Flags().GetString("identity")
			opts := []staffgate.Option{staffgate.WithLogger(logger)}
			if raw == "" {
				// Nothing is read, so keep the run off the disk.
				opts = append(opts,
					staffgate.WithStore(memory.NewStore()),
					staffgate.WithDirectory(memory.NewDirectory()),
					staffgate.WithDocuments(memory.NewLister()),
				)
			}
			app, err := staffgate.New(cmd.Context(), cfg, memory.NewMessenger(), opts...)
			if err != nil {
				return err
			}
			defer app.Close()

			var overlay *graph.Overlay
			if raw != "" {
				id, err := domain.ParseIdentity(raw)
				if err != nil {
					return err
				}
				state, err := app.Sessions.GetState(cmd.Context(), id)
				if err != nil {
					return err
				}
				overlay = &graph.Overlay{CurrentState: state}
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Engine.Edges(), overlay))
			return err
		},
	}
	cmd.Flags().String("identity", "", "Highlight the current state of this identity")
	return cmd
}
