package main

import (
	"fmt"

	"github.com/aretw0/staffgate"
	"github.com/aretw0/staffgate/internal/validator"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the conversation graphs for consistency",
		Long: `Crawls the transition table from the idle state and reports edges into
undeclared states or states nothing reaches. The message catalog given by
--messages is loaded too, so a broken catalog fails here.`,
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
			app, err := staffgate.New(cmd.Context(), cfg, memory.NewMessenger(),
				staffgate.WithLogger(logger),
				staffgate.WithStore(memory.NewStore()),
				staffgate.WithDirectory(memory.NewDirectory()),
				staffgate.WithDocuments(memory.NewLister()),
			)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := validator.ValidateEdges(app.Engine.Edges()); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Graphs are valid!")
			return err
		},
	}
}
