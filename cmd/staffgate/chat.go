package main

import (
	"os"

	"github.com/aretw0/staffgate"
	"github.com/aretw0/staffgate/internal/cli"
	"github.com/aretw0/staffgate/internal/presentation/tui"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Play both sides of the procedure in the terminal",
		Long: `Runs the engine against an in-memory messenger and prints every message
the bot sends. Switch between the applicant and the superuser with
'as applicant' and 'as superuser'; type 'help' for the other commands.`,
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
			applicant, _ := cmd.Flags().GetInt64("applicant")

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			messenger := memory.NewMessenger()
			app, err := staffgate.New(ctx, cfg, messenger, staffgate.WithLogger(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			var opts []tui.ChatOption
			if f, ok := out.(*os.File); ok && tui.IsTerminal(f) {
				opts = append(opts,
					tui.WithProfile(termenv.NewOutput(f).Profile),
					tui.WithMarkdown(tui.NewRenderer(tui.Width(f, 80))),
				)
			}

			names := map[domain.Identity]string{
				domain.Identity(applicant): "applicant",
				cfg.Superuser():            "superuser",
			}
			tui.PrintBanner(out, staffgate.Version)
			sim := cli.NewSimulator(app.Engine, messenger, out, names, opts...)
			sim.As(domain.Identity(applicant))
			return sim.Run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().Int64("applicant", 42, "Identity the applicant side speaks as")
	return cmd
}
