package main

import (
	"fmt"

	"github.com/aretw0/staffgate"
	httpadapter "github.com/aretw0/staffgate/internal/adapters/http"
	"github.com/aretw0/staffgate/internal/cli"
	"github.com/aretw0/staffgate/pkg/adapters/telegram"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot behind the HTTP server",
		Long: `Starts the HTTP server: the Telegram webhook, the JSON event API, the
read-only staff and conversation endpoints and /metrics.

The webhook requires STAFFGATE_WEBHOOK_SECRET. The /v1 routes require
STAFFGATE_API_TOKEN as a bearer token, or --no-api to leave them off.
With --webhook-url the Telegram webhook is registered on startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if noAPI, _ := cmd.Flags().GetBool("no-api"); noAPI {
				cfg.APIDisabled = true
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			bot, err := telegram.New(cfg.TelegramToken,
				telegram.WithBaseURL(cfg.TelegramAPIBase),
				telegram.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			app, err := staffgate.New(ctx, cfg, bot, staffgate.WithLogger(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			opts := []httpadapter.Option{
				httpadapter.WithCallbackAnswerer(bot),
				httpadapter.WithWebhookSecret(cfg.WebhookSecret),
				httpadapter.WithMetrics(app.Metrics.Handler()),
				httpadapter.WithLogger(logger),
			}
			if !cfg.APIDisabled {
				opts = append(opts,
					httpadapter.WithAPIToken(cfg.APIToken),
					httpadapter.WithStaff(app.Engine),
					httpadapter.WithConversations(app.Store),
				)
			}
			handler, err := httpadapter.NewHandler(app.Engine, opts...)
			if err != nil {
				return err
			}

			if url, _ := cmd.Flags().GetString("webhook-url"); url != "" {
				if err := bot.SetWebhook(ctx, url, cfg.WebhookSecret); err != nil {
					return fmt.Errorf("register webhook: %w", err)
				}
				logger.Info("webhook registered", "url", url)
			}

			err = httpadapter.Run(ctx, cfg.HTTPAddr, handler, logger)
			if sig := ctx.Signal(); sig != nil {
				logger.Info("shutdown", "signal", sig)
			}
			return err
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address (STAFFGATE_HTTP_ADDR)")
	cmd.Flags().Bool("no-api", false, "Do not mount the /v1 routes (STAFFGATE_API_DISABLED)")
	cmd.Flags().String("webhook-url", "", "Public URL of /telegram/webhook to register with Telegram")
	return cmd
}
