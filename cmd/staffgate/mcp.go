package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/staffgate"
	"github.com/aretw0/staffgate/internal/adapters/mcp"
	"github.com/aretw0/staffgate/internal/cli"
	"github.com/aretw0/staffgate/pkg/adapters/memory"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes read-only administration tools over MCP: list_staff,
list_unreserved_files and inspect_conversation.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents.`,
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
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()

			// The tools never send messages.
			app, err := staffgate.New(ctx, cfg, memory.NewMessenger(), staffgate.WithLogger(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			srv := mcp.NewServer(app.Engine, app.Store, staffgate.Version, mcp.WithLogger(logger))
			switch transport {
			case "stdio":
				logger.Info("starting mcp server (stdio)")
				return srv.ServeStdio()
			case "sse":
				err := srv.ServeSSE(ctx, port)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				logger.Info("mcp server stopped")
				return nil
			default:
				return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
			}
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
	return cmd
}
