package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/certwizard"
	"github.com/aretw0/certwizard/internal/cli"
	"github.com/aretw0/certwizard/pkg/adapters/mcp"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/observability"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes every wizard step as an MCP tool so an agent can drive the wizard.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		wizard, cleanup, err := cli.NewWizard(ctx, cfg, cli.WizardOptions{
			Hooks:  []domain.LifecycleHooks{observability.LogHooks(logger)},
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcp.NewServer(wizard, certwizard.Version, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("Starting certwizard MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting certwizard MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
