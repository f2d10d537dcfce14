package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP API on the configured port and shuts down
gracefully on SIGINT or SIGTERM.

Examples:
  scry serve
  SCRY_SERVER_PORT=9000 scry serve --config prod.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server on stdio",
	Long: `MCP serves the study tools (srs_due_cards, srs_submit_review,
srs_stats, srs_heatmap) over the Model Context Protocol on stdin/stdout.
Logs go to stderr so they never interfere with the transport.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, _, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := server.ServeStdio(a.MCPServer()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
