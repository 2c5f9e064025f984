package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"promptloom/internal/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(context.Background())

	pipeline, err := p.pipeline()
	if err != nil {
		return err
	}

	defaults := mcp.Defaults{
		Book:             p.defaultBook(),
		Profile:          p.cfg.Profile,
		HistoryLimit:     p.cfg.History.Limit,
		HistoryWindow:    p.cfg.History.Window,
		ScorerConfigured: p.cfg.Vector.Enabled(),
	}
	// Without a readable preset file, tools need an explicit preset argument.
	if name, err := p.defaultPreset(); err == nil {
		defaults.Preset = name
	}

	server := mcp.NewServer(p.db, pipeline, defaults, version, p.logger.Named("mcp"))
	return server.Run(ctx, &sdk.StdioTransport{})
}
