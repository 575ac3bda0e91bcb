package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/pkg/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the workspace to MCP clients",
	Long: `Expose the workspace as Model Context Protocol tools (tree_list,
file_read, file_write, node_move, search, ...).

The default transport is stdio, for clients that launch atelier themselves.
Use --transport sse or --transport http to listen on --addr instead.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "stdio, sse or http")
	mcpCmd.Flags().String("addr", "127.0.0.1:7777", "listen address for sse and http")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	addr, _ := cmd.Flags().GetString("addr")

	l, _, err := openLocal()
	if err != nil {
		return err
	}
	defer l.Close()
	srv := mcptools.NewServer(l.Workspace(), version)

	switch transport {
	case "stdio":
		// stdout carries the protocol.
		return server.ServeStdio(srv)
	case "sse":
		fmt.Fprintf(os.Stderr, "MCP SSE server listening on http://%s\n", addr)
		return server.NewSSEServer(srv).Start(addr)
	case "http":
		fmt.Fprintf(os.Stderr, "MCP HTTP server listening on http://%s/mcp\n", addr)
		return server.NewStreamableHTTPServer(srv).Start(addr)
	default:
		return fmt.Errorf("unknown transport %q (want stdio, sse or http)", transport)
	}
}
