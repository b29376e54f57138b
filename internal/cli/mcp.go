package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/wemcdonald/sqlsafety/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		composer, err := newComposer()
		if err != nil {
			return err
		}
		logger.Info("starting MCP server", "name", mcptools.ServerName, "version", mcptools.ServerVersion)
		return server.ServeStdio(mcptools.NewServer(composer, newSimulator()))
	},
}
