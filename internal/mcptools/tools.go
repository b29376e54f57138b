// Package mcptools exposes safety analysis as Model Context Protocol tools.
package mcptools

import (
	goMCP "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/report"
)

// ServerName and ServerVersion identify the MCP server
const (
	ServerName    = "sqlsafety"
	ServerVersion = "0.1.0"
)

// NewServer creates an MCP server with every tool registered
func NewServer(composer *report.Composer, simulator *dryrun.Simulator) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	RegisterTools(s, composer, simulator)
	return s
}

// RegisterTools adds the analysis tools to s
func RegisterTools(s *server.MCPServer, composer *report.Composer, simulator *dryrun.Simulator) {
	analyzeTool := goMCP.NewTool("analyze_sql",
		goMCP.WithDescription("Build a safety report for a SQL statement: impact, risk level, warnings, dry-run and rollback script"),
		goMCP.WithString("sql",
			goMCP.Required(),
			goMCP.Description("The SQL statement to analyze"),
		),
		goMCP.WithBoolean("include_rollback",
			goMCP.Description("Generate a rollback script (default: true)"),
		),
		goMCP.WithBoolean("include_dry_run",
			goMCP.Description("Simulate the statement in a throwaway database (default: true)"),
		),
		goMCP.WithObject("sample_data",
			goMCP.Description("Rows to seed the simulation with, keyed by table name"),
		),
		goMCP.WithString("format",
			goMCP.Description("Output format: json (default) or text"),
		),
	)

	riskTool := goMCP.NewTool("assess_sql_risk",
		goMCP.WithDescription("Classify a SQL statement as Low, Medium or High risk without executing anything"),
		goMCP.WithString("sql",
			goMCP.Required(),
			goMCP.Description("The SQL statement to assess"),
		),
	)

	dryRunTool := goMCP.NewTool("dry_run_sql",
		goMCP.WithDescription("Simulate a SQL statement against an in-memory database seeded with sample rows"),
		goMCP.WithString("sql",
			goMCP.Required(),
			goMCP.Description("The SQL statement to simulate"),
		),
		goMCP.WithObject("sample_data",
			goMCP.Description("Rows to seed the simulation with, keyed by table name"),
		),
	)

	s.AddTool(analyzeTool, AnalyzeHandler(composer))
	s.AddTool(riskTool, RiskHandler())
	s.AddTool(dryRunTool, DryRunHandler(simulator))
}
