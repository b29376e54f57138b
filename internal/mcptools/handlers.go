package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
	"github.com/wemcdonald/sqlsafety/pkg/sandbox"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AnalyzeHandler creates a handler for the analyze_sql tool
func AnalyzeHandler(composer *report.Composer) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing sql parameter: %v", err)), nil
		}
		args := arguments(request)

		opts := report.DefaultOptions()
		opts.IncludeRollback = boolArg(args, "include_rollback", true)
		opts.IncludeDryRun = boolArg(args, "include_dry_run", true)
		if opts.SampleData, err = sampleData(args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rep, err := composer.Compose(ctx, query, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
		}

		if format, _ := args["format"].(string); format == "text" {
			return mcp.NewToolResultText(report.Render(rep)), nil
		}
		return jsonResult(rep)
	}
}

// RiskHandler creates a handler for the assess_sql_risk tool
func RiskHandler() toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing sql parameter: %v", err)), nil
		}
		impact, err := sqlparser.NewSQLParser().Parse(query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
		}
		return jsonResult(struct {
			Type   sqlparser.StatementType `json:"statement_type"`
			Impact report.ImpactSummary    `json:"impact"`
			risk.Assessment
		}{impact.Type, report.Summarize(impact), risk.Assess(impact)})
	}
}

// DryRunHandler creates a handler for the dry_run_sql tool
func DryRunHandler(simulator *dryrun.Simulator) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Missing sql parameter: %v", err)), nil
		}
		seed, err := sampleData(arguments(request))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		impact, err := sqlparser.NewSQLParser().Parse(query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Simulation failed: %v", err)), nil
		}
		return jsonResult(simulator.Simulate(ctx, impact, seed))
	}
}

func arguments(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return map[string]any{}
}

func boolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// sampleData accepts the seed rows as an object or as a JSON string.
func sampleData(args map[string]any) (sandbox.SampleData, error) {
	raw, ok := args["sample_data"]
	if !ok || raw == nil {
		return nil, nil
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("invalid sample_data: %w", err)
		}
	}

	var seed sandbox.SampleData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid sample_data: %w", err)
	}
	return seed, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
