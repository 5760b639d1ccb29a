package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Insights InsightService
	Version  string
}

// NewMCPServer creates an MCP server exposing the insight tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"huddle",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("huddle synthesizes daily standups into team and personal insights."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("team_insight",
			mcp.WithDescription("Summarize a team's standups for one day: blockers, suggested syncs and risks."),
			mcp.WithString("team_id", mcp.Description("Team identifier"), mcp.Required()),
			mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (default today)")),
			mcp.WithString("provider", mcp.Description("Model provider: groq, gemini or ollama")),
			mcp.WithBoolean("refresh", mcp.Description("Recompute instead of serving the cached result")),
		),
		mcpTeamInsight(deps),
	)

	s.AddTool(
		mcp.NewTool("personal_insight",
			mcp.WithDescription("Coach one standup entry: key tasks, clarity feedback, tone and suggestions."),
			mcp.WithString("standup_id", mcp.Description("Standup identifier"), mcp.Required()),
			mcp.WithString("provider", mcp.Description("Model provider: groq, gemini or ollama")),
			mcp.WithBoolean("refresh", mcp.Description("Recompute instead of serving the cached result")),
		),
		mcpPersonalInsight(deps),
	)

	s.AddTool(
		mcp.NewTool("standup_streak",
			mcp.WithDescription("Count consecutive days, ending today, a user posted a standup."),
			mcp.WithString("team_id", mcp.Description("Team identifier"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("User identifier"), mcp.Required()),
		),
		mcpStreak(deps),
	)

	s.AddTool(
		mcp.NewTool("team_trends",
			mcp.WithDescription("Per-day standup counts and recurring blocker keywords for a date range."),
			mcp.WithString("team_id", mcp.Description("Team identifier"), mcp.Required()),
			mcp.WithString("from", mcp.Description("First day, YYYY-MM-DD"), mcp.Required()),
			mcp.WithString("to", mcp.Description("Last day, YYYY-MM-DD"), mcp.Required()),
		),
		mcpTrends(deps),
	)

	return s
}

func mcpTeamInsight(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		teamID, err := req.RequireString("team_id")
		if err != nil {
			return mcpError("team_id is required"), nil
		}
		insight, err := deps.Insights.TeamInsight(ctx, teamID, req.GetString("date", ""), req.GetString("provider", ""), req.GetBool("refresh", false))
		if err != nil {
			return mcpError(fmt.Sprintf("team insight failed: %v", err)), nil
		}
		return mcpJSON(insight)
	}
}

func mcpPersonalInsight(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("standup_id")
		if err != nil {
			return mcpError("standup_id is required"), nil
		}
		insight, err := deps.Insights.PersonalInsight(ctx, id, req.GetString("provider", ""), req.GetBool("refresh", false))
		if err != nil {
			return mcpError(fmt.Sprintf("personal insight failed: %v", err)), nil
		}
		return mcpJSON(insight)
	}
}

func mcpStreak(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		teamID, err := req.RequireString("team_id")
		if err != nil {
			return mcpError("team_id is required"), nil
		}
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		n, err := deps.Insights.Streak(teamID, userID)
		if err != nil {
			return mcpError(fmt.Sprintf("streak failed: %v", err)), nil
		}
		return mcpJSON(map[string]int{"streak": n})
	}
}

func mcpTrends(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		teamID, err := req.RequireString("team_id")
		if err != nil {
			return mcpError("team_id is required"), nil
		}
		from, err := req.RequireString("from")
		if err != nil {
			return mcpError("from is required"), nil
		}
		to, err := req.RequireString("to")
		if err != nil {
			return mcpError("to is required"), nil
		}
		t, err := deps.Insights.Trends(ctx, teamID, from, to)
		if err != nil {
			return mcpError(fmt.Sprintf("trends failed: %v", err)), nil
		}
		return mcpJSON(t)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
