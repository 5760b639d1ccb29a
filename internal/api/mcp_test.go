package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/huddle/internal/standup"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_TeamInsight(t *testing.T) {
	svc := &mockInsights{team: standup.TeamInsight{TeamSummary: "Two blockers", BlockerCounts: map[string]int{"flaky tests": 2}}}
	handler := mcpTeamInsight(MCPDeps{Insights: svc})

	result, err := handler(context.Background(), makeCallToolRequest("team_insight", map[string]any{
		"team_id": "core", "date": "2024-05-02", "refresh": true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var got standup.TeamInsight
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.TeamSummary != "Two blockers" || got.BlockerCounts["flaky tests"] != 2 {
		t.Errorf("insight = %+v", got)
	}
	if svc.gotTeam != "core" || svc.gotDate != "2024-05-02" || !svc.gotRefresh {
		t.Errorf("service called with %+v", svc)
	}
}

func TestMCPTool_TeamInsight_MissingTeam(t *testing.T) {
	handler := mcpTeamInsight(MCPDeps{Insights: &mockInsights{}})
	result, _ := handler(context.Background(), makeCallToolRequest("team_insight", map[string]any{}))
	if !result.IsError {
		t.Fatal("expected tool error")
	}
}

func TestMCPTool_PersonalInsight_Error(t *testing.T) {
	handler := mcpPersonalInsight(MCPDeps{Insights: &mockInsights{err: standup.ErrNotFound}})
	result, err := handler(context.Background(), makeCallToolRequest("personal_insight", map[string]any{"standup_id": "s1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(toolText(t, result), "standup not found") {
		t.Errorf("result = %+v", result)
	}
}

func TestMCPTool_StreakAndTrends(t *testing.T) {
	deps := MCPDeps{Insights: &mockInsights{}}

	result, _ := mcpStreak(deps)(context.Background(), makeCallToolRequest("standup_streak", map[string]any{"team_id": "core", "user_id": "u1"}))
	if result.IsError || toolText(t, result) != `{"streak":4}` {
		t.Errorf("streak result = %s", toolText(t, result))
	}

	result, _ = mcpTrends(deps)(context.Background(), makeCallToolRequest("team_trends", map[string]any{"team_id": "core", "from": "2024-05-01"}))
	if !result.IsError {
		t.Error("trends without 'to' should fail")
	}

	deps.Insights = &mockInsights{err: errors.New("boom")}
	result, _ = mcpStreak(deps)(context.Background(), makeCallToolRequest("standup_streak", map[string]any{"team_id": "core", "user_id": "u1"}))
	if !result.IsError {
		t.Error("expected tool error")
	}
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	if s := NewMCPServer(MCPDeps{Insights: &mockInsights{}, Version: "test"}); s == nil {
		t.Fatal("nil server")
	}
}
