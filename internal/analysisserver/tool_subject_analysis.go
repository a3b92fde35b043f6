package analysisserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/anatolykoptev/go_takedown/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerSubjectAnalysis(server *mcp.Server, a Analyzer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "subject_analysis",
		Description: "Research cheat keywords for a subject (e.g. a game name), search every keyword, and return the strikable videos: high-priority videos the classifier flags as infringing with confidence >= 70. Each result carries the watch URL and the keyword that surfaced it.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.SubjectAnalysisRequest) (*mcp.CallToolResult, any, error) {
		out, err := subjectAnalysis(ctx, a, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func subjectAnalysis(ctx context.Context, a Analyzer, input engine.SubjectAnalysisRequest) (engine.SubjectAnalysisResponse, error) {
	input.SubjectName = strings.TrimSpace(input.SubjectName)
	if input.SubjectName == "" {
		return engine.SubjectAnalysisResponse{}, fmt.Errorf("%w: subjectName is required", engine.ErrInvalidRequest)
	}
	input.ChannelWhitelist = toolutil.NormWhitelist(input.ChannelWhitelist)

	out, err := a.AnalyzeSubject(ctx, input)
	if err != nil {
		slog.Warn("subject_analysis failed", slog.String("subject", input.SubjectName), slog.Any("error", err))
		return engine.SubjectAnalysisResponse{}, err
	}
	return out, nil
}
