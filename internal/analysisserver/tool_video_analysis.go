package analysisserver

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/anatolykoptev/go_takedown/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerVideoAnalysis(server *mcp.Server, a Analyzer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_analysis",
		Description: "Search videos by keywords (or fetch a trending category), pre-filter them with keyword heuristics, and score the likely candidates for copyright infringement. Returns per-video verdicts (isLikelyInfringing, confidenceScore, reasons, copyrightType) plus a summary report. Results are triage signals for manual review, not legal determinations.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.SearchAnalysisRequest) (*mcp.CallToolResult, any, error) {
		out, err := videoAnalysis(ctx, a, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func videoAnalysis(ctx context.Context, a Analyzer, input engine.SearchAnalysisRequest) (engine.SearchAnalysisResponse, error) {
	input, err := toolutil.NormSearchRequest(input)
	if err != nil {
		return engine.SearchAnalysisResponse{}, err
	}
	out, err := a.AnalyzeSearch(ctx, input)
	if err != nil {
		slog.Warn("video_analysis failed", slog.String("keywords", input.Keywords), slog.Any("error", err))
		return engine.SearchAnalysisResponse{}, err
	}
	return out, nil
}
