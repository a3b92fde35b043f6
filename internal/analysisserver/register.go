package analysisserver

import (
	"context"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Analyzer is the pipeline surface exposed as MCP tools.
type Analyzer interface {
	AnalyzeSearch(ctx context.Context, req engine.SearchAnalysisRequest) (engine.SearchAnalysisResponse, error)
	AnalyzeSubject(ctx context.Context, req engine.SubjectAnalysisRequest) (engine.SubjectAnalysisResponse, error)
}

// RegisterTools registers the analysis tools on the given MCP server:
// video_analysis, subject_analysis.
func RegisterTools(server *mcp.Server, a Analyzer) {
	registerVideoAnalysis(server, a)
	registerSubjectAnalysis(server, a)
}
