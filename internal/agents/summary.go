package agents

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/llm"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// Summarize compresses a search/list answer into short prose. It runs
// after the tool execution when the user asked for a summary but no
// summary tool could be chained, so the raw hit listing still becomes
// a readable answer. On failure the original response is kept.
func (rt *Runtime) Summarize(ctx context.Context, rq *Request, resp models.AgentResponse) models.AgentResponse {
	if !resp.Succeeded() || !hasListing(resp.Result) {
		return resp
	}

	summary, err := rt.llm.Complete(ctx, []llm.Message{
		llm.System(summarySystemPrompt),
		llm.User("사용자 요청:\n" + rq.Prompt + "\n\n결과:\n" + resp.Answer),
	})
	if err != nil || summary == "" {
		log.Warn().Err(err).Msg("summary compression failed, keeping raw listing")
		return resp
	}

	resp.Answer = summary
	return resp
}

// hasListing reports whether a response payload looks like search or
// listing output worth compressing.
func hasListing(result interface{}) bool {
	m, ok := result.(map[string]interface{})
	if !ok {
		return false
	}
	for _, key := range []string{"hits", "docs", "results", "documents"} {
		if arr, ok := m[key].([]interface{}); ok && len(arr) > 0 {
			return true
		}
	}
	return false
}
