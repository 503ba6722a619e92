package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/agents"
	"github.com/baseloop/local-mcp-bridge/internal/args"
	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// pathIssuePattern matches answers where the tool host complained
// about paths in either language.
var pathIssuePattern = regexp.MustCompile(`(?i)(경로|path).*(없|누락|못 찾|does not exist|invalid)`)

var pathIssueLiterals = []string{"no valid files", "invalid paths", "use list_docs"}

// pathIssue reports whether a response indicates a path problem worth
// the one-shot retry.
func pathIssue(resp models.AgentResponse) bool {
	if resp.RequiresInput && resp.Missing == models.MissingPaths {
		return true
	}
	if pathIssuePattern.MatchString(resp.Answer) {
		return true
	}
	lower := strings.ToLower(resp.Answer)
	for _, lit := range pathIssueLiterals {
		if strings.Contains(lower, lit) {
			return true
		}
	}
	return false
}

// retryPathIssue repopulates paths and replays the plan once: first
// via a list_docs-like tool, then by falling back to the configured
// default paths, and finally by giving up with a polished message.
func (o *Orchestrator) retryPathIssue(ctx context.Context, rq *agents.Request, host *toolhost.Client, cat *toolhost.Catalogue, plan *models.ExecutionPlan, failed models.AgentResponse) models.AgentResponse {
	if lister, ok := cat.ListingTool(); ok {
		if paths := o.listMarkdownPaths(ctx, host, lister, failed.Arguments); len(paths) > 0 {
			log.Info().Str("tool", plan.Tool).Strs("paths", paths).Msg("path retry with rediscovered paths")
			return o.replayWithPaths(ctx, rq, host, cat, plan, paths)
		}
	}

	if defaults := o.rt.DefaultPaths(); len(defaults) > 0 {
		log.Info().Str("tool", plan.Tool).Strs("paths", defaults).Msg("path retry with default paths")
		return o.replayWithPaths(ctx, rq, host, cat, plan, defaults)
	}

	failed.Answer = "요약할 수 있는 문서를 찾지 못했습니다. 문서 경로를 알려주시면 다시 시도하겠습니다."
	failed.RequiresInput = true
	failed.Missing = models.MissingPaths
	return failed
}

// listMarkdownPaths runs the listing tool seeded with any previously
// used paths and the markdown filters, then keeps only .md results.
func (o *Orchestrator) listMarkdownPaths(ctx context.Context, host *toolhost.Client, lister models.ToolDescriptor, previous map[string]interface{}) []string {
	planned := map[string]interface{}{
		"extensions": []string{".md"},
		"glob":       "**/*.md",
	}
	if prev := args.NormalizeArray(previous["paths"]); len(prev) > 0 {
		planned["paths"] = prev
	}

	listArgs := args.Sanitize(lister, planned, "", o.rt.DefaultPaths())
	result, err := host.CallTool(ctx, lister.Name, listArgs)
	if err != nil || result.Failed() {
		return nil
	}

	var mdPaths []string
	for _, p := range args.ExtractPaths(*result) {
		if strings.HasSuffix(p, ".md") {
			mdPaths = append(mdPaths, p)
		}
	}
	return mdPaths
}

func (o *Orchestrator) replayWithPaths(ctx context.Context, rq *agents.Request, host *toolhost.Client, cat *toolhost.Catalogue, plan *models.ExecutionPlan, paths []string) models.AgentResponse {
	retry := &models.ExecutionPlan{
		Tool:          plan.Tool,
		ToolArguments: models.CloneArguments(plan.ToolArguments),
		RoutedQuery:   plan.RoutedQuery,
		Explanation:   plan.Explanation,
	}
	if retry.ToolArguments == nil {
		retry.ToolArguments = map[string]interface{}{}
	}
	retry.ToolArguments["paths"] = paths
	return o.rt.ExecutePlan(ctx, rq, host, cat, retry)
}
