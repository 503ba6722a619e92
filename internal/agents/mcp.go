package agents

import (
	"context"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/args"
	"github.com/baseloop/local-mcp-bridge/internal/format"
	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// ActionMCPExecute marks responses produced by the tool-execution agent.
const ActionMCPExecute = "mcp-execute"

// SummaryIntent matches queries asking for a summary, enabling the
// summary-chain after a successful tool call.
var SummaryIntent = regexp.MustCompile(`요약|정리|summary|summar`)

// ExecutePlan runs one tool invocation against the host: tool
// selection, argument sanitisation, path-discovery preflight, the call
// itself, the empty-hits search retry and the summary chain. The
// returned response always carries an answer; upstream failures are
// folded into MCPStatus rather than returned as errors.
func (rt *Runtime) ExecutePlan(ctx context.Context, rq *Request, host *toolhost.Client, cat *toolhost.Catalogue, plan *models.ExecutionPlan) models.AgentResponse {
	tool, ok := cat.Lookup(plan.Tool)
	if !ok {
		if tool, ok = cat.HeuristicBest(plan.RoutedQuery); !ok {
			return models.AgentResponse{
				Action:        ActionMCPExecute,
				Route:         models.RouteLocalMCP,
				RoutedQuery:   plan.RoutedQuery,
				Answer:        "사용할 수 있는 도구를 찾지 못했습니다. 도구 서버 설정을 확인해 주세요.",
				RequiresInput: true,
				Missing:       models.MissingExecutionPlan,
				MCPStatus:     200,
			}
		}
	}
	rq.Trace.SelectedTool = tool.Name

	arguments := args.Sanitize(tool, plan.ToolArguments, plan.RoutedQuery, rt.defaultPaths)
	if err := args.ValidateArguments(tool, arguments); err != nil {
		log.Debug().Err(err).Str("tool", tool.Name).Msg("arguments failed advisory schema validation")
		rq.Trace.ArgumentWarnings = append(rq.Trace.ArgumentWarnings, err.Error())
	}
	rq.Progress("arguments_ready", map[string]interface{}{"tool": tool.Name})

	// Path-required preflight: a paths-requiring tool must never be
	// called with an empty or placeholder list.
	if tool.InputSchema.Requires("paths") && placeholderPaths(arguments["paths"]) {
		discovered := rt.discoverPaths(ctx, rq, host, cat, plan, tool.Name)
		if len(discovered) == 0 {
			discovered = rt.DefaultPaths()
		}
		if len(discovered) == 0 {
			return models.AgentResponse{
				Action:        ActionMCPExecute,
				Route:         models.RouteLocalMCP,
				RoutedQuery:   plan.RoutedQuery,
				Tool:          tool.Name,
				Arguments:     arguments,
				Answer:        "작업할 문서 경로를 찾지 못했습니다. 경로를 알려주시면 다시 시도하겠습니다.",
				RequiresInput: true,
				Missing:       models.MissingPaths,
				MCPStatus:     200,
			}
		}
		arguments["paths"] = discovered
	}

	rq.Progress("tool_call", map[string]interface{}{"tool": tool.Name})
	result, err := host.CallTool(ctx, tool.Name, arguments)
	if err != nil {
		return models.AgentResponse{
			Action:      ActionMCPExecute,
			Route:       models.RouteLocalMCP,
			RoutedQuery: plan.RoutedQuery,
			Tool:        tool.Name,
			Arguments:   arguments,
			Answer:      "도구 서버 호출에 실패했습니다: " + err.Error(),
			MCPStatus:   502,
		}
	}
	if result.Failed() {
		answer := result.ErrMessage()
		if answer == "" {
			answer = "도구 실행이 실패했습니다."
		}
		return models.AgentResponse{
			Action:      ActionMCPExecute,
			Route:       models.RouteLocalMCP,
			RoutedQuery: plan.RoutedQuery,
			Tool:        tool.Name,
			Arguments:   arguments,
			Answer:      answer,
			MCPStatus:   result.EffectiveStatus(),
		}
	}

	// Empty-hits retry: rediscover paths via a listing tool and run the
	// same search once more, adopting the retry only when it succeeds.
	if toolhost.IsSearchLike(tool.Name) && emptyHits(result) {
		if retried, retryArgs, ok := rt.retrySearch(ctx, rq, host, cat, tool, arguments); ok {
			result = retried
			arguments = retryArgs
			rq.Trace.SearchRetried = true
		}
	}

	finalTool := tool.Name
	finalResult := result

	// Summary-chain: the user asked for a summary and the host offers a
	// dedicated summary tool distinct from what just ran.
	if SummaryIntent.MatchString(plan.RoutedQuery) {
		if chainedTool, chained, chainedArgs, ok := rt.chainSummary(ctx, rq, host, cat, tool.Name, result); ok {
			finalTool = chainedTool
			finalResult = chained
			arguments = chainedArgs
			rq.Trace.SummaryChained = true
		}
	}

	rq.Progress("render", map[string]interface{}{"tool": finalTool})
	return models.AgentResponse{
		Action:      ActionMCPExecute,
		Route:       models.RouteLocalMCP,
		RoutedQuery: plan.RoutedQuery,
		Tool:        finalTool,
		Arguments:   arguments,
		Result:      resultView(finalResult),
		Answer:      format.Render(finalTool, *finalResult),
		MCPStatus:   finalResult.Status,
	}
}

// discoverPaths runs the plan's discovery tool, or the catalogue
// fallback, and harvests paths from its result.
func (rt *Runtime) discoverPaths(ctx context.Context, rq *Request, host *toolhost.Client, cat *toolhost.Catalogue, plan *models.ExecutionPlan, selected string) []string {
	var tool models.ToolDescriptor
	var planned map[string]interface{}
	found := false

	if plan.Discovery != nil {
		if t, ok := cat.Lookup(plan.Discovery.Tool); ok {
			tool, planned, found = t, plan.Discovery.ToolArguments, true
		}
	}
	if !found {
		t, ok := cat.DiscoveryFallback(selected)
		if !ok {
			return nil
		}
		tool = t
	}

	rq.Trace.DiscoveryTool = tool.Name
	rq.Progress("discovery", map[string]interface{}{"tool": tool.Name})

	arguments := args.Sanitize(tool, planned, plan.RoutedQuery, rt.defaultPaths)
	result, err := host.CallTool(ctx, tool.Name, arguments)
	if err != nil || result.Failed() {
		return nil
	}
	paths := args.ExtractPaths(*result)
	rq.Trace.DiscoveredPaths = paths
	return paths
}

// retrySearch repopulates paths via the listing tool and re-runs the
// original search. The retry is adopted only when it succeeds.
func (rt *Runtime) retrySearch(ctx context.Context, rq *Request, host *toolhost.Client, cat *toolhost.Catalogue, tool models.ToolDescriptor, arguments map[string]interface{}) (*models.CallResult, map[string]interface{}, bool) {
	lister, ok := cat.ListingTool()
	if !ok || lister.Name == tool.Name {
		return nil, nil, false
	}

	rq.Progress("search_retry", map[string]interface{}{"tool": lister.Name})
	listArgs := args.Sanitize(lister, map[string]interface{}{
		"paths":      rt.DefaultPaths(),
		"extensions": []string{".md", ".txt"},
	}, "", rt.defaultPaths)

	listed, err := host.CallTool(ctx, lister.Name, listArgs)
	if err != nil || listed.Failed() {
		return nil, nil, false
	}
	paths := args.ExtractPaths(*listed)
	if len(paths) == 0 {
		return nil, nil, false
	}

	retryArgs := models.CloneArguments(arguments)
	retryArgs["paths"] = paths
	retried, err := host.CallTool(ctx, tool.Name, retryArgs)
	if err != nil || retried.Failed() {
		return nil, nil, false
	}
	return retried, retryArgs, true
}

// chainSummary feeds the current result's paths into the catalogue's
// summary tool. When the result carries no paths and the summary tool
// needs them, one discovery call is allowed before giving up.
func (rt *Runtime) chainSummary(ctx context.Context, rq *Request, host *toolhost.Client, cat *toolhost.Catalogue, selected string, result *models.CallResult) (string, *models.CallResult, map[string]interface{}, bool) {
	summaryTool, ok := cat.SummaryTool(selected)
	if !ok {
		return "", nil, nil, false
	}

	paths := args.ExtractPaths(*result)
	if len(paths) == 0 && summaryTool.InputSchema.Requires("paths") {
		if disc, ok := cat.DiscoveryFallback(summaryTool.Name); ok && disc.Name != selected {
			discArgs := args.Sanitize(disc, nil, "", rt.defaultPaths)
			if found, err := host.CallTool(ctx, disc.Name, discArgs); err == nil && !found.Failed() {
				paths = args.ExtractPaths(*found)
			}
		}
	}
	if len(paths) == 0 {
		return "", nil, nil, false
	}

	rq.Progress("summary_chain", map[string]interface{}{"tool": summaryTool.Name})
	chainArgs := map[string]interface{}{
		"paths":       paths,
		"output_path": args.DefaultOutputPath,
	}
	chained, err := host.CallTool(ctx, summaryTool.Name, chainArgs)
	if err != nil || chained.Failed() {
		return "", nil, nil, false
	}
	return summaryTool.Name, chained, chainArgs, true
}

// placeholderPaths reports whether a paths value is effectively
// missing: empty, or exactly the "." placeholder.
func placeholderPaths(v interface{}) bool {
	paths := args.NormalizeArray(v)
	if len(paths) == 0 {
		return true
	}
	return len(paths) == 1 && paths[0] == "."
}

// emptyHits reports a search result whose hits member is present but
// empty.
func emptyHits(result *models.CallResult) bool {
	sc := result.StructuredContent()
	if sc == nil {
		return false
	}
	hits, ok := sc["hits"].([]interface{})
	return ok && len(hits) == 0
}

// resultView picks the response's result payload: structuredContent
// when the host provided one, else the whole result member.
func resultView(result *models.CallResult) interface{} {
	if sc := result.StructuredContent(); sc != nil {
		return sc
	}
	if res := result.Result(); res != nil {
		return res
	}
	return result.Parsed
}
