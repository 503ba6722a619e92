package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/args"
	"github.com/baseloop/local-mcp-bridge/internal/llm"
	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// RouteDecision is the Plan Agent's first verdict.
type RouteDecision struct {
	Route       models.Route `mapstructure:"route"`
	Query       string       `mapstructure:"query"`
	Explanation string       `mapstructure:"explanation"`
}

// DecideRoute asks the model whether the request needs a tool. Any
// parse or transport failure silently defaults to the local_mcp route
// with the original prompt as the query.
func (rt *Runtime) DecideRoute(ctx context.Context, rq *Request) RouteDecision {
	fallback := RouteDecision{Route: models.RouteLocalMCP, Query: rq.Prompt}

	messages := []llm.Message{llm.System(routeSystemPrompt)}
	messages = append(messages, historyMessages(rq.Conversation)...)
	messages = append(messages, llm.User(rq.Prompt))

	raw, err := rt.llm.CompleteJSON(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("route decision failed, defaulting to local_mcp")
		return fallback
	}

	var decision RouteDecision
	if err := decodeJSONMap(raw, &decision); err != nil {
		log.Warn().Err(err).Msg("route decision unparseable, defaulting to local_mcp")
		return fallback
	}
	if decision.Route != models.RouteLocalMCP && decision.Route != models.RouteChatOnly {
		return fallback
	}
	if strings.TrimSpace(decision.Query) == "" {
		decision.Query = rq.Prompt
	}
	return decision
}

// ── Manifest-aware planning ──────────────────────────────────

var githubPRIntent = regexp.MustCompile(`(?i)pr|pull request|github|sync|깃허브|commit|push|deploy`)

// PlanExecution builds the execution plan for the local_mcp route from
// the bootstrapped catalogue. A nil return means no usable tool exists
// and the caller must surface a requiresInput response.
func (rt *Runtime) PlanExecution(ctx context.Context, rq *Request, cat *toolhost.Catalogue, query string) *models.ExecutionPlan {
	if cat == nil || cat.Len() == 0 {
		return nil
	}

	if plan := rt.probeGitHubWorkflow(cat, query); plan != nil {
		rq.Progress("plan", map[string]interface{}{"tool": plan.Tool, "workflow": plan.Workflow.Type})
		return plan
	}

	if plan := rt.selectToolWithLLM(ctx, cat, query); plan != nil {
		rq.Progress("plan", map[string]interface{}{"tool": plan.Tool})
		return plan
	}

	tool, ok := cat.HeuristicBest(query)
	if !ok {
		return nil
	}
	planned := args.InitialArguments(tool, query)
	rq.Progress("plan", map[string]interface{}{"tool": tool.Name, "heuristic": true})
	return &models.ExecutionPlan{
		Tool:          tool.Name,
		ToolArguments: args.Sanitize(tool, planned, query, rt.defaultPaths),
		RoutedQuery:   query,
		Explanation:   "heuristic tool selection",
	}
}

// probeGitHubWorkflow detects GitHub-PR intent and, when the host
// carries both sync_status and create_pr, plans the gated three-step
// workflow. The initial call is always sync_status so the runner has a
// sync payload to gate on.
func (rt *Runtime) probeGitHubWorkflow(cat *toolhost.Catalogue, query string) *models.ExecutionPlan {
	if !githubPRIntent.MatchString(query) {
		return nil
	}
	syncTool, hasSync := cat.Lookup("sync_status")
	prTool, hasPR := cat.Lookup("create_pr")
	if !hasSync || !hasPR {
		return nil
	}

	steps := []models.WorkflowStep{}
	if pull, ok := pullLikeTool(cat); ok {
		steps = append(steps, models.WorkflowStep{
			ID:   "pull_if_needed",
			Tool: pull.Name,
			When: &models.WhenClause{Type: models.WhenSyncFieldEquals, Field: "ready_for_pull", Equals: true},
		})
	}
	steps = append(steps,
		models.WorkflowStep{
			ID:   "sync_refresh_after_pull",
			Tool: syncTool.Name,
			When: &models.WhenClause{Type: models.WhenStepExecuted, StepID: "pull_if_needed"},
		},
		models.WorkflowStep{
			ID:   "create_pr_if_ready",
			Tool: prTool.Name,
			When: &models.WhenClause{Type: models.WhenSyncFieldEquals, Field: "ready_for_pr", Equals: true},
		},
	)

	return &models.ExecutionPlan{
		Tool:        syncTool.Name,
		RoutedQuery: query,
		Explanation: "GitHub PR workflow detected",
		Workflow: &models.WorkflowSpec{
			Schema: models.WorkflowSchemaStepsV1,
			Type:   models.WorkflowTypeGitHubPR,
			Mode:   "sequential",
			Steps:  steps,
		},
	}
}

func pullLikeTool(cat *toolhost.Catalogue) (models.ToolDescriptor, bool) {
	for _, t := range cat.Tools() {
		if strings.Contains(strings.ToLower(t.Name), "pull") {
			return t, true
		}
	}
	return models.ToolDescriptor{}, false
}

// selectorOutput is the LLM tool-selector's JSON shape.
type selectorOutput struct {
	Tool          string                 `mapstructure:"tool"`
	ToolArguments map[string]interface{} `mapstructure:"tool_arguments"`
	RoutedQuery   string                 `mapstructure:"routed_query"`
	Explanation   string                 `mapstructure:"explanation"`
	Discovery     *struct {
		Tool          string                 `mapstructure:"tool"`
		ToolArguments map[string]interface{} `mapstructure:"tool_arguments"`
		ExpectedPaths []string               `mapstructure:"expected_paths"`
	} `mapstructure:"discovery"`
}

func (rt *Runtime) selectToolWithLLM(ctx context.Context, cat *toolhost.Catalogue, query string) *models.ExecutionPlan {
	raw, err := rt.llm.CompleteJSON(ctx, []llm.Message{
		llm.System(selectorSystemPrompt + "\n\nTool catalogue:\n" + describeCatalogue(cat)),
		llm.User(query),
	})
	if err != nil {
		log.Warn().Err(err).Msg("tool selector call failed")
		return nil
	}

	var sel selectorOutput
	if err := decodeJSONMap(raw, &sel); err != nil {
		log.Warn().Err(err).Msg("tool selector output unparseable")
		return nil
	}

	tool, ok := cat.Lookup(sel.Tool)
	if !ok {
		return nil
	}
	routed := strings.TrimSpace(sel.RoutedQuery)
	if routed == "" {
		routed = query
	}

	plan := &models.ExecutionPlan{
		Tool:          tool.Name,
		ToolArguments: args.Sanitize(tool, sel.ToolArguments, routed, rt.defaultPaths),
		RoutedQuery:   routed,
		Explanation:   sel.Explanation,
	}
	if sel.Discovery != nil && strings.TrimSpace(sel.Discovery.Tool) != "" {
		plan.Discovery = &models.DiscoverySpec{
			Tool:          sel.Discovery.Tool,
			ToolArguments: sel.Discovery.ToolArguments,
			ExpectedPaths: sel.Discovery.ExpectedPaths,
		}
	}
	return plan
}

func describeCatalogue(cat *toolhost.Catalogue) string {
	var b strings.Builder
	for _, t := range cat.Tools() {
		fmt.Fprintf(&b, "- %s: %s", t.Name, t.Description)
		if len(t.InputSchema.Required) > 0 {
			fmt.Fprintf(&b, " (required: %s)", strings.Join(t.InputSchema.Required, ", "))
		}
		if names := t.InputSchema.PropertyNames(); len(names) > 0 {
			fmt.Fprintf(&b, " (properties: %s)", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// decodeJSONMap parses model output as a JSON object and decodes it
// into a typed view, tolerating weakly typed values.
func decodeJSONMap(raw string, out interface{}) error {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &m); err != nil {
		return fmt.Errorf("parse model json: %w", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}
