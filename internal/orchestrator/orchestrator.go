// Package orchestrator drives the agent pipeline for one chat request:
// Plan → Execute → (Workflow | Retry | Summary) → Writer/Evaluator →
// Output. Each request runs in its own goroutine with request-scoped
// state only; the orchestrator itself is immutable after construction.
package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/a2a"
	"github.com/baseloop/local-mcp-bridge/internal/agents"
	"github.com/baseloop/local-mcp-bridge/internal/config"
	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
	"github.com/baseloop/local-mcp-bridge/internal/workflow"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// Orchestrator sequences the agents for every request.
type Orchestrator struct {
	rt  *agents.Runtime
	mcp config.MCPConfig
}

// New wires the orchestrator to the agent runtime and the tool-host
// configuration.
func New(rt *agents.Runtime, mcp config.MCPConfig) *Orchestrator {
	return &Orchestrator{rt: rt, mcp: mcp}
}

// Handle runs the full pipeline and returns the final agent response.
// Delta and final frames are emitted along the way; the terminal done
// frame belongs to the HTTP layer.
func (o *Orchestrator) Handle(ctx context.Context, req models.ChatRequest, emitter a2a.Emitter) models.AgentResponse {
	start := time.Now()
	requestID := uuid.New().String()
	trace := &models.AgentTrace{TraceID: requestID}
	rq := agents.NewRequest(requestID, req.Prompt, req.Conversation, emitter, trace)

	rq.Emitter.Emit(a2a.EventProgress, map[string]interface{}{"stage": "route"})
	o.emitA2A(rq, a2a.AgentOrchestrator, a2a.AgentPlan, "route_request", map[string]interface{}{
		"prompt": req.Prompt,
	})

	decision := o.rt.DecideRoute(ctx, rq)
	trace.Route = decision.Route
	rq.Emitter.Emit(a2a.EventRoute, map[string]interface{}{
		"route":       string(decision.Route),
		"query":       decision.Query,
		"explanation": decision.Explanation,
	})
	o.emitA2A(rq, a2a.AgentPlan, a2a.AgentOrchestrator, "route_decision", map[string]interface{}{
		"route": string(decision.Route),
	})

	var resp models.AgentResponse
	if decision.Route == models.RouteChatOnly {
		o.emitA2A(rq, a2a.AgentOrchestrator, a2a.AgentChat, "chat_request", nil)
		resp = o.rt.Chat(ctx, rq)
	} else {
		resp = o.executeLocalMCP(ctx, rq, req, decision)
	}

	rq.Emitter.Emit(a2a.EventProgress, map[string]interface{}{"stage": "polish"})
	o.emitA2A(rq, a2a.AgentOrchestrator, a2a.AgentWriter, "polish_request", map[string]interface{}{
		"mcpStatus": resp.MCPStatus,
	})
	resp = o.rt.Polish(ctx, rq, resp)

	trace.TotalMs = time.Since(start).Milliseconds()
	resp.AgentTrace = trace
	if resp.RoutedQuery == "" {
		resp.RoutedQuery = decision.Query
	}
	if resp.Explanation == "" {
		resp.Explanation = decision.Explanation
	}

	o.streamOutput(rq, resp)

	log.Info().
		Str("request_id", requestID).
		Str("route", string(resp.Route)).
		Str("tool", resp.Tool).
		Int("mcp_status", resp.MCPStatus).
		Int64("total_ms", trace.TotalMs).
		Msg("orchestration complete")
	return resp
}

// executeLocalMCP runs the tool branch: bootstrap, plan, execute,
// workflow, the one-shot path retry and the post-hoc summary.
func (o *Orchestrator) executeLocalMCP(ctx context.Context, rq *agents.Request, req models.ChatRequest, decision agents.RouteDecision) models.AgentResponse {
	endpoint := req.LocalEndpoint
	if endpoint == "" {
		endpoint = o.mcp.Endpoint
	}
	if endpoint == "" {
		return planGap("도구 서버 주소가 설정되지 않았습니다. 엔드포인트를 지정해 주세요.", decision)
	}

	host := toolhost.NewClient(endpoint, o.mcp.Token)
	mc := host.Bootstrap(ctx, func(phase string, detail map[string]interface{}) {
		rq.Progress(phase, detail)
	})
	rq.Trace.ManifestOK = mc.OK
	rq.Trace.ManifestStatus = mc.Status
	rq.Trace.ToolCount = len(mc.Tools)

	if mc.Legacy {
		return o.legacyChat(ctx, rq, host, decision)
	}
	if !mc.OK || len(mc.Tools) == 0 {
		return planGap("도구 서버에서 사용할 수 있는 도구를 찾지 못했습니다.", decision)
	}

	cat := toolhost.NewCatalogue(mc.Tools)
	plan := o.rt.PlanExecution(ctx, rq, cat, decision.Query)
	if plan == nil || plan.Tool == "" {
		return planGap("요청을 처리할 실행 계획을 세우지 못했습니다.", decision)
	}

	o.emitA2A(rq, a2a.AgentOrchestrator, a2a.AgentMCP, "execute", map[string]interface{}{
		"tool": plan.Tool,
	})
	resp := o.rt.ExecutePlan(ctx, rq, host, cat, plan)

	retryPlan := plan
	if plan.Workflow != nil && plan.Workflow.Schema == models.WorkflowSchemaStepsV1 {
		runner := workflow.NewRunner(&stepExecutor{o: o, rq: rq, host: host, cat: cat})
		var lastPlan *models.ExecutionPlan
		resp, lastPlan = runner.Run(ctx, plan.Workflow, resp, plan.RoutedQuery)
		if lastPlan != nil {
			retryPlan = lastPlan
		}
		rq.Trace.StepOutcomes = resp.Workflow.Outcomes
	}

	if pathIssue(resp) && !rq.Trace.Retried {
		rq.Trace.Retried = true
		rq.Progress("path_retry", map[string]interface{}{"tool": retryPlan.Tool})
		resp = o.retryPathIssue(ctx, rq, host, cat, retryPlan, resp)
	}

	if agents.SummaryIntent.MatchString(decision.Query) && !rq.Trace.SummaryChained {
		resp = o.rt.Summarize(ctx, rq, resp)
	}

	o.emitA2A(rq, a2a.AgentMCP, a2a.AgentOrchestrator, "result", map[string]interface{}{
		"tool":      resp.Tool,
		"mcpStatus": resp.MCPStatus,
	})
	return resp
}

// legacyChat handles hosts that predate the JSON-RPC surface: one
// plain POST whose textual reply is the final answer. No tool or
// arguments appear on the response.
func (o *Orchestrator) legacyChat(ctx context.Context, rq *agents.Request, host *toolhost.Client, decision agents.RouteDecision) models.AgentResponse {
	rq.Progress("legacy_chat", map[string]interface{}{"endpoint": host.Endpoint()})
	answer, status, err := host.LegacyChat(ctx, rq.Prompt, rq.Conversation)
	if err != nil {
		return models.AgentResponse{
			Action:      "legacy-chat",
			Route:       models.RouteLocalMCP,
			RoutedQuery: decision.Query,
			Answer:      "도구 서버 호출에 실패했습니다: " + err.Error(),
			MCPStatus:   http.StatusBadGateway,
		}
	}
	if answer == "" {
		answer = "도구 서버가 빈 응답을 보냈습니다."
	}
	return models.AgentResponse{
		Action:      "legacy-chat",
		Route:       models.RouteLocalMCP,
		RoutedQuery: decision.Query,
		Answer:      answer,
		MCPStatus:   status,
	}
}

func planGap(answer string, decision agents.RouteDecision) models.AgentResponse {
	return models.AgentResponse{
		Action:        agents.ActionMCPExecute,
		Route:         models.RouteLocalMCP,
		RoutedQuery:   decision.Query,
		Answer:        answer,
		RequiresInput: true,
		Missing:       models.MissingExecutionPlan,
		MCPStatus:     http.StatusOK,
	}
}

// stepExecutor adapts the MCP agent to the workflow runner's seam.
type stepExecutor struct {
	o    *Orchestrator
	rq   *agents.Request
	host *toolhost.Client
	cat  *toolhost.Catalogue
}

func (s *stepExecutor) ExecuteStep(ctx context.Context, plan *models.ExecutionPlan) models.AgentResponse {
	return s.o.rt.ExecutePlan(ctx, s.rq, s.host, s.cat, plan)
}

func (o *Orchestrator) emitA2A(rq *agents.Request, from, to, typ string, payload map[string]interface{}) {
	rq.Emitter.Emit(a2a.EventA2A, a2a.NewMessage(rq.ID, from, to, typ, payload))
}
