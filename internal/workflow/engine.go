// Package workflow runs the declarative workflow.steps.v1 shape: an
// ordered list of tool calls, each optionally gated by a when-clause
// over the sync payload accumulated so far.
//
// Execution flow:
//  1. Seed the sync payload from the initial tool call's result
//  2. Walk steps in declaration order
//  3. A failed when-clause skips the step (recorded, never an error)
//  4. Executed steps refresh the sync payload from any sync output
//  5. The github_pr termination rule gates the final answer on a
//     create_pr step having actually run
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// StepExecutor runs one step's execution plan. The MCP agent sits
// behind this seam so the runner stays testable without a tool host.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, plan *models.ExecutionPlan) models.AgentResponse
}

// Runner executes workflow specs against a step executor.
type Runner struct {
	exec StepExecutor
}

// NewRunner builds a runner over the executor.
func NewRunner(exec StepExecutor) *Runner {
	return &Runner{exec: exec}
}

// Run walks the workflow after the initial tool call. It returns the
// final response (with the workflow result attached) and the plan of
// the last executed step, which the path-issue retry policy replays.
func (r *Runner) Run(ctx context.Context, spec *models.WorkflowSpec, initial models.AgentResponse, routedQuery string) (models.AgentResponse, *models.ExecutionPlan) {
	sync := ParseSyncPayload(initial.Result)
	executed := map[string]bool{}
	outcomes := make([]models.StepOutcome, 0, len(spec.Steps))

	final := initial
	var lastPlan *models.ExecutionPlan

	for _, step := range spec.Steps {
		if reason := skipReason(step.When, sync, executed); reason != "" {
			log.Debug().Str("step", step.ID).Str("reason", reason).Msg("workflow step skipped")
			outcomes = append(outcomes, models.StepOutcome{
				StepID:     step.ID,
				Tool:       step.Tool,
				SkipReason: reason,
			})
			continue
		}

		plan := &models.ExecutionPlan{
			Tool:          step.Tool,
			ToolArguments: models.CloneArguments(step.ToolArguments),
			RoutedQuery:   routedQuery,
		}
		resp := r.exec.ExecuteStep(ctx, plan)

		outcome := models.StepOutcome{
			StepID:    step.ID,
			Tool:      step.Tool,
			Executed:  resp.Succeeded(),
			MCPStatus: resp.MCPStatus,
		}
		outcomes = append(outcomes, outcome)

		if resp.Succeeded() {
			executed[step.ID] = true
			final = resp
			lastPlan = plan
			if payload := ParseSyncPayload(resp.Result); isSyncPayload(step.Tool, payload) {
				for k, v := range payload {
					sync[k] = v
				}
			}
		}

		log.Info().
			Str("step", step.ID).
			Str("tool", step.Tool).
			Bool("executed", outcome.Executed).
			Int("mcp_status", resp.MCPStatus).
			Msg("workflow step finished")
	}

	result := &models.WorkflowResult{Proceeded: true, Outcomes: outcomes, Sync: sync}

	if spec.Type == models.WorkflowTypeGitHubPR && !prStepExecuted(outcomes) {
		result.Proceeded = false
		final.RequiresInput = true
		final.Missing = models.MissingWorkspaceState
		final.Answer = workspaceReason(sync) + "\n\n" + final.Answer
	}

	final.Workflow = result
	return final, lastPlan
}

// skipReason resolves a when-clause. An empty return means run.
func skipReason(when *models.WhenClause, sync map[string]interface{}, executed map[string]bool) string {
	if when == nil {
		return ""
	}
	switch when.Type {
	case models.WhenSyncFieldEquals:
		got, ok := sync[when.Field]
		if !ok || !looseEquals(got, when.Equals) {
			return fmt.Sprintf("%s != %v", when.Field, when.Equals)
		}
		return ""
	case models.WhenStepExecuted:
		if !executed[when.StepID] {
			return fmt.Sprintf("step %s did not execute", when.StepID)
		}
		return ""
	default:
		return fmt.Sprintf("unknown when clause %q", when.Type)
	}
}

// looseEquals compares JSON-decoded values across numeric/string
// representations, so 1, 1.0 and "1" gate the same way.
func looseEquals(a, b interface{}) bool {
	if a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// ParseSyncPayload extracts gate-relevant fields from a tool result:
// scalars and arrays of scalars, one level deep.
func ParseSyncPayload(result interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	m, ok := result.(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range m {
		switch x := v.(type) {
		case string, bool, float64, int, int64, nil:
			out[k] = x
		case []interface{}:
			scalars := make([]interface{}, 0, len(x))
			for _, it := range x {
				switch it.(type) {
				case string, bool, float64, int, int64:
					scalars = append(scalars, it)
				}
			}
			out[k] = scalars
		}
	}
	return out
}

// isSyncPayload reports whether a step's output should refresh the
// shared sync payload: sync-named tools always do, and any output
// carrying workspace-state fields does too.
func isSyncPayload(tool string, payload map[string]interface{}) bool {
	if strings.Contains(strings.ToLower(tool), "sync") {
		return true
	}
	for k := range payload {
		if strings.HasPrefix(k, "ready_for_") || k == "is_clean" {
			return true
		}
	}
	return false
}

func prStepExecuted(outcomes []models.StepOutcome) bool {
	for _, o := range outcomes {
		if o.Executed && strings.Contains(o.StepID, "create_pr") {
			return true
		}
	}
	return false
}

// workspaceReason explains why the PR workflow stopped, from the last
// known sync state.
func workspaceReason(sync map[string]interface{}) string {
	var parts []string
	if clean, ok := sync["is_clean"].(bool); ok && !clean {
		parts = append(parts, "작업 공간에 커밋되지 않은 변경이 있습니다")
	}
	if ready, ok := sync["ready_for_pr"].(bool); ok && !ready {
		parts = append(parts, "PR을 생성할 준비가 되지 않았습니다")
	}
	if len(parts) == 0 {
		parts = append(parts, "작업 공간 상태 때문에 PR을 생성하지 못했습니다")
	}
	return strings.Join(parts, ". ") + ". 작업 공간을 정리한 뒤 다시 시도해 주세요."
}
