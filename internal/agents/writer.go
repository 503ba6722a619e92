package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/llm"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// Polish runs the writer/evaluator loop over a drafted response: one
// rewrite, one evaluation, and a single feedback-driven second pass
// when the evaluator rejects. The second draft is returned regardless
// of its verdict, so the loop terminates in at most two calls to each
// agent.
func (rt *Runtime) Polish(ctx context.Context, rq *Request, resp models.AgentResponse) models.AgentResponse {
	draft := rt.writeDraft(ctx, rq, resp.Answer, "")
	check := rt.evaluate(ctx, rq, draft)
	passes := 1

	if !check.Pass {
		draft = rt.writeDraft(ctx, rq, draft, check.Feedback)
		check = rt.evaluate(ctx, rq, draft)
		passes = 2
	}

	rq.Trace.WriterPasses = passes
	resp.Answer = draft
	resp.QualityCheck = &check
	return resp
}

// writeDraft asks the writer for a polished answer. A failed call
// keeps the current draft so the pipeline never loses the answer.
func (rt *Runtime) writeDraft(ctx context.Context, rq *Request, current, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "사용자 요청:\n%s\n\n현재 초안:\n%s\n", rq.Prompt, current)
	if feedback != "" {
		fmt.Fprintf(&b, "\n평가 피드백:\n%s\n", feedback)
	}

	draft, err := rt.llm.Complete(ctx, []llm.Message{
		llm.System(writerSystemPrompt),
		llm.User(b.String()),
	})
	if err != nil || strings.TrimSpace(draft) == "" {
		log.Warn().Err(err).Msg("writer pass failed, keeping current draft")
		return current
	}
	return strings.TrimSpace(draft)
}

type evaluatorOutput struct {
	Pass     bool   `mapstructure:"pass"`
	Score    int    `mapstructure:"score"`
	Feedback string `mapstructure:"feedback"`
}

// evaluate scores a candidate answer. Parse failures default to a
// passing verdict so a flaky judge never blocks the response.
func (rt *Runtime) evaluate(ctx context.Context, rq *Request, candidate string) models.QualityCheck {
	raw, err := rt.llm.CompleteJSON(ctx, []llm.Message{
		llm.System(evaluatorSystemPrompt),
		llm.User(fmt.Sprintf("User request:\n%s\n\nCandidate answer:\n%s", rq.Prompt, candidate)),
	})
	if err != nil {
		log.Warn().Err(err).Msg("evaluator call failed, defaulting to pass")
		return models.DefaultQualityCheck()
	}

	var verdict evaluatorOutput
	if err := decodeJSONMap(raw, &verdict); err != nil {
		log.Warn().Err(err).Msg("evaluator output unparseable, defaulting to pass")
		return models.DefaultQualityCheck()
	}

	score := verdict.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return models.QualityCheck{Pass: verdict.Pass, Score: score, Feedback: verdict.Feedback}
}
