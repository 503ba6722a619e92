package agents_test

import (
	"context"
	"testing"

	"github.com/baseloop/local-mcp-bridge/internal/agents"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

func drafted(answer string) models.AgentResponse {
	return models.AgentResponse{
		Action:    agents.ActionMCPExecute,
		Route:     models.RouteLocalMCP,
		Answer:    answer,
		MCPStatus: 200,
	}
}

func TestPolish_SinglePassWhenAccepted(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{
		text: []string{"다듬어진 답변"},
		json: []string{`{"pass":true,"score":92,"feedback":""}`},
	}, nil)
	rq := newRequest("요약해줘")

	resp := rt.Polish(context.Background(), rq, drafted("원본 답변"))
	if resp.Answer != "다듬어진 답변" {
		t.Errorf("Answer = %q, want the polished draft", resp.Answer)
	}
	if rq.Trace.WriterPasses != 1 {
		t.Errorf("WriterPasses = %d, want 1", rq.Trace.WriterPasses)
	}
	if resp.QualityCheck == nil || !resp.QualityCheck.Pass || resp.QualityCheck.Score != 92 {
		t.Errorf("QualityCheck = %+v, want pass with score 92", resp.QualityCheck)
	}
}

func TestPolish_SecondPassOnRejection(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{
		text: []string{"첫 번째 초안", "두 번째 초안"},
		json: []string{
			`{"pass":false,"score":40,"feedback":"너무 짧습니다"}`,
			`{"pass":true,"score":88,"feedback":""}`,
		},
	}, nil)
	rq := newRequest("요약해줘")

	resp := rt.Polish(context.Background(), rq, drafted("원본"))
	if resp.Answer != "두 번째 초안" {
		t.Errorf("Answer = %q, want the second draft", resp.Answer)
	}
	if rq.Trace.WriterPasses != 2 {
		t.Errorf("WriterPasses = %d, want 2", rq.Trace.WriterPasses)
	}
}

func TestPolish_SecondDraftKeptEvenWhenRejected(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{
		text: []string{"첫 번째", "두 번째"},
		json: []string{
			`{"pass":false,"score":30,"feedback":"부족"}`,
			`{"pass":false,"score":35,"feedback":"여전히 부족"}`,
		},
	}, nil)
	rq := newRequest("요약")

	resp := rt.Polish(context.Background(), rq, drafted("원본"))
	if resp.Answer != "두 번째" {
		t.Errorf("Answer = %q, want the second draft despite rejection", resp.Answer)
	}
	if resp.QualityCheck == nil || resp.QualityCheck.Pass {
		t.Errorf("QualityCheck = %+v, want the failing verdict preserved", resp.QualityCheck)
	}
	if rq.Trace.WriterPasses != 2 {
		t.Errorf("WriterPasses = %d, want the loop capped at 2", rq.Trace.WriterPasses)
	}
}

func TestPolish_EvaluatorGarbageDefaultsToPass(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{
		text: []string{"초안"},
		json: []string{"definitely not json"},
	}, nil)
	rq := newRequest("요약")

	resp := rt.Polish(context.Background(), rq, drafted("원본"))
	want := models.DefaultQualityCheck()
	if resp.QualityCheck == nil || *resp.QualityCheck != want {
		t.Errorf("QualityCheck = %+v, want the default %+v", resp.QualityCheck, want)
	}
	if rq.Trace.WriterPasses != 1 {
		t.Errorf("WriterPasses = %d, want 1 after a defaulted pass", rq.Trace.WriterPasses)
	}
}

func TestPolish_ScoreClamped(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{
		text: []string{"초안"},
		json: []string{`{"pass":true,"score":250}`},
	}, nil)

	resp := rt.Polish(context.Background(), newRequest("요약"), drafted("원본"))
	if resp.QualityCheck.Score != 100 {
		t.Errorf("Score = %d, want clamped to 100", resp.QualityCheck.Score)
	}
}

func TestPolish_WriterFailureKeepsOriginal(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{
		json: []string{`{"pass":true,"score":90}`},
	}, nil)

	resp := rt.Polish(context.Background(), newRequest("요약"), drafted("원본 답변"))
	if resp.Answer != "원본 답변" {
		t.Errorf("Answer = %q, want the original kept on writer failure", resp.Answer)
	}
}

func TestChat_AlwaysReports200(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{}, nil)

	resp := rt.Chat(context.Background(), newRequest("안녕하세요"))
	if resp.MCPStatus != 200 {
		t.Errorf("MCPStatus = %d, want 200 even when the model fails", resp.MCPStatus)
	}
	if resp.Route != models.RouteChatOnly || resp.Action != agents.ActionChatOnly {
		t.Errorf("response = %+v, want the chat-only markers", resp)
	}
	if resp.Answer == "" {
		t.Error("Answer empty, want an apology answer on model failure")
	}
	if resp.Tool != "" || resp.Arguments != nil {
		t.Errorf("tool fields set on a chat-only response: %q %v", resp.Tool, resp.Arguments)
	}
}

func TestSummarize_CompressesListings(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{text: []string{"세 건의 회의록이 검색되었습니다."}}, nil)
	rq := newRequest("회의록 요약해줘")

	resp := drafted("긴 원시 목록")
	resp.Result = map[string]interface{}{
		"hits": []interface{}{
			map[string]interface{}{"path": "notes/a.md"},
			map[string]interface{}{"path": "notes/b.md"},
		},
	}

	out := rt.Summarize(context.Background(), rq, resp)
	if out.Answer != "세 건의 회의록이 검색되었습니다." {
		t.Errorf("Answer = %q, want the compressed summary", out.Answer)
	}
}

func TestSummarize_SkipsNonListings(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{text: []string{"should not be used"}}, nil)

	resp := drafted("요약 결과")
	resp.Result = map[string]interface{}{"summary": "이미 요약됨"}

	out := rt.Summarize(context.Background(), newRequest("요약"), resp)
	if out.Answer != "요약 결과" {
		t.Errorf("Answer = %q, want the original kept for non-listing output", out.Answer)
	}
}

func TestSummarize_KeepsOriginalOnFailure(t *testing.T) {
	rt := agents.NewRuntime(&fakeLLM{}, nil)

	resp := drafted("원시 목록")
	resp.Result = map[string]interface{}{"hits": []interface{}{map[string]interface{}{"path": "a.md"}}}

	out := rt.Summarize(context.Background(), newRequest("요약"), resp)
	if out.Answer != "원시 목록" {
		t.Errorf("Answer = %q, want the original on model failure", out.Answer)
	}
}
