package format_test

import (
	"strings"
	"testing"

	"github.com/baseloop/local-mcp-bridge/internal/format"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

func structured(sc map[string]interface{}) models.CallResult {
	return models.CallResult{
		Status: 200,
		Parsed: map[string]interface{}{
			"result": map[string]interface{}{"structuredContent": sc},
		},
	}
}

func TestRender_Summary(t *testing.T) {
	res := structured(map[string]interface{}{
		"summary":     "오늘 노트 3건을 요약했습니다.",
		"output_path": "output.md",
	})
	got := format.Render("rebuild_summary", res)

	if !strings.HasPrefix(got, "## 실행 결과") {
		t.Errorf("Render() = %q, want 실행 결과 header", got)
	}
	if !strings.Contains(got, "- output_path: output.md") {
		t.Errorf("Render() missing output_path line: %q", got)
	}
	if !strings.Contains(got, "오늘 노트 3건을 요약했습니다.") {
		t.Errorf("Render() missing summary text: %q", got)
	}
}

func TestRender_OkWithOutputPath(t *testing.T) {
	res := structured(map[string]interface{}{
		"ok":          true,
		"output_path": "output.md",
	})
	got := format.Render("rebuild_summary", res)
	if !strings.HasPrefix(got, "## 실행 결과") {
		t.Errorf("Render() = %q, want 실행 결과 header", got)
	}
	if !strings.Contains(got, "- output_path: output.md") {
		t.Errorf("Render() missing output_path line: %q", got)
	}
}

func TestRender_ResultsGroupedByPath(t *testing.T) {
	res := structured(map[string]interface{}{
		"results": []interface{}{
			map[string]interface{}{"path": "notes/a.md", "title": "알파", "line": float64(3), "snippet": "첫 줄"},
			map[string]interface{}{"path": "notes/a.md", "title": "베타"},
			map[string]interface{}{"path": "notes/b.md", "title": "감마"},
		},
	})
	got := format.Render("search", res)

	if !strings.HasPrefix(got, "## 실행 결과") {
		t.Errorf("Render() header = %q", got)
	}
	if !strings.Contains(got, "### notes/a.md") || !strings.Contains(got, "### notes/b.md") {
		t.Errorf("Render() missing path groups: %q", got)
	}
	if !strings.Contains(got, "- 알파 (line 3) - 첫 줄") {
		t.Errorf("Render() entry bullet = %q", got)
	}
	if strings.Index(got, "### notes/a.md") > strings.Index(got, "### notes/b.md") {
		t.Errorf("Render() group order not preserved: %q", got)
	}
}

func TestRender_DocsAndHits(t *testing.T) {
	docs := structured(map[string]interface{}{
		"docs": []interface{}{
			map[string]interface{}{"path": "notes/a.md", "title": "A"},
		},
	})
	if got := format.Render("list_docs", docs); !strings.HasPrefix(got, "## 문서 목록") {
		t.Errorf("Render(docs) = %q, want 문서 목록 header", got)
	}

	hits := structured(map[string]interface{}{
		"hits": []interface{}{
			map[string]interface{}{"path": "notes/b.md", "title": "B", "snippet": "React"},
		},
	})
	if got := format.Render("search", hits); !strings.HasPrefix(got, "## 검색 결과") {
		t.Errorf("Render(hits) = %q, want 검색 결과 header", got)
	}

	flat := structured(map[string]interface{}{
		"docs": []interface{}{"notes/a.md", "notes/b.md"},
	})
	got := format.Render("list_docs", flat)
	if !strings.Contains(got, "- notes/a.md") || !strings.Contains(got, "- notes/b.md") {
		t.Errorf("Render(flat docs) = %q, want plain bullets", got)
	}
}

func TestRender_ContentItems(t *testing.T) {
	res := models.CallResult{
		Status: 200,
		Parsed: map[string]interface{}{
			"result": map[string]interface{}{
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": "첫 번째 응답"},
					map[string]interface{}{"type": "text", "text": "두 번째 응답"},
				},
			},
		},
	}
	got := format.Render("anything", res)
	if !strings.HasPrefix(got, "## MCP 응답") {
		t.Errorf("Render(content) = %q, want MCP 응답 header", got)
	}
	if !strings.Contains(got, "- 첫 번째 응답") || !strings.Contains(got, "- 두 번째 응답") {
		t.Errorf("Render(content) bullets missing: %q", got)
	}
}

func TestRender_FallbackFencedJSON(t *testing.T) {
	res := models.CallResult{
		Status: 200,
		Parsed: map[string]interface{}{
			"result": map[string]interface{}{"weird": map[string]interface{}{"shape": true}},
		},
	}
	got := format.Render("mystery_tool", res)
	if !strings.HasPrefix(got, "## 실행 결과 - 도구: mystery_tool") {
		t.Errorf("Render(fallback) header = %q", got)
	}
	if !strings.Contains(got, "```json") || !strings.Contains(got, "\"weird\"") {
		t.Errorf("Render(fallback) = %q, want fenced JSON", got)
	}
}
