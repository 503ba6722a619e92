// Package format converts normalised tool-call results into the
// Markdown blocks the chat client renders. The conversion is
// deterministic: no language model is involved here.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// Markdown section headers. The chat client keys off these literals.
const (
	HeaderResult  = "## 실행 결과"
	HeaderDocs    = "## 문서 목록"
	HeaderSearch  = "## 검색 결과"
	HeaderContent = "## MCP 응답"
)

// Render turns a tool-call result into user-facing Markdown. It works
// through the structured views in preference order: structuredContent
// first, then content[] text items, then a fenced JSON fallback.
func Render(toolName string, result models.CallResult) string {
	if sc := result.StructuredContent(); sc != nil {
		if s := renderStructured(sc); s != "" {
			return s
		}
	}
	if items := result.ContentItems(); len(items) > 0 {
		if s := renderContent(items); s != "" {
			return s
		}
	}
	return renderFallback(toolName, result)
}

func renderStructured(sc map[string]interface{}) string {
	summary, _ := sc["summary"].(string)
	outputPath := stringField(sc, "output_path", "outputPath")

	if summary != "" {
		return resultBlock(outputPath, summary)
	}
	if ok, _ := sc["ok"].(bool); ok && outputPath != "" {
		return resultBlock(outputPath, summary)
	}

	if entries := mapEntries(sc["results"]); len(entries) > 0 {
		return groupedByPath(HeaderResult, entries)
	}
	if block := renderListing(HeaderDocs, sc["docs"]); block != "" {
		return block
	}
	if block := renderListing(HeaderSearch, sc["hits"]); block != "" {
		return block
	}
	return ""
}

func resultBlock(outputPath, summary string) string {
	var b strings.Builder
	b.WriteString(HeaderResult)
	b.WriteString("\n")
	if outputPath != "" {
		fmt.Fprintf(&b, "- output_path: %s\n", outputPath)
	}
	if summary != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(summary))
		b.WriteString("\n")
	}
	return b.String()
}

// renderListing handles docs[] and hits[]: maps are grouped by their
// path field, bare strings become a flat bullet list.
func renderListing(header string, v interface{}) string {
	entries := mapEntries(v)
	if len(entries) > 0 {
		return groupedByPath(header, entries)
	}
	strs := stringEntries(v)
	if len(strs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, s := range strs {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return b.String()
}

func groupedByPath(header string, entries []map[string]interface{}) string {
	order := []string{}
	grouped := map[string][]map[string]interface{}{}
	for _, e := range entries {
		path := stringField(e, "path", "file", "document")
		if path == "" {
			path = "기타"
		}
		if _, seen := grouped[path]; !seen {
			order = append(order, path)
		}
		grouped[path] = append(grouped[path], e)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, path := range order {
		fmt.Fprintf(&b, "\n### %s\n", path)
		for _, e := range grouped[path] {
			b.WriteString(entryBullet(e, path))
		}
	}
	return b.String()
}

func entryBullet(e map[string]interface{}, path string) string {
	title := stringField(e, "title", "name", "text")
	if title == "" {
		title = path
	}
	line := fmt.Sprintf("- %s", title)
	if n, ok := numberField(e, "line"); ok {
		line += fmt.Sprintf(" (line %d)", n)
	}
	if snippet := stringField(e, "snippet"); snippet != "" {
		line += " - " + strings.TrimSpace(snippet)
	}
	return line + "\n"
}

func renderContent(items []map[string]interface{}) string {
	var texts []string
	for _, it := range items {
		if t, ok := it["text"].(string); ok && strings.TrimSpace(t) != "" {
			texts = append(texts, strings.TrimSpace(t))
		}
	}
	if len(texts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(HeaderContent)
	b.WriteString("\n\n")
	for _, t := range texts {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	return b.String()
}

func renderFallback(toolName string, result models.CallResult) string {
	payload := interface{}(nil)
	if res := result.Result(); res != nil {
		payload = res
	} else if result.Parsed != nil {
		payload = result.Parsed
	} else {
		payload = result.Raw
	}

	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		pretty = []byte(fmt.Sprint(payload))
	}
	return fmt.Sprintf("%s - 도구: %s\n```json\n%s\n```\n", HeaderResult, toolName, pretty)
}

// ── field helpers ────────────────────────────────────────────

func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func numberField(m map[string]interface{}, key string) (int, bool) {
	switch n := m[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func stringEntries(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, it := range arr {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func mapEntries(v interface{}) []map[string]interface{} {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, it := range arr {
		if m, ok := it.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
