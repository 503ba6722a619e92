// Package args is the argument engine: it turns planner output, user
// prompts and tool schemas into argument maps the tool host accepts.
// Everything here is pure; the same inputs always produce the same
// arguments, and normalisation/sanitisation are idempotent.
package args

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// DefaultOutputPath is injected whenever a tool declares or requires
// an output_path argument and none was planned.
const DefaultOutputPath = "output.md"

// ── Path Normalisation ───────────────────────────────────────

// pathToken matches, in order: a ./ or / prefixed token with a dotted
// extension, two segments separated by a slash (covers trailing-slash
// directories), and a bare name ending in .md.
var pathToken = regexp.MustCompile(`(?:\./|/)[^\s;,"'()\[\]{}]*\.[A-Za-z0-9]+|[^\s/;,"'()\[\]{}]+/[^\s;,"'()\[\]{}]*|[^\s/;,"'()\[\]{}]+\.md`)

var trailingExt = regexp.MustCompile(`\.[A-Za-z0-9]+$`)

// NormalizePaths extracts path-like tokens from free text. When no
// token matches, the text is split on separators; a lone leftover that
// contains a space or carries no path hint (no slash, no extension)
// is rejected rather than passed to the tool host.
func NormalizePaths(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	tokens := pathToken.FindAllString(s, -1)
	if len(tokens) == 0 {
		parts := splitSeparators(s)
		if len(parts) == 1 {
			tok := parts[0]
			if strings.ContainsAny(tok, " \t") || !hasPathHint(tok) {
				return nil
			}
		}
		tokens = parts
	}
	return dedupe(tokens)
}

// NormalizeArray coerces a planned array value into trimmed strings,
// dropping empties and duplicates. Scalars are stringified; nested
// structures are dropped.
func NormalizeArray(v interface{}) []string {
	var items []string
	switch arr := v.(type) {
	case []string:
		items = arr
	case []interface{}:
		for _, it := range arr {
			switch x := it.(type) {
			case string:
				items = append(items, x)
			case float64, int, int64, bool:
				items = append(items, fmt.Sprint(x))
			}
		}
	case string:
		items = []string{arr}
	default:
		return nil
	}

	var out []string
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return dedupe(out)
}

func splitSeparators(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hasPathHint(tok string) bool {
	return strings.Contains(tok, "/") || trailingExt.MatchString(tok)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// coercePathValue normalises a planned paths value of either shape.
func coercePathValue(v interface{}) []string {
	switch x := v.(type) {
	case string:
		return NormalizePaths(x)
	case []interface{}, []string:
		return NormalizeArray(x)
	default:
		return nil
	}
}

// ── Defaults & Initial Construction ──────────────────────────

// DefaultArguments infers baseline arguments from the schema alone.
func DefaultArguments(tool models.ToolDescriptor) map[string]interface{} {
	out := map[string]interface{}{}
	if tool.InputSchema.HasProperty("output_path") {
		out["output_path"] = DefaultOutputPath
	}
	return out
}

func looksLikeRebuildSummary(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "rebuild_summary") {
		return true
	}
	return strings.Contains(n, "rebuild") && strings.Contains(n, "summar")
}

// InitialArguments builds the first argument map for a tool from a
// seed string (usually the routed query). Rules are ordered; the
// first match wins.
func InitialArguments(tool models.ToolDescriptor, seed string) map[string]interface{} {
	schema := tool.InputSchema

	switch {
	case looksLikeRebuildSummary(tool.Name) ||
		(schema.Requires("paths") && schema.Requires("output_path")):
		return map[string]interface{}{
			"paths":       NormalizePaths(seed),
			"output_path": DefaultOutputPath,
		}

	case schema.Requires("paths") && schema.HasProperty("paths"),
		schema.HasProperty("paths"):
		out := map[string]interface{}{"paths": NormalizePaths(seed)}
		if schema.Requires("output_path") {
			out["output_path"] = DefaultOutputPath
		}
		return out

	case schema.Requires("output_path") && schema.QueryKey() == "":
		out := map[string]interface{}{"output_path": DefaultOutputPath}
		for _, req := range schema.Required {
			if req != "output_path" {
				out[req] = seed
				break
			}
		}
		return out

	case schema.QueryKey() != "":
		return map[string]interface{}{schema.QueryKey(): seed}

	default:
		if k := schema.FirstRequired(); k != "" {
			return map[string]interface{}{k: seed}
		}
		if names := schema.PropertyNames(); len(names) > 0 {
			return map[string]interface{}{names[0]: seed}
		}
		return map[string]interface{}{"query": seed}
	}
}

// ── Sanitisation ─────────────────────────────────────────────

// Sanitize reconciles planned arguments with the tool's schema: paths
// are normalised (falling back to the seed, then to the configured
// default paths), output_path is defaulted, declared properties are
// coerced to their schema type, required keys are filled, and a
// query-like key receives the seed when none was set.
func Sanitize(tool models.ToolDescriptor, planned map[string]interface{}, seed string, defaultPaths []string) map[string]interface{} {
	schema := tool.InputSchema
	out := models.CloneArguments(planned)
	if out == nil {
		out = map[string]interface{}{}
	}

	if schema.HasProperty("paths") {
		var paths []string
		for _, key := range []string{"paths", "path", "path_list"} {
			if v, ok := out[key]; ok {
				if paths = coercePathValue(v); len(paths) > 0 {
					break
				}
			}
		}
		if len(paths) == 0 {
			paths = NormalizePaths(seed)
		}
		if len(paths) == 0 {
			paths = append([]string(nil), defaultPaths...)
		}
		if paths == nil {
			paths = []string{}
		}
		out["paths"] = paths
	}

	if schema.HasProperty("output_path") || schema.Requires("output_path") {
		if s, ok := out["output_path"].(string); !ok || strings.TrimSpace(s) == "" {
			out["output_path"] = DefaultOutputPath
		}
	}

	for name, prop := range schema.Properties {
		v, ok := out[name]
		if !ok {
			continue
		}
		switch v.(type) {
		case []interface{}, []string:
			out[name] = NormalizeArray(v)
		case string:
			// already the right shape
		default:
			if prop.Type == "string" {
				out[name] = fmt.Sprint(v)
			}
		}
	}

	for _, req := range schema.Required {
		if _, ok := out[req]; ok {
			continue
		}
		switch req {
		case "paths":
			paths := NormalizePaths(seed)
			if len(paths) == 0 {
				paths = append([]string(nil), defaultPaths...)
			}
			if paths == nil {
				paths = []string{}
			}
			out["paths"] = paths
		case "output_path":
			out["output_path"] = DefaultOutputPath
		default:
			out[req] = seed
		}
	}

	if qk := schema.QueryKey(); qk != "" && !hasQueryValue(out) {
		out[qk] = seed
	}
	return out
}

func hasQueryValue(arguments map[string]interface{}) bool {
	for _, k := range models.QueryKeys {
		if v, ok := arguments[k]; ok {
			if s, isStr := v.(string); !isStr || strings.TrimSpace(s) != "" {
				return true
			}
		}
	}
	return false
}

// ── Discovery Extraction ─────────────────────────────────────

// listKeys are the structuredContent members scanned for path-bearing
// entries, in scan order.
var listKeys = []string{"paths", "files", "results", "hits", "docs", "documents"}

// ExtractPaths harvests path-like strings from a tool-call result:
// the well-known list keys of structuredContent, every value under a
// key containing "path" anywhere in the structure, and the text of
// content[] items. Everything found goes through path normalisation.
func ExtractPaths(result models.CallResult) []string {
	var collected []string

	if sc := result.StructuredContent(); sc != nil {
		for _, key := range listKeys {
			collected = append(collected, harvestValue(sc[key])...)
		}
		collected = append(collected, harvestPathKeys(sc)...)
	}
	for _, item := range result.ContentItems() {
		if text, ok := item["text"].(string); ok {
			collected = append(collected, text)
		}
	}

	var out []string
	for _, c := range collected {
		out = append(out, NormalizePaths(c)...)
	}
	return dedupe(out)
}

func harvestValue(v interface{}) []string {
	var out []string
	switch x := v.(type) {
	case string:
		out = append(out, x)
	case []interface{}:
		for _, it := range x {
			switch e := it.(type) {
			case string:
				out = append(out, e)
			case map[string]interface{}:
				out = append(out, harvestPathKeys(e)...)
			}
		}
	case map[string]interface{}:
		out = append(out, harvestPathKeys(x)...)
	}
	return out
}

// harvestPathKeys walks a decoded JSON object collecting string values
// stored under keys that mention "path".
func harvestPathKeys(m map[string]interface{}) []string {
	var out []string
	for key, v := range m {
		lower := strings.ToLower(key)
		switch x := v.(type) {
		case string:
			if strings.Contains(lower, "path") {
				out = append(out, x)
			}
		case []interface{}:
			if strings.Contains(lower, "path") {
				for _, it := range x {
					if s, ok := it.(string); ok {
						out = append(out, s)
					}
				}
			} else {
				for _, it := range x {
					if inner, ok := it.(map[string]interface{}); ok {
						out = append(out, harvestPathKeys(inner)...)
					}
				}
			}
		case map[string]interface{}:
			out = append(out, harvestPathKeys(x)...)
		}
	}
	return out
}
