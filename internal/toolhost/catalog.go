package toolhost

import (
	"regexp"
	"sort"
	"strings"

	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// Catalogue indexes the merged tool list of one bootstrap for
// selection. It is request-scoped and immutable after construction, so
// no locking is needed.
type Catalogue struct {
	tools  []models.ToolDescriptor
	byName map[string]int
}

// NewCatalogue indexes the tools in their merged order. The first
// entry wins when a name repeats.
func NewCatalogue(tools []models.ToolDescriptor) *Catalogue {
	c := &Catalogue{
		tools:  tools,
		byName: make(map[string]int, len(tools)),
	}
	for i, t := range tools {
		if _, dup := c.byName[t.Name]; !dup {
			c.byName[t.Name] = i
		}
	}
	return c
}

// Len returns the number of catalogued tools.
func (c *Catalogue) Len() int { return len(c.tools) }

// Tools returns the catalogued descriptors in merged order.
func (c *Catalogue) Tools() []models.ToolDescriptor { return c.tools }

// Names returns the tool names in merged order.
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name
	}
	return names
}

// Lookup finds a tool by exact name.
func (c *Catalogue) Lookup(name string) (models.ToolDescriptor, bool) {
	i, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return models.ToolDescriptor{}, false
	}
	return c.tools[i], true
}

// ── Selection heuristics ─────────────────────────────────────

// heuristicRules map query intent onto tool-name patterns, in
// preference order.
var heuristicRules = []struct {
	intent *regexp.Regexp
	name   *regexp.Regexp
}{
	{regexp.MustCompile(`(?i)요약|정리|summar`), regexp.MustCompile(`(?i)summar|rebuild`)},
	{regexp.MustCompile(`(?i)검색|찾|search|find|lookup`), regexp.MustCompile(`(?i)search|query|find|lookup`)},
	{regexp.MustCompile(`(?i)목록|문서|리스트|list|docs`), regexp.MustCompile(`(?i)list|docs|index`)},
}

var (
	searchLikeName = regexp.MustCompile(`(?i)search|query|find|lookup`)
	discoveryHint  = regexp.MustCompile(`(?i)search|scan|find|discover|list|index`)
)

// IsSearchLike reports whether a tool name suggests a search, which
// enables the empty-hits retry.
func IsSearchLike(name string) bool {
	return searchLikeName.MatchString(name)
}

// HeuristicBest picks a tool for the query when the planner produced
// none: the first tool whose name matches the query's intent, else the
// first catalogued tool.
func (c *Catalogue) HeuristicBest(query string) (models.ToolDescriptor, bool) {
	if len(c.tools) == 0 {
		return models.ToolDescriptor{}, false
	}
	for _, rule := range heuristicRules {
		if !rule.intent.MatchString(query) {
			continue
		}
		for _, t := range c.tools {
			if rule.name.MatchString(t.Name) {
				return t, true
			}
		}
	}
	return c.tools[0], true
}

// summaryNames are accepted summary-tool names, most specific first.
var summaryNames = []string{"rebuild_summary", "summary", "summarize", "rebuild"}

// SummaryTool finds a summary-capable tool distinct from exclude:
// exact names first, then substring matches.
func (c *Catalogue) SummaryTool(exclude string) (models.ToolDescriptor, bool) {
	for _, want := range summaryNames {
		if t, ok := c.Lookup(want); ok && t.Name != exclude {
			return t, true
		}
	}
	for _, want := range summaryNames {
		for _, t := range c.tools {
			if t.Name == exclude {
				continue
			}
			if strings.Contains(strings.ToLower(t.Name), want) {
				return t, true
			}
		}
	}
	return models.ToolDescriptor{}, false
}

// DiscoveryFallback picks a tool able to harvest paths: its name must
// carry a discovery hint and it must not itself require paths. Tools
// other than exclude are preferred.
func (c *Catalogue) DiscoveryFallback(exclude string) (models.ToolDescriptor, bool) {
	var fallback *models.ToolDescriptor
	for i, t := range c.tools {
		if !discoveryHint.MatchString(t.Name) || t.InputSchema.Requires("paths") {
			continue
		}
		if t.Name != exclude {
			return t, true
		}
		if fallback == nil {
			fallback = &c.tools[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.ToolDescriptor{}, false
}

// ListingTool finds a list_docs-like tool for path repopulation: the
// canonical name, a substring match, then any discovery fallback.
func (c *Catalogue) ListingTool() (models.ToolDescriptor, bool) {
	if t, ok := c.Lookup("list_docs"); ok {
		return t, true
	}
	candidates := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		lower := strings.ToLower(t.Name)
		if strings.Contains(lower, "list") || strings.Contains(lower, "docs") {
			candidates = append(candidates, t.Name)
		}
	}
	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return strings.Contains(candidates[i], "list_docs") && !strings.Contains(candidates[j], "list_docs")
		})
		t, _ := c.Lookup(candidates[0])
		return t, true
	}
	return c.DiscoveryFallback("")
}
