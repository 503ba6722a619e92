package toolhost_test

import (
	"reflect"
	"testing"

	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

func TestManifestURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"http://localhost:9000", "http://localhost:9000/mcp/manifest"},
		{"http://localhost:9000/", "http://localhost:9000/mcp/manifest"},
		{"http://localhost:9000/api/mcp/chat", "http://localhost:9000/mcp/manifest"},
		{"http://localhost:9000/api/mcp/chat/", "http://localhost:9000/mcp/manifest"},
		{"http://localhost:9000/mcp", "http://localhost:9000/mcp/manifest"},
		{"http://localhost:9000/v1/mcp/", "http://localhost:9000/v1/mcp/manifest"},
		{"http://localhost:9000/rpc", "http://localhost:9000/rpc/manifest"},
		{"https://tools.example.com/rpc?token=x#frag", "https://tools.example.com/rpc/manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := toolhost.ManifestURL(tt.endpoint)
			if err != nil {
				t.Fatalf("ManifestURL(%q) error = %v", tt.endpoint, err)
			}
			if got != tt.want {
				t.Errorf("ManifestURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestManifestURL_Invalid(t *testing.T) {
	for _, endpoint := range []string{"", "localhost:9000/mcp", "/just/a/path", "://bad"} {
		if _, err := toolhost.ManifestURL(endpoint); err == nil {
			t.Errorf("ManifestURL(%q) error = nil, want error", endpoint)
		}
	}
}

func strSchema(props []string, required ...string) models.InputSchema {
	s := models.InputSchema{Type: "object", Properties: map[string]models.Property{}, Required: required}
	for _, p := range props {
		s.Properties[p] = models.Property{Type: "string"}
	}
	return s
}

func TestMergeTools_ListEntryWins(t *testing.T) {
	manifest := []models.ToolDescriptor{
		{Name: "search", Description: "from manifest", InputSchema: strSchema([]string{"query"}, "query")},
		{Name: "list_docs", Description: "manifest only"},
	}
	listed := []models.ToolDescriptor{
		{Name: "search", Description: "from list", InputSchema: models.InputSchema{
			Properties: map[string]models.Property{
				"query": {Type: "string"},
				"limit": {Type: "number"},
			},
		}},
		{Name: "rebuild_summary", InputSchema: strSchema([]string{"paths", "output_path"}, "paths", "output_path")},
	}

	merged := toolhost.MergeTools(manifest, listed)
	if got, want := len(merged), 3; got != want {
		t.Fatalf("merged length = %d, want %d", got, want)
	}

	search := merged[0]
	if search.Description != "from list" {
		t.Errorf("search.Description = %q, want %q", search.Description, "from list")
	}
	// properties are replaced wholesale, required survives from the manifest
	if !search.InputSchema.HasProperty("limit") {
		t.Error("merged schema lost the list entry's limit property")
	}
	if !search.InputSchema.Requires("query") {
		t.Error("merged schema lost the manifest's required list")
	}
	if search.InputSchema.Type != "object" {
		t.Errorf("merged schema type = %q, want %q", search.InputSchema.Type, "object")
	}

	if merged[1].Name != "list_docs" || merged[1].Description != "manifest only" {
		t.Errorf("manifest-only tool mangled: %+v", merged[1])
	}
	if merged[2].Name != "rebuild_summary" {
		t.Errorf("list-only tool not appended, got %q", merged[2].Name)
	}
}

func TestMergeTools_EmptyManifest(t *testing.T) {
	listed := []models.ToolDescriptor{{Name: "search"}, {Name: "list_docs"}}
	merged := toolhost.MergeTools(nil, listed)
	if !reflect.DeepEqual(merged, listed) {
		t.Errorf("MergeTools(nil, listed) = %+v, want listed unchanged", merged)
	}
}

func TestMergeTools_DropsUnnamed(t *testing.T) {
	manifest := []models.ToolDescriptor{{Name: "search"}, {Description: "nameless"}}
	listed := []models.ToolDescriptor{{Name: "  "}, {Name: "list_docs"}}
	merged := toolhost.MergeTools(manifest, listed)

	want := []string{"search", "list_docs"}
	var got []string
	for _, tool := range merged {
		got = append(got, tool.Name)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged names = %v, want %v", got, want)
	}
}

func TestMergeTools_Associative(t *testing.T) {
	a := []models.ToolDescriptor{
		{Name: "search", Description: "a", InputSchema: strSchema([]string{"query"}, "query")},
		{Name: "list_docs", Description: "a"},
	}
	b := []models.ToolDescriptor{
		{Name: "search", Description: "b"},
		{Name: "rebuild_summary", Description: "b"},
	}
	c := []models.ToolDescriptor{
		{Name: "rebuild_summary", Description: "c", InputSchema: strSchema([]string{"paths"}, "paths")},
		{Name: "sync_status", Description: "c"},
	}

	left := toolhost.MergeTools(toolhost.MergeTools(a, b), c)
	right := toolhost.MergeTools(a, toolhost.MergeTools(b, c))
	if !reflect.DeepEqual(left, right) {
		t.Errorf("merge not associative:\nleft  = %+v\nright = %+v", left, right)
	}
}
