package toolhost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// ManifestURL derives the conventional manifest location from a host
// endpoint. Chat-style endpoints (bare root or /api/mcp/chat) publish
// it under /mcp/manifest; every other path expects it alongside the
// JSON-RPC path.
func ManifestURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("derive manifest url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("derive manifest url: invalid endpoint %q", endpoint)
	}

	path := strings.TrimRight(u.Path, "/")
	if path == "" || path == "/api/mcp/chat" {
		u.Path = "/mcp/manifest"
	} else {
		u.Path = path + "/manifest"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// FetchManifest GETs the manifest document and decodes its tool
// descriptors. Failures are reported to the caller but never abort the
// bootstrap.
func (c *Client) FetchManifest(ctx context.Context, manifestURL string) ([]models.ToolDescriptor, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("manifest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("manifest fetch failed (%d)", resp.StatusCode)
	}

	var doc struct {
		Tools []models.ToolDescriptor `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode manifest: %w", err)
	}
	return dropUnnamed(doc.Tools), resp.StatusCode, nil
}

// MergeTools folds the tools/list inventory over the manifest
// descriptors. Per name the list entry wins: non-empty scalar fields
// override and the input schema is shallow-merged one level deep, so a
// properties map present on the list entry replaces the manifest's
// wholesale. List entries the manifest does not know are appended in
// their own order.
func MergeTools(manifest, listed []models.ToolDescriptor) []models.ToolDescriptor {
	manifest = dropUnnamed(manifest)
	listed = dropUnnamed(listed)
	if len(manifest) == 0 {
		return listed
	}

	byName := make(map[string]models.ToolDescriptor, len(listed))
	for _, t := range listed {
		byName[t.Name] = t
	}

	merged := make([]models.ToolDescriptor, 0, len(manifest)+len(listed))
	seen := make(map[string]bool, len(manifest))
	for _, m := range manifest {
		seen[m.Name] = true
		if l, ok := byName[m.Name]; ok {
			merged = append(merged, overlayTool(m, l))
			continue
		}
		merged = append(merged, m)
	}
	for _, l := range listed {
		if !seen[l.Name] {
			merged = append(merged, l)
		}
	}
	return merged
}

// overlayTool applies the tools/list entry on top of the manifest
// entry for the same name.
func overlayTool(base, over models.ToolDescriptor) models.ToolDescriptor {
	out := base
	if over.Description != "" {
		out.Description = over.Description
	}
	if over.InputSchema.Type != "" {
		out.InputSchema.Type = over.InputSchema.Type
	}
	if over.InputSchema.Properties != nil {
		out.InputSchema.Properties = over.InputSchema.Properties
	}
	if over.InputSchema.Required != nil {
		out.InputSchema.Required = over.InputSchema.Required
	}
	return out
}

func dropUnnamed(tools []models.ToolDescriptor) []models.ToolDescriptor {
	var named []models.ToolDescriptor
	for _, t := range tools {
		if strings.TrimSpace(t.Name) != "" {
			named = append(named, t)
		}
	}
	return named
}
