// Package toolhost implements the JSON-RPC 2.0 client side of the
// local tool host protocol.
//
// A Client is bound to one host endpoint and drives the standard
// bootstrap:
//   - initialize handshake, downgrading to legacy mode on 404
//   - manifest fetch at the conventional URL (non-fatal)
//   - tools/list inventory, merged over the manifest descriptors
//   - tools/call invocation with response normalisation
package toolhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/jsonrpc"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// ProtocolVersion is sent in the initialize handshake.
const ProtocolVersion = "2024-11-05"

// Bootstrap phases reported through PhaseFunc.
const (
	PhaseInitialize    = "initialize"
	PhaseManifestFetch = "manifest_fetch"
	PhaseToolsList     = "tools_list"
)

// PhaseFunc receives bootstrap progress. Detail payloads are
// scalar-only so they can be re-serialised onto an event stream.
// A nil PhaseFunc is valid and reports nothing.
type PhaseFunc func(phase string, detail map[string]interface{})

func (f PhaseFunc) report(phase string, detail map[string]interface{}) {
	if f != nil {
		f(phase, detail)
	}
}

// Client talks JSON-RPC 2.0 to a single tool-host endpoint. Clients are
// request-scoped: build one per orchestration with the effective
// endpoint and discard it afterwards.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient builds a client for the endpoint. The bearer token may be
// empty, in which case no Authorization header is sent.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Endpoint returns the host URL this client is bound to.
func (c *Client) Endpoint() string { return c.endpoint }

// Exchange captures one HTTP round trip with the host: the status, the
// raw body and, when the body is a well-formed JSON-RPC envelope, the
// decoded reply.
type Exchange struct {
	Status int
	Body   []byte
	Reply  *jsonrpc.Response
}

// Call posts one JSON-RPC request to the endpoint. The returned error
// covers transport failures only; HTTP status and envelope problems
// stay on the Exchange for the caller to interpret.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (*Exchange, error) {
	body, err := json.Marshal(jsonrpc.NewRequest(method, params))
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	return c.post(ctx, method, body)
}

func (c *Client) post(ctx context.Context, label string, body []byte) (*Exchange, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", label, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", label, err)
	}

	ex := &Exchange{Status: resp.StatusCode, Body: respBody}
	if reply, err := jsonrpc.ParseResponse(respBody); err == nil && reply.ValidEnvelope() {
		ex.Reply = reply
	}
	return ex, nil
}

// ── Handshake ────────────────────────────────────────────────

// Initialize performs the JSON-RPC handshake. A 404 reply downgrades
// the session to legacy mode, where the host accepts plain chat posts
// instead of JSON-RPC methods. Any other failure surfaces with the
// host's message when one is present.
func (c *Client) Initialize(ctx context.Context) (legacy bool, status int, err error) {
	ex, err := c.Call(ctx, "initialize", map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]interface{}{},
	})
	if err != nil {
		return false, 0, err
	}
	if ex.Status == http.StatusNotFound {
		log.Debug().Str("endpoint", c.endpoint).Msg("initialize returned 404, switching to legacy mode")
		return true, ex.Status, nil
	}
	if ex.Status >= 400 || ex.Reply == nil {
		return false, ex.Status, fmt.Errorf("initialize failed (%d): %s", ex.Status, hostMessage(ex.Body))
	}
	if ex.Reply.Error != nil {
		return false, ex.Status, fmt.Errorf("initialize failed: %s", ex.Reply.Error.Message)
	}
	return false, ex.Status, nil
}

// LegacyChat posts the bare prompt to a host that predates the JSON-RPC
// surface. The host's reply text is the final answer.
func (c *Client) LegacyChat(ctx context.Context, prompt string, conversation []models.ChatMessage) (string, int, error) {
	if conversation == nil {
		conversation = []models.ChatMessage{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"prompt":       prompt,
		"conversation": conversation,
	})
	if err != nil {
		return "", 0, fmt.Errorf("encode legacy request: %w", err)
	}
	ex, err := c.post(ctx, "legacy chat", body)
	if err != nil {
		return "", 0, err
	}
	return legacyAnswer(ex.Body), ex.Status, nil
}

// legacyAnswer digs a usable text out of a legacy host reply: common
// answer fields of a JSON object, else the raw body.
func legacyAnswer(body []byte) string {
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		for _, key := range []string{"answer", "response", "text", "message", "content"} {
			if s, ok := decoded[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// ── Discovery ────────────────────────────────────────────────

// ListTools fetches the host inventory via tools/list. Unnamed entries
// are dropped.
func (c *Client) ListTools(ctx context.Context) ([]models.ToolDescriptor, int, error) {
	ex, err := c.Call(ctx, "tools/list", map[string]interface{}{})
	if err != nil {
		return nil, 0, err
	}
	if ex.Status >= 400 {
		return nil, ex.Status, fmt.Errorf("tools/list failed (%d): %s", ex.Status, hostMessage(ex.Body))
	}
	if ex.Reply == nil {
		return nil, ex.Status, fmt.Errorf("tools/list returned a non-JSON-RPC body")
	}
	if ex.Reply.Error != nil {
		return nil, ex.Status, fmt.Errorf("tools/list failed: %s", ex.Reply.Error.Message)
	}

	var result struct {
		Tools []models.ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(ex.Reply.Result, &result); err != nil {
		return nil, ex.Status, fmt.Errorf("decode tools/list result: %w", err)
	}
	return dropUnnamed(result.Tools), ex.Status, nil
}

// ── Invocation ───────────────────────────────────────────────

// CallTool invokes a named tool. Transport failures return an error;
// host-level failures (HTTP >= 400, error objects of either shape)
// come back inside the CallResult for the agents to surface.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*models.CallResult, error) {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}
	ex, err := c.Call(ctx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("tool", name).Int("status", ex.Status).Msg("tools/call completed")

	res := &models.CallResult{Status: ex.Status, Raw: string(ex.Body)}
	var parsed map[string]interface{}
	if err := json.Unmarshal(ex.Body, &parsed); err == nil {
		res.Parsed = parsed
	}
	return res, nil
}

// ── Bootstrap ────────────────────────────────────────────────

// Bootstrap runs the standard discovery sequence: initialize, manifest
// fetch, tools/list, merge. It always returns a context; failures are
// folded into it so callers degrade instead of aborting. In legacy mode
// the sequence stops after the handshake, leaving exactly one POST on
// the wire.
func (c *Client) Bootstrap(ctx context.Context, onPhase PhaseFunc) *models.ManifestContext {
	mc := &models.ManifestContext{TargetURL: c.endpoint}

	onPhase.report(PhaseInitialize, map[string]interface{}{"endpoint": c.endpoint})
	legacy, status, err := c.Initialize(ctx)
	mc.Status = status
	if err != nil {
		mc.Error = err.Error()
		return mc
	}
	if legacy {
		mc.Legacy = true
		return mc
	}

	var manifestTools []models.ToolDescriptor
	if manifestURL, err := ManifestURL(c.endpoint); err == nil {
		mc.ManifestAttempt = true
		onPhase.report(PhaseManifestFetch, map[string]interface{}{"url": manifestURL})
		tools, mStatus, mErr := c.FetchManifest(ctx, manifestURL)
		if mErr != nil {
			log.Debug().Err(mErr).Int("status", mStatus).Str("url", manifestURL).
				Msg("manifest fetch failed, continuing without it")
		} else {
			manifestTools = tools
		}
	}

	onPhase.report(PhaseToolsList, map[string]interface{}{"manifestTools": len(manifestTools)})
	listed, lStatus, lErr := c.ListTools(ctx)
	if lStatus != 0 {
		mc.Status = lStatus
	}
	if lErr != nil {
		mc.Error = lErr.Error()
		mc.Tools = manifestTools
		return mc
	}

	mc.Tools = MergeTools(manifestTools, listed)
	mc.OK = true
	return mc
}

// hostMessage digs a human-readable failure reason out of an error
// body: JSON-RPC error.message, then common top-level fields, then the
// body itself.
func hostMessage(body []byte) string {
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		if e, ok := decoded["error"].(map[string]interface{}); ok {
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if s, ok := decoded["error"].(string); ok && s != "" {
			return s
		}
		if msg, ok := decoded["message"].(string); ok && msg != "" {
			return msg
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "no response body"
	}
	if runes := []rune(trimmed); len(runes) > 200 {
		return string(runes[:200])
	}
	return trimmed
}
