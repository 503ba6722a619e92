// Package handlers exposes the bridge over HTTP: the blocking chat
// endpoint, its SSE streaming twin, the debug JSON-RPC pass-through
// and the health probe.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/a2a"
	"github.com/baseloop/local-mcp-bridge/internal/config"
	"github.com/baseloop/local-mcp-bridge/internal/orchestrator"
	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "local-mcp-bridge"

// Handlers carries the orchestrator and configuration into the HTTP
// layer.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Config       *config.Config
}

// New builds the handler set.
func New(o *orchestrator.Orchestrator, cfg *config.Config) *Handlers {
	return &Handlers{Orchestrator: o, Config: cfg}
}

// Health answers the liveness probe.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"service": ServiceName,
	})
}

// Chat runs the pipeline without streaming and returns the final
// response as one JSON document.
// POST /api/mcp/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}
	resp := h.Orchestrator.Handle(r.Context(), req, a2a.Discard{})
	respondJSON(w, http.StatusOK, resp)
}

// ChatStream runs the pipeline over an SSE channel. The stream always
// terminates with one done frame; an in-flight write failure emits an
// error frame first when the socket still accepts it.
// POST /api/mcp/chat/stream
func (h *Handlers) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emitter := newSSEEmitter(r.Context(), w, flusher)
	h.Orchestrator.Handle(r.Context(), req, emitter)

	if !emitter.Writable() {
		emitter.Emit(a2a.EventError, map[string]interface{}{"error": "stream interrupted"})
	}
	emitter.Emit(a2a.EventDone, map[string]interface{}{"ok": emitter.Writable()})
}

// decodeChatRequest validates the shared chat body. A false return
// means the error response was already written.
func (h *Handlers) decodeChatRequest(w http.ResponseWriter, r *http.Request) (models.ChatRequest, bool) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return req, false
	}
	if req.LocalEndpoint != "" && !validEndpoint(req.LocalEndpoint) {
		respondError(w, http.StatusBadRequest, "localEndpoint is not a valid URL")
		return req, false
	}
	if h.Config.LLM.APIKey == "" {
		respondError(w, http.StatusInternalServerError, "LLM credentials are not configured")
		return req, false
	}
	return req, true
}

// Query is the debug pass-through: one raw JSON-RPC exchange with the
// tool host.
// POST /api/mcp/query
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		respondError(w, http.StatusBadRequest, "method is required")
		return
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = h.Config.MCP.Endpoint
	}
	if !validEndpoint(endpoint) {
		respondError(w, http.StatusBadRequest, "endpoint is not a valid URL")
		return
	}

	client := toolhost.NewClient(endpoint, h.Config.MCP.Token)
	ex, err := client.Call(r.Context(), req.Method, req.Params)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	var body interface{}
	if err := json.Unmarshal(ex.Body, &body); err != nil {
		body = string(ex.Body)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": ex.Status,
		"body":   body,
	})
}

func validEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
