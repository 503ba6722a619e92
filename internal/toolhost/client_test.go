package toolhost_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/baseloop/local-mcp-bridge/internal/toolhost"
)

func newHost(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

type rpcCall struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
	ID     interface{}            `json:"id"`
}

func decodeRPC(t *testing.T, r *http.Request) rpcCall {
	t.Helper()
	var call rpcCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		t.Fatalf("decode rpc request: %v", err)
	}
	return call
}

func writeRPC(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"result":  result,
		"id":      id,
	})
}

func TestInitialize_Handshake(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		call := decodeRPC(t, r)
		if call.Method != "initialize" {
			t.Errorf("method = %q, want initialize", call.Method)
		}
		if call.Params["protocolVersion"] != toolhost.ProtocolVersion {
			t.Errorf("protocolVersion = %v, want %q", call.Params["protocolVersion"], toolhost.ProtocolVersion)
		}
		if _, ok := call.Params["capabilities"]; !ok {
			t.Error("capabilities missing from initialize params")
		}
		writeRPC(w, call.ID, map[string]interface{}{"protocolVersion": toolhost.ProtocolVersion})
	})

	client := toolhost.NewClient(srv.URL, "sekrit")
	legacy, status, err := client.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if legacy {
		t.Error("legacy = true, want false")
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
}

func TestInitialize_404MeansLegacy(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	legacy, status, err := toolhost.NewClient(srv.URL, "").Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !legacy {
		t.Error("legacy = false, want true")
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}

func TestInitialize_SurfacesHostMessage(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "host exploded"},
		})
	})

	_, _, err := toolhost.NewClient(srv.URL, "").Initialize(context.Background())
	if err == nil {
		t.Fatal("Initialize() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "host exploded") {
		t.Errorf("error %q does not carry the host message", err)
	}
}

func TestInitialize_RejectsNonRPCBody(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"hello": "world"})
	})

	_, _, err := toolhost.NewClient(srv.URL, "").Initialize(context.Background())
	if err == nil {
		t.Fatal("Initialize() error = nil, want failure on malformed envelope")
	}
}

func TestLegacyChat(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode legacy body: %v", err)
		}
		if body["prompt"] != "안녕" {
			t.Errorf("prompt = %v, want 안녕", body["prompt"])
		}
		if _, ok := body["conversation"]; !ok {
			t.Error("conversation missing from legacy body")
		}
		json.NewEncoder(w).Encode(map[string]string{"answer": "네, 안녕하세요"})
	})

	answer, status, err := toolhost.NewClient(srv.URL, "").LegacyChat(context.Background(), "안녕", nil)
	if err != nil {
		t.Fatalf("LegacyChat() error = %v", err)
	}
	if answer != "네, 안녕하세요" {
		t.Errorf("answer = %q, want the host reply", answer)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
}

func TestLegacyChat_PlainTextReply(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain reply\n"))
	})

	answer, _, err := toolhost.NewClient(srv.URL, "").LegacyChat(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("LegacyChat() error = %v", err)
	}
	if answer != "plain reply" {
		t.Errorf("answer = %q, want %q", answer, "plain reply")
	}
}

func TestListTools_DropsUnnamed(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		call := decodeRPC(t, r)
		writeRPC(w, call.ID, map[string]interface{}{
			"tools": []map[string]interface{}{
				{"name": "search"},
				{"description": "nameless"},
			},
		})
	})

	tools, status, err := toolhost.NewClient(srv.URL, "").ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if len(tools) != 1 || tools[0].Name != "search" {
		t.Errorf("tools = %+v, want the single named entry", tools)
	}
}

func TestCallTool_NormalisesResult(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		call := decodeRPC(t, r)
		if call.Method != "tools/call" {
			t.Errorf("method = %q, want tools/call", call.Method)
		}
		if call.Params["name"] != "rebuild_summary" {
			t.Errorf("tool name = %v, want rebuild_summary", call.Params["name"])
		}
		args, _ := call.Params["arguments"].(map[string]interface{})
		if args == nil || args["output_path"] != "output.md" {
			t.Errorf("arguments = %v, want output_path output.md", call.Params["arguments"])
		}
		writeRPC(w, call.ID, map[string]interface{}{
			"structuredContent": map[string]interface{}{"summary": "요약 완료"},
			"content":           []map[string]interface{}{{"type": "text", "text": "요약 완료"}},
		})
	})

	res, err := toolhost.NewClient(srv.URL, "").CallTool(context.Background(), "rebuild_summary", map[string]interface{}{
		"paths":       []string{"notes/a.md"},
		"output_path": "output.md",
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.Failed() {
		t.Fatalf("Failed() = true for a clean call: %+v", res)
	}
	sc := res.StructuredContent()
	if sc == nil || sc["summary"] != "요약 완료" {
		t.Errorf("StructuredContent() = %v, want the summary", sc)
	}
	if items := res.ContentItems(); len(items) != 1 {
		t.Errorf("ContentItems() length = %d, want 1", len(items))
	}
}

func TestCallTool_HostError(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		call := decodeRPC(t, r)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"error":   map[string]interface{}{"code": -32602, "message": "invalid params"},
			"id":      call.ID,
		})
	})

	res, err := toolhost.NewClient(srv.URL, "").CallTool(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !res.Failed() {
		t.Error("Failed() = false, want true for an error envelope")
	}
	if res.ErrMessage() != "invalid params" {
		t.Errorf("ErrMessage() = %q, want %q", res.ErrMessage(), "invalid params")
	}
	if res.EffectiveStatus() < 400 {
		t.Errorf("EffectiveStatus() = %d, want an error status", res.EffectiveStatus())
	}
}

func TestCallTool_NonJSONBody(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream is down"))
	})

	res, err := toolhost.NewClient(srv.URL, "").CallTool(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.Parsed != nil {
		t.Errorf("Parsed = %v, want nil for a non-JSON body", res.Parsed)
	}
	if res.Raw != "upstream is down" {
		t.Errorf("Raw = %q, want the body preserved", res.Raw)
	}
	if !res.Failed() || res.Status != http.StatusBadGateway {
		t.Errorf("status = %d failed = %v, want 502 failure", res.Status, res.Failed())
	}
}

func TestBootstrap_MergesManifestAndList(t *testing.T) {
	var posts []string
	var phases []string

	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Path != "/mcp/manifest" {
				t.Errorf("manifest path = %q, want /mcp/manifest", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"tools": []map[string]interface{}{
					{
						"name":        "search",
						"description": "from manifest",
						"inputSchema": map[string]interface{}{
							"type":       "object",
							"properties": map[string]interface{}{"query": map[string]string{"type": "string"}},
							"required":   []string{"query"},
						},
					},
				},
			})
			return
		}
		call := decodeRPC(t, r)
		posts = append(posts, call.Method)
		switch call.Method {
		case "initialize":
			writeRPC(w, call.ID, map[string]interface{}{"protocolVersion": toolhost.ProtocolVersion})
		case "tools/list":
			writeRPC(w, call.ID, map[string]interface{}{
				"tools": []map[string]interface{}{
					{"name": "search", "description": "from list"},
					{"name": "list_docs"},
				},
			})
		default:
			t.Errorf("unexpected method %q", call.Method)
		}
	})

	client := toolhost.NewClient(srv.URL, "")
	mc := client.Bootstrap(context.Background(), func(phase string, detail map[string]interface{}) {
		phases = append(phases, phase)
	})

	if !mc.OK {
		t.Fatalf("Bootstrap not OK, error = %q", mc.Error)
	}
	if mc.Legacy {
		t.Error("Legacy = true for a JSON-RPC host")
	}
	if !mc.ManifestAttempt {
		t.Error("ManifestAttempt = false, want true")
	}
	if got, want := posts, []string{"initialize", "tools/list"}; !reflect.DeepEqual(got, want) {
		t.Errorf("posted methods = %v, want %v", got, want)
	}
	wantPhases := []string{toolhost.PhaseInitialize, toolhost.PhaseManifestFetch, toolhost.PhaseToolsList}
	if !reflect.DeepEqual(phases, wantPhases) {
		t.Errorf("phases = %v, want %v", phases, wantPhases)
	}

	if len(mc.Tools) != 2 {
		t.Fatalf("tool count = %d, want 2", len(mc.Tools))
	}
	search := mc.Tools[0]
	if search.Description != "from list" {
		t.Errorf("search.Description = %q, want the list entry to win", search.Description)
	}
	if !search.InputSchema.HasProperty("query") || !search.InputSchema.Requires("query") {
		t.Error("manifest schema lost when the list entry carries none")
	}
	if mc.Tools[1].Name != "list_docs" {
		t.Errorf("second tool = %q, want list_docs", mc.Tools[1].Name)
	}
}

func TestBootstrap_LegacyStopsAfterHandshake(t *testing.T) {
	posts := 0
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		posts++
		http.NotFound(w, r)
	})

	mc := toolhost.NewClient(srv.URL, "").Bootstrap(context.Background(), nil)
	if !mc.Legacy {
		t.Error("Legacy = false, want true")
	}
	if mc.OK {
		t.Error("OK = true for a legacy host")
	}
	if mc.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", mc.Status, http.StatusNotFound)
	}
	if posts != 1 {
		t.Errorf("upstream posts = %d, want the handshake only", posts)
	}
}

func TestBootstrap_ManifestFailureIsNonFatal(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		call := decodeRPC(t, r)
		switch call.Method {
		case "initialize":
			writeRPC(w, call.ID, map[string]interface{}{"protocolVersion": toolhost.ProtocolVersion})
		case "tools/list":
			writeRPC(w, call.ID, map[string]interface{}{
				"tools": []map[string]interface{}{{"name": "search"}},
			})
		}
	})

	mc := toolhost.NewClient(srv.URL, "").Bootstrap(context.Background(), nil)
	if !mc.OK {
		t.Fatalf("Bootstrap not OK after manifest miss, error = %q", mc.Error)
	}
	if len(mc.Tools) != 1 || mc.Tools[0].Name != "search" {
		t.Errorf("tools = %+v, want the listed inventory", mc.Tools)
	}
}

func TestBootstrap_ToolsListFailure(t *testing.T) {
	srv := newHost(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		call := decodeRPC(t, r)
		if call.Method == "initialize" {
			writeRPC(w, call.ID, map[string]interface{}{"protocolVersion": toolhost.ProtocolVersion})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "inventory offline"})
	})

	mc := toolhost.NewClient(srv.URL, "").Bootstrap(context.Background(), nil)
	if mc.OK {
		t.Error("OK = true after tools/list failure")
	}
	if !strings.Contains(mc.Error, "inventory offline") {
		t.Errorf("Error = %q, want the host message", mc.Error)
	}
	if mc.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", mc.Status, http.StatusInternalServerError)
	}
}
