package models

import (
	"encoding/json"
	"sort"
)

// ── Routes ───────────────────────────────────────────────────

// Route is the Plan Agent's decision: invoke a tool on the local
// tool host, or answer directly with the language model.
type Route string

const (
	RouteLocalMCP Route = "local_mcp"
	RouteChatOnly Route = "chat_only"
)

// Missing-input sentinels carried on AgentResponse.Missing when
// RequiresInput is set.
const (
	MissingPaths          = "paths"
	MissingExecutionPlan  = "execution_plan"
	MissingWorkspaceState = "workspace_state"
)

// ── Tool Descriptors ─────────────────────────────────────────

// Property is one entry of a tool input schema's "properties" map.
type Property struct {
	Type  string                 `json:"type,omitempty"`
	Items map[string]interface{} `json:"items,omitempty"`
}

// InputSchema is the JSON-schema-shaped argument declaration of a tool:
// a property map plus an ordered list of required property names.
type InputSchema struct {
	Type       string              `json:"type,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// QueryKeys are the property names treated as free-text inputs, in
// preference order.
var QueryKeys = []string{"query", "input", "text", "prompt", "q", "question", "content"}

// HasProperty reports whether the schema declares the named property.
func (s InputSchema) HasProperty(name string) bool {
	_, ok := s.Properties[name]
	return ok
}

// Requires reports whether the named property is in the required list.
func (s InputSchema) Requires(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// QueryKey returns the first declared query-like property, or "".
func (s InputSchema) QueryKey() string {
	for _, k := range QueryKeys {
		if s.HasProperty(k) {
			return k
		}
	}
	return ""
}

// FirstRequired returns the first required property name, or "".
func (s InputSchema) FirstRequired() string {
	if len(s.Required) == 0 {
		return ""
	}
	return s.Required[0]
}

// PropertyNames returns the declared property names in sorted order so
// callers that need "the first property" behave deterministically.
func (s InputSchema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AsMap rebuilds the schema as a generic JSON object. Used to compile
// the schema for advisory argument validation.
func (s InputSchema) AsMap() map[string]interface{} {
	m := map[string]interface{}{}
	if s.Type != "" {
		m["type"] = s.Type
	} else {
		m["type"] = "object"
	}
	if len(s.Properties) > 0 {
		props := map[string]interface{}{}
		for name, p := range s.Properties {
			prop := map[string]interface{}{}
			if p.Type != "" {
				prop["type"] = p.Type
			}
			if len(p.Items) > 0 {
				prop["items"] = p.Items
			}
			props[name] = prop
		}
		m["properties"] = props
	}
	if len(s.Required) > 0 {
		req := make([]interface{}, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		m["required"] = req
	}
	return m
}

// ToolDescriptor advertises one callable tool on the tool host.
// A descriptor is valid iff Name is non-empty; unnamed entries are
// dropped when manifest and tools/list results are merged.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema,omitempty"`
}

// ── Manifest Context ─────────────────────────────────────────

// ManifestContext is the planning-time snapshot of the tool host:
// whether it answered, which URL was targeted, and the merged tool
// list. Produced once per request and immutable afterwards. Legacy is
// set when initialize came back 404, meaning the host only understands
// plain chat posts and the JSON-RPC methods must not be retried.
type ManifestContext struct {
	OK              bool             `json:"ok"`
	Status          int              `json:"status"`
	TargetURL       string           `json:"targetUrl"`
	Tools           []ToolDescriptor `json:"tools"`
	ManifestAttempt bool             `json:"manifestAttempt"`
	Legacy          bool             `json:"legacy,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// ── Execution Plan ───────────────────────────────────────────

// DiscoverySpec names a secondary tool used to harvest paths for the
// primary tool before it runs.
type DiscoverySpec struct {
	Tool          string                 `json:"tool"`
	ToolArguments map[string]interface{} `json:"toolArguments,omitempty"`
	ExpectedPaths []string               `json:"expected_paths,omitempty"`
}

// ExecutionPlan is the Plan Agent's output for the local_mcp route.
// An empty Tool means the execution step cannot proceed and must
// surface a requiresInput response.
type ExecutionPlan struct {
	Tool          string                 `json:"tool,omitempty"`
	ToolArguments map[string]interface{} `json:"toolArguments,omitempty"`
	RoutedQuery   string                 `json:"routedQuery"`
	Explanation   string                 `json:"explanation,omitempty"`
	Discovery     *DiscoverySpec         `json:"discovery,omitempty"`
	Workflow      *WorkflowSpec          `json:"workflow,omitempty"`
}

// ── Workflow ─────────────────────────────────────────────────

// WorkflowSchemaStepsV1 identifies the declarative sequential-step
// workflow shape understood by the runner.
const WorkflowSchemaStepsV1 = "workflow.steps.v1"

// Workflow type markers.
const WorkflowTypeGitHubPR = "github_pr"

// When-clause kinds.
const (
	WhenSyncFieldEquals = "sync_field_equals"
	WhenStepExecuted    = "step_executed"
)

// WhenClause gates a workflow step. Exactly one variant applies:
// sync_field_equals compares a field of the accumulated sync payload,
// step_executed checks whether an earlier step actually ran.
type WhenClause struct {
	Type   string      `json:"type"`
	Field  string      `json:"field,omitempty"`
	Equals interface{} `json:"equals,omitempty"`
	StepID string      `json:"stepId,omitempty"`
}

// WorkflowStep is one tool call inside a workflow.
type WorkflowStep struct {
	ID            string                 `json:"id"`
	Tool          string                 `json:"tool"`
	ToolArguments map[string]interface{} `json:"toolArguments,omitempty"`
	When          *WhenClause            `json:"when,omitempty"`
}

// WorkflowSpec is a declarative, ordered list of gated tool calls.
// Step ids are unique within a workflow; evaluation order matches
// declaration order.
type WorkflowSpec struct {
	Schema string         `json:"schema"`
	Type   string         `json:"type"`
	Mode   string         `json:"mode"`
	Steps  []WorkflowStep `json:"steps"`
}

// StepOutcome records what happened to one workflow step.
type StepOutcome struct {
	StepID     string `json:"stepId"`
	Tool       string `json:"tool,omitempty"`
	Executed   bool   `json:"executed"`
	SkipReason string `json:"skipReason,omitempty"`
	MCPStatus  int    `json:"mcpStatus,omitempty"`
}

// WorkflowResult summarises a full workflow run.
type WorkflowResult struct {
	Proceeded bool                   `json:"proceeded"`
	Outcomes  []StepOutcome          `json:"outcomes"`
	Sync      map[string]interface{} `json:"sync,omitempty"`
}

// ── Tool-Call Result ─────────────────────────────────────────

// CallResult is the normalised outcome of one JSON-RPC exchange with
// the tool host. Parsed holds the decoded response body (or nil when
// the body was not JSON); Raw preserves the original text.
type CallResult struct {
	Status int                    `json:"status"`
	Parsed map[string]interface{} `json:"parsed,omitempty"`
	Raw    string                 `json:"raw,omitempty"`
}

// Result returns parsed.result as a map when present.
func (r CallResult) Result() map[string]interface{} {
	if r.Parsed == nil {
		return nil
	}
	if m, ok := r.Parsed["result"].(map[string]interface{}); ok {
		return m
	}
	return nil
}

// StructuredContent returns result.structuredContent when present.
func (r CallResult) StructuredContent() map[string]interface{} {
	res := r.Result()
	if res == nil {
		return nil
	}
	if m, ok := res["structuredContent"].(map[string]interface{}); ok {
		return m
	}
	return nil
}

// ContentItems returns result.content entries that are objects.
func (r CallResult) ContentItems() []map[string]interface{} {
	res := r.Result()
	if res == nil {
		return nil
	}
	arr, ok := res["content"].([]interface{})
	if !ok {
		return nil
	}
	var items []map[string]interface{}
	for _, it := range arr {
		if m, ok := it.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items
}

// ErrObject returns the error object reported by the host: the
// top-level JSON-RPC error, or an error map embedded under result.
func (r CallResult) ErrObject() map[string]interface{} {
	if r.Parsed == nil {
		return nil
	}
	if m, ok := r.Parsed["error"].(map[string]interface{}); ok {
		return m
	}
	if res := r.Result(); res != nil {
		if m, ok := res["error"].(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

// ErrMessage returns the host error message, or "" when there is none.
func (r CallResult) ErrMessage() string {
	if e := r.ErrObject(); e != nil {
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if res := r.Result(); res != nil {
		if s, ok := res["error"].(string); ok {
			return s
		}
	}
	return ""
}

// Failed reports whether the call must surface as an error response:
// HTTP failure status or a host-reported error of either shape.
func (r CallResult) Failed() bool {
	if r.Status >= 400 || r.ErrObject() != nil {
		return true
	}
	if res := r.Result(); res != nil {
		if s, ok := res["error"].(string); ok && s != "" {
			return true
		}
	}
	return false
}

// EffectiveStatus is the HTTP status, forced into the error range when
// the host reported an error on a 2xx reply.
func (r CallResult) EffectiveStatus() int {
	if r.Status < 400 && r.Failed() {
		return 500
	}
	return r.Status
}

// ── Quality Check ────────────────────────────────────────────

// QualityCheck is the Evaluator's verdict on a drafted answer.
type QualityCheck struct {
	Pass     bool   `json:"pass"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// DefaultQualityCheck is used when the Evaluator's JSON cannot be
// parsed.
func DefaultQualityCheck() QualityCheck {
	return QualityCheck{Pass: true, Score: 80, Feedback: ""}
}

// ── Agent Trace ──────────────────────────────────────────────

// AgentTrace captures the observable decisions of one orchestration:
// manifest status, selected tool, discovery, retries, workflow step
// outcomes. Attached to the final response for debugging.
type AgentTrace struct {
	TraceID          string        `json:"traceId,omitempty"`
	Route            Route         `json:"route,omitempty"`
	ManifestOK       bool          `json:"manifestOk,omitempty"`
	ManifestStatus   int           `json:"manifestStatus,omitempty"`
	ToolCount        int           `json:"toolCount,omitempty"`
	SelectedTool     string        `json:"selectedTool,omitempty"`
	DiscoveryTool    string        `json:"discoveryTool,omitempty"`
	DiscoveredPaths  []string      `json:"discoveredPaths,omitempty"`
	SearchRetried    bool          `json:"searchRetried,omitempty"`
	SummaryChained   bool          `json:"summaryChained,omitempty"`
	Retried          bool          `json:"retried,omitempty"`
	ArgumentWarnings []string      `json:"argumentWarnings,omitempty"`
	StepOutcomes     []StepOutcome `json:"stepOutcomes,omitempty"`
	WriterPasses     int           `json:"writerPasses,omitempty"`
	TotalMs          int64         `json:"totalMs,omitempty"`
}

// ── Agent Response ───────────────────────────────────────────

// AgentResponse is the uniform output of every agent and of the
// orchestration as a whole. MCPStatus < 400 defines "successful
// execution" for retry, summary and workflow gating.
type AgentResponse struct {
	Action        string                 `json:"action"`
	Answer        string                 `json:"answer"`
	Route         Route                  `json:"route"`
	RoutedQuery   string                 `json:"routedQuery,omitempty"`
	Explanation   string                 `json:"explanation,omitempty"`
	Tool          string                 `json:"tool,omitempty"`
	Arguments     map[string]interface{} `json:"arguments,omitempty"`
	Result        interface{}            `json:"result,omitempty"`
	RequiresInput bool                   `json:"requiresInput,omitempty"`
	Missing       string                 `json:"missing,omitempty"`
	MCPStatus     int                    `json:"mcpStatus"`
	QualityCheck  *QualityCheck          `json:"qualityCheck,omitempty"`
	AgentTrace    *AgentTrace            `json:"agentTrace,omitempty"`
	Workflow      *WorkflowResult        `json:"workflow,omitempty"`
}

// Succeeded reports whether the execution behind this response is
// considered successful for gating purposes.
func (r AgentResponse) Succeeded() bool {
	return r.MCPStatus < 400
}

// ── HTTP Wire Types ──────────────────────────────────────────

// ChatMessage is one prior turn of the end-user conversation.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the body of POST /api/mcp/chat and /api/mcp/chat/stream.
type ChatRequest struct {
	Prompt        string        `json:"prompt"`
	LocalEndpoint string        `json:"localEndpoint,omitempty"`
	Conversation  []ChatMessage `json:"conversation,omitempty"`
}

// QueryRequest is the body of POST /api/mcp/query, a direct JSON-RPC
// pass-through for debugging.
type QueryRequest struct {
	Endpoint string                 `json:"endpoint,omitempty"`
	Method   string                 `json:"method"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// CloneArguments deep-copies a tool-argument map through JSON so
// callers can mutate plans without aliasing the original.
func CloneArguments(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
