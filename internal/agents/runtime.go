// Package agents implements the cooperating agents of the bridge:
// plan, mcp-execute, chat, writer/evaluator and summary. Agents are
// methods on a Runtime holding the injected collaborators; per-request
// state travels in a Request so nothing here outlives one call.
package agents

import (
	"github.com/baseloop/local-mcp-bridge/internal/a2a"
	"github.com/baseloop/local-mcp-bridge/internal/llm"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// Runtime owns the process-wide collaborators shared by every agent.
type Runtime struct {
	llm          llm.Client
	defaultPaths []string
}

// NewRuntime wires the agents to a model client and the configured
// default path candidates used when discovery comes up empty.
func NewRuntime(client llm.Client, defaultPaths []string) *Runtime {
	return &Runtime{llm: client, defaultPaths: defaultPaths}
}

// DefaultPaths returns the configured fallback path candidates.
func (rt *Runtime) DefaultPaths() []string {
	return append([]string(nil), rt.defaultPaths...)
}

// Request is the request-scoped context the agents operate over.
type Request struct {
	ID           string
	Prompt       string
	Conversation []models.ChatMessage
	Emitter      a2a.Emitter
	Trace        *models.AgentTrace
}

// NewRequest builds the shared request context. A nil emitter is
// replaced with the discard emitter so agents can emit unconditionally.
func NewRequest(id, prompt string, conversation []models.ChatMessage, emitter a2a.Emitter, trace *models.AgentTrace) *Request {
	if emitter == nil {
		emitter = a2a.Discard{}
	}
	if trace == nil {
		trace = &models.AgentTrace{TraceID: id}
	}
	return &Request{
		ID:           id,
		Prompt:       prompt,
		Conversation: conversation,
		Emitter:      emitter,
		Trace:        trace,
	}
}

// Progress emits one scalar-only mcp-progress frame for the step.
func (rq *Request) Progress(step string, detail map[string]interface{}) {
	payload := map[string]interface{}{"type": "progress", "step": step}
	for k, v := range detail {
		payload[k] = v
	}
	rq.Emitter.Emit(a2a.EventMCPProgress, payload)
}

// historyMessages maps the end-user conversation into LLM turns.
func historyMessages(conversation []models.ChatMessage) []llm.Message {
	var out []llm.Message
	for _, m := range conversation {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return out
}
