// Package a2a defines the envelope agents use to talk to each other
// and the emitter contract that carries those messages (plus raw
// progress frames) onto the SSE channel of a request.
package a2a

import (
	"time"

	"github.com/google/uuid"
)

// Protocol is the envelope version marker.
const Protocol = "a2a/1.0"

// Well-known agent names used in From/To fields.
const (
	AgentOrchestrator = "orchestrator"
	AgentPlan         = "plan-agent"
	AgentMCP          = "mcp-agent"
	AgentChat         = "chat-agent"
	AgentWriter       = "writer-agent"
	AgentEvaluator    = "evaluator-agent"
	AgentSummary      = "summary-agent"
	AgentOutput       = "output-agent"
	AgentClient       = "client"
)

// SSE frame names. Done is always the terminal frame of a stream and
// no Delta may follow Final.
const (
	EventProgress    = "progress"
	EventA2A         = "a2a"
	EventRoute       = "route"
	EventMCPProgress = "mcp-progress"
	EventDelta       = "delta"
	EventFinal       = "final"
	EventError       = "error"
	EventDone        = "done"
)

// Message is the uniform agent-to-agent envelope.
type Message struct {
	Protocol  string      `json:"protocol"`
	RequestID string      `json:"requestId"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewMessage builds an envelope stamped with the current time. An
// empty requestID gets a fresh uuid so every message stays traceable.
func NewMessage(requestID, from, to, typ string, payload interface{}) Message {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Message{
		Protocol:  Protocol,
		RequestID: requestID,
		From:      from,
		To:        to,
		Type:      typ,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
}

// Emitter receives named frames for one request. Implementations must
// tolerate being called after the client went away; emission is
// best-effort and never returns an error to the pipeline.
type Emitter interface {
	Emit(event string, payload interface{})
}

// Discard drops every frame. Used by the non-streaming endpoint.
type Discard struct{}

func (Discard) Emit(string, interface{}) {}
