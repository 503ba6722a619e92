// Package llm abstracts the upstream language model behind a small
// client interface. The bridge needs two call shapes: free text for
// answers and JSON mode for structured planner/evaluator output.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of an upstream conversation.
type Message struct {
	Role    string
	Content string
}

// Client is the model surface the agents depend on.
type Client interface {
	// Complete returns the model's text answer.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteJSON asks the model for a single JSON object and returns
	// its raw text. Callers parse defensively; the model may still
	// produce garbage.
	CompleteJSON(ctx context.Context, messages []Message) (string, error)
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
