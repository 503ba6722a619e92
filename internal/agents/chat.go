package agents

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/baseloop/local-mcp-bridge/internal/llm"
	"github.com/baseloop/local-mcp-bridge/pkg/models"
)

// ActionChatOnly marks responses answered directly by the model.
const ActionChatOnly = "chat-only"

// Chat answers the prompt without touching the tool host. The
// chat_only route always reports mcpStatus 200; model failures become
// an apologetic answer instead of an error status.
func (rt *Runtime) Chat(ctx context.Context, rq *Request) models.AgentResponse {
	messages := []llm.Message{llm.System(chatSystemPrompt)}
	messages = append(messages, historyMessages(rq.Conversation)...)
	messages = append(messages, llm.User(rq.Prompt))

	answer, err := rt.llm.Complete(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("chat completion failed")
		answer = "죄송합니다. 지금은 답변을 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."
	}

	return models.AgentResponse{
		Action:    ActionChatOnly,
		Route:     models.RouteChatOnly,
		Answer:    answer,
		MCPStatus: 200,
	}
}
