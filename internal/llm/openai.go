package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// maxRetries bounds the transient-failure retry loop per call.
const maxRetries = 2

// OpenAI implements Client over the OpenAI chat completions API.
// Transient failures (429, 5xx, transport errors) are retried with
// exponential backoff; everything else surfaces immediately.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a client for the given credentials. The key is not
// validated here; a missing key fails at the first call.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Complete returns the model's text answer.
func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	return o.complete(ctx, messages, nil)
}

// CompleteJSON forces the JSON-object response format.
func (o *OpenAI) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	return o.complete(ctx, messages, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (o *OpenAI) complete(ctx context.Context, messages []Message, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:          o.model,
		Messages:       convertMessages(messages),
		ResponseFormat: format,
	}

	var content string
	operation := func() error {
		start := time.Now()
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if retryable(err) {
				log.Warn().Err(err).Str("model", o.model).Msg("LLM call failed, retrying")
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("empty choices in completion"))
		}
		content = resp.Choices[0].Message.Content
		log.Debug().
			Str("model", o.model).
			Dur("latency", time.Since(start)).
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens).
			Msg("LLM call completed")
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return content, nil
}

// retryable classifies an upstream failure: rate limits and server
// errors are worth retrying, everything else (bad key, bad request) is
// permanent. Transport-level errors carry no status and are retried.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
