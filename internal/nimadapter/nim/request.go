package nim

import (
	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

// thinkingSystemPrompt is the literal activation phrase NIM reasoning models
// recognize when thinking mode is requested via the system prompt.
const thinkingSystemPrompt = "detailed thinking on"

// InjectionMode selects how thinking mode is communicated to the upstream.
// Both encodings are understood by NIM reasoning models; which one a
// deployment uses depends on the serving stack in front of the model.
type InjectionMode string

const (
	// InjectionTemplateKwargs sets the chat_template_kwargs extension field.
	InjectionTemplateKwargs InjectionMode = "chat_template_kwargs"
	// InjectionSystemPrompt prepends a synthetic system message.
	InjectionSystemPrompt InjectionMode = "system_prompt"
)

// chatRequest is the request body sent to the NIM chat completions endpoint.
// The shape is the OpenAI dialect plus the chat_template_kwargs extension.
type chatRequest struct {
	Model              string                   `json:"model"`
	Messages           []nimadapter.ChatMessage `json:"messages"`
	Temperature        float64                  `json:"temperature"`
	MaxTokens          int                      `json:"max_tokens"`
	Stream             bool                     `json:"stream"`
	ChatTemplateKwargs map[string]any           `json:"chat_template_kwargs,omitempty"`
}

// buildRequest derives the upstream request from the client request.
// The client request is never mutated; messages are copied so a caller
// retaining a reference observes no change.
func (a *CreateChatCompletionAdapter) buildRequest(clientReq nimadapter.CreateChatCompletionRequest, stream bool) chatRequest {
	upReq := chatRequest{
		Model:       a.opts.Models.Resolve(clientReq.Model),
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		Stream:      stream,
	}

	if clientReq.Temperature != nil {
		upReq.Temperature = *clientReq.Temperature
	}
	if clientReq.MaxTokens != nil {
		upReq.MaxTokens = *clientReq.MaxTokens
	}

	injectSystem := a.opts.ThinkingMode && a.opts.ThinkingInjection == InjectionSystemPrompt

	messages := make([]nimadapter.ChatMessage, 0, len(clientReq.Messages)+1)
	if injectSystem {
		messages = append(messages, nimadapter.ChatMessage{
			Role:    "system",
			Content: thinkingSystemPrompt,
		})
	}
	messages = append(messages, clientReq.Messages...)
	upReq.Messages = messages

	if a.opts.ThinkingMode && a.opts.ThinkingInjection != InjectionSystemPrompt {
		upReq.ChatTemplateKwargs = map[string]any{"thinking": true}
	}

	return upReq
}
