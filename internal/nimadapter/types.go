package nimadapter

// Wire types for the OpenAI-compatible chat completion surface.
//
// These are written by hand rather than generated from the OpenAI OpenAPI
// document: the NIM dialect carries fields the official schema does not
// (reasoning_content, chat_template_kwargs), and the proxy only exposes the
// subset of the surface it can faithfully translate.

// ChatMessage is a single conversation turn. Order within a request is
// chronological and must be preserved end-to-end.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// CreateChatCompletionRequest is the inbound request body for
// POST /v1/chat/completions. Caller-owned; the adapter never mutates it.
type CreateChatCompletionRequest struct {
	Model       string        `json:"model" validate:"required"`
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      *bool         `json:"stream,omitempty"`
}

// CreateChatCompletionResponse is the buffered response returned to the client.
type CreateChatCompletionResponse struct {
	ID      string                       `json:"id"`
	Object  string                       `json:"object"`
	Created int64                        `json:"created"`
	Model   string                       `json:"model"`
	Choices []CreateChatCompletionChoice `json:"choices"`
	Usage   CompletionUsage              `json:"usage"`
}

// CreateChatCompletionChoice is one completion alternative within a response.
type CreateChatCompletionChoice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason *string          `json:"finish_reason"`
}

// AssistantMessage is the assistant turn inside a response choice.
type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionUsage reports token accounting for a completed request.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamEvent is one outbound SSE data payload. Payload holds the bytes that
// follow "data: " on the wire and is emitted verbatim, which lets malformed
// upstream lines pass through unmodified.
type StreamEvent struct {
	Payload []byte
}
