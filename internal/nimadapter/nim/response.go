package nim

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

// Reasoning block wrapper. The open marker is emitted before the first
// reasoning text and the close marker before visible content resumes; blocks
// never nest and never dangle past the end of a response.
const (
	thinkOpen  = "<think>\n"
	thinkClose = "\n</think>\n\n"
)

// chatResponse is the buffered response body returned by the NIM chat
// completions endpoint.
type chatResponse struct {
	Choices []chatResponseChoice        `json:"choices"`
	Usage   *nimadapter.CompletionUsage `json:"usage"`
}

type chatResponseChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason *string             `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content"`
}

// toResponse converts a complete upstream response into the client shape.
// The model field echoes the caller's requested name, not the resolved
// upstream ID.
func (a *CreateChatCompletionAdapter) toResponse(clientModel string, upstream *chatResponse) *nimadapter.CreateChatCompletionResponse {
	response := &nimadapter.CreateChatCompletionResponse{
		ID:      newResponseID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   clientModel,
		Choices: make([]nimadapter.CreateChatCompletionChoice, 0, len(upstream.Choices)),
	}

	for _, choice := range upstream.Choices {
		content := choice.Message.Content
		if a.opts.ShowReasoning && choice.Message.ReasoningContent != "" {
			content = thinkOpen + choice.Message.ReasoningContent + thinkClose + content
		}

		response.Choices = append(response.Choices, nimadapter.CreateChatCompletionChoice{
			Index: choice.Index,
			Message: nimadapter.AssistantMessage{
				Role:    "assistant",
				Content: content,
			},
			FinishReason: choice.FinishReason,
		})
	}

	if upstream.Usage != nil {
		response.Usage = *upstream.Usage
	}

	return response
}

// newResponseID generates an OpenAI-compatible response ID (chatcmpl-<token>).
// IDs are freshly generated per response; the upstream ID is not echoed.
func newResponseID() string {
	b := make([]byte, 24) // 24 bytes yields 32 URL-safe base64 characters
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	// Use RawURLEncoding to avoid '+', '/' and trailing '='
	token := base64.RawURLEncoding.EncodeToString(b)
	return "chatcmpl-" + token
}
