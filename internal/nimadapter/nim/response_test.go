package nim

import (
	"strings"
	"testing"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

func stringPtr(s string) *string { return &s }

func TestToResponseMergesReasoning(t *testing.T) {
	adapter := testAdapter(t, Options{ShowReasoning: true})

	upstream := &chatResponse{
		Choices: []chatResponseChoice{{
			Index: 0,
			Message: chatResponseMessage{
				Role:             "assistant",
				Content:          "Hi",
				ReasoningContent: "thinking...",
			},
			FinishReason: stringPtr("stop"),
		}},
	}

	response := adapter.toResponse("gpt-4", upstream)

	want := "<think>\nthinking...\n</think>\n\nHi"
	if got := response.Choices[0].Message.Content; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if got := *response.Choices[0].FinishReason; got != "stop" {
		t.Errorf("finish_reason = %q, want stop", got)
	}
}

func TestToResponseWithoutReasoning(t *testing.T) {
	adapter := testAdapter(t, Options{ShowReasoning: true})

	upstream := &chatResponse{
		Choices: []chatResponseChoice{{
			Message: chatResponseMessage{Role: "assistant", Content: "Hi"},
		}},
	}

	response := adapter.toResponse("gpt-4", upstream)

	if got := response.Choices[0].Message.Content; got != "Hi" {
		t.Errorf("content = %q, want %q", got, "Hi")
	}
	if strings.Contains(response.Choices[0].Message.Content, "<think>") {
		t.Error("unexpected <think> marker without reasoning content")
	}
}

func TestToResponseReasoningHidden(t *testing.T) {
	adapter := testAdapter(t, Options{ShowReasoning: false})

	upstream := &chatResponse{
		Choices: []chatResponseChoice{{
			Message: chatResponseMessage{
				Role:             "assistant",
				Content:          "Hi",
				ReasoningContent: "secret deliberation",
			},
		}},
	}

	response := adapter.toResponse("gpt-4", upstream)

	got := response.Choices[0].Message.Content
	if got != "Hi" {
		t.Errorf("content = %q, want %q", got, "Hi")
	}
	if strings.Contains(got, "secret") {
		t.Error("reasoning content leaked with show_reasoning disabled")
	}
}

func TestToResponseEnvelope(t *testing.T) {
	adapter := testAdapter(t, Options{})

	upstream := &chatResponse{
		Choices: []chatResponseChoice{{
			Message: chatResponseMessage{Role: "assistant", Content: "Hi"},
		}},
	}

	response := adapter.toResponse("my-model-name", upstream)

	if response.Model != "my-model-name" {
		t.Errorf("model = %q, want caller name echoed", response.Model)
	}
	if response.Object != "chat.completion" {
		t.Errorf("object = %q, want chat.completion", response.Object)
	}
	if !strings.HasPrefix(response.ID, "chatcmpl-") {
		t.Errorf("id = %q, want chatcmpl- prefix", response.ID)
	}
	if response.Created == 0 {
		t.Error("created timestamp not set")
	}

	// Usage absent upstream must zero-fill, not omit.
	if response.Usage != (nimadapter.CompletionUsage{}) {
		t.Errorf("usage = %+v, want zero-filled", response.Usage)
	}
}

func TestToResponseUsagePassthrough(t *testing.T) {
	adapter := testAdapter(t, Options{})

	upstream := &chatResponse{
		Choices: []chatResponseChoice{{
			Message: chatResponseMessage{Role: "assistant", Content: "Hi"},
		}},
		Usage: &nimadapter.CompletionUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}

	response := adapter.toResponse("gpt-4", upstream)

	if response.Usage.TotalTokens != 15 || response.Usage.PromptTokens != 12 {
		t.Errorf("usage = %+v, want upstream counts", response.Usage)
	}
}

func TestNewResponseIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := newResponseID()
		if seen[id] {
			t.Fatalf("duplicate response ID %q", id)
		}
		seen[id] = true
	}
}
