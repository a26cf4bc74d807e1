package nim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

func deltaLine(t *testing.T, delta map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":     "cmpl-up",
		"object": "chat.completion.chunk",
		"choices": []map[string]any{
			{"index": 0, "delta": delta},
		},
	})
	if err != nil {
		t.Fatalf("marshal delta: %v", err)
	}
	return "data: " + string(payload) + "\n"
}

func eventContent(t *testing.T, event nimadapter.StreamEvent) string {
	t.Helper()

	if !gjson.ValidBytes(event.Payload) {
		t.Fatalf("event payload is not valid JSON: %s", event.Payload)
	}
	return gjson.GetBytes(event.Payload, "choices.0.delta.content").String()
}

func TestReassemblerOneEventPerDataLine(t *testing.T) {
	reasm := newReassembler(true)

	chunk := deltaLine(t, map[string]any{"content": "a"}) +
		deltaLine(t, map[string]any{"content": "b"}) +
		deltaLine(t, map[string]any{"content": "c"})

	events := reasm.feed([]byte(chunk))
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := eventContent(t, events[i]); got != want {
			t.Errorf("event %d content = %q, want %q", i, got, want)
		}
	}
}

func TestReassemblerSplitAcrossChunks(t *testing.T) {
	line := deltaLine(t, map[string]any{"content": "hello"})

	whole := newReassembler(true)
	wantEvents := whole.feed([]byte(line))
	if len(wantEvents) != 1 {
		t.Fatalf("unsplit delivery produced %d events, want 1", len(wantEvents))
	}

	split := newReassembler(true)
	mid := len(line) / 2
	first := split.feed([]byte(line[:mid]))
	if len(first) != 0 {
		t.Fatalf("partial line produced %d events, want 0", len(first))
	}
	second := split.feed([]byte(line[mid:]))
	if len(second) != 1 {
		t.Fatalf("completed line produced %d events, want 1", len(second))
	}

	if got, want := string(second[0].Payload), string(wantEvents[0].Payload); got != want {
		t.Errorf("split delivery payload = %s, want %s", got, want)
	}
}

func TestReassemblerReasoningSequence(t *testing.T) {
	reasm := newReassembler(true)

	chunk := deltaLine(t, map[string]any{"reasoning_content": "a"}) +
		deltaLine(t, map[string]any{"reasoning_content": "b"}) +
		deltaLine(t, map[string]any{"content": "c"})

	events := reasm.feed([]byte(chunk))
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}

	want := []string{"<think>\na", "b", "</think>\n\nc"}
	for i := range want {
		if got := eventContent(t, events[i]); got != want[i] {
			t.Errorf("event %d content = %q, want %q", i, got, want[i])
		}
		if gjson.GetBytes(events[i].Payload, "choices.0.delta.reasoning_content").Exists() {
			t.Errorf("event %d still carries reasoning_content", i)
		}
	}

	if reasm.reasoningOpen {
		t.Error("reasoning block still open after content delta")
	}
}

func TestReassemblerReasoningAndContentInOneEvent(t *testing.T) {
	reasm := newReassembler(true)

	events := reasm.feed([]byte(deltaLine(t, map[string]any{
		"reasoning_content": "r",
		"content":           "c",
	})))
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}

	if got, want := eventContent(t, events[0]), "<think>\nr</think>\n\nc"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if reasm.reasoningOpen {
		t.Error("reasoning block left open")
	}
}

func TestReassemblerReasoningHidden(t *testing.T) {
	reasm := newReassembler(false)

	chunk := deltaLine(t, map[string]any{"reasoning_content": "secret"}) +
		deltaLine(t, map[string]any{"content": "visible"})

	events := reasm.feed([]byte(chunk))
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	if gjson.GetBytes(events[0].Payload, "choices.0.delta.reasoning_content").Exists() {
		t.Error("reasoning_content not stripped")
	}
	if got := eventContent(t, events[0]); strings.Contains(got, "secret") {
		t.Errorf("reasoning leaked into content: %q", got)
	}
	if got := eventContent(t, events[1]); got != "visible" {
		t.Errorf("content = %q, want passthrough %q", got, "visible")
	}
}

func TestReassemblerDoneSentinel(t *testing.T) {
	reasm := newReassembler(true)

	chunk := deltaLine(t, map[string]any{"content": "a"}) +
		"data: [DONE]\n" +
		deltaLine(t, map[string]any{"content": "after"})

	events := reasm.feed([]byte(chunk))
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1 (nothing after [DONE])", len(events))
	}
	if !reasm.done {
		t.Error("done flag not set after sentinel")
	}
}

func TestReassemblerMalformedPassthrough(t *testing.T) {
	reasm := newReassembler(true)

	raw := `{"choices":[{"delta":{"content":` // truncated JSON
	chunk := "data: " + raw + "\n" + deltaLine(t, map[string]any{"content": "ok"})

	events := reasm.feed([]byte(chunk))
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if got := string(events[0].Payload); got != raw {
		t.Errorf("malformed payload = %q, want verbatim %q", got, raw)
	}
	if got := eventContent(t, events[1]); got != "ok" {
		t.Errorf("stream did not continue after malformed line: %q", got)
	}
}

func TestReassemblerIgnoresNonDataLines(t *testing.T) {
	reasm := newReassembler(true)

	chunk := ": keep-alive comment\n\r\n\n" + deltaLine(t, map[string]any{"content": "x"})

	events := reasm.feed([]byte(chunk))
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
}

func TestReassemblerPreservesUnknownFields(t *testing.T) {
	reasm := newReassembler(true)

	payload := `{"id":"up-1","system_fingerprint":"fp_x","choices":[{"index":0,"delta":{"reasoning_content":"r"},"finish_reason":null}]}`
	events := reasm.feed([]byte("data: " + payload + "\n"))
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}

	out := events[0].Payload
	if gjson.GetBytes(out, "system_fingerprint").String() != "fp_x" {
		t.Errorf("unknown field dropped: %s", out)
	}
	if gjson.GetBytes(out, "id").String() != "up-1" {
		t.Errorf("id dropped: %s", out)
	}
}

// chunkedBody delivers its content in fixed-size reads to exercise the
// read loop with chunk boundaries that never align with event boundaries.
type chunkedBody struct {
	data      string
	chunkSize int
	offset    int
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if b.offset >= len(b.data) {
		return 0, io.EOF
	}
	end := min(b.offset+b.chunkSize, len(b.data))
	n := copy(p, b.data[b.offset:end])
	b.offset += n
	return n, nil
}

func (b *chunkedBody) Close() error { return nil }

type streamTransport struct {
	body io.ReadCloser
}

func (t *streamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       t.body,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Request:    req,
	}, nil
}

func TestProcessStreamingRequestChunkedUpstream(t *testing.T) {
	adapter := testAdapter(t, Options{ShowReasoning: true})

	sse := deltaLine(t, map[string]any{"reasoning_content": "a"}) + "\n" +
		deltaLine(t, map[string]any{"content": "b"}) + "\n" +
		"data: [DONE]\n\n" +
		"data: {\"truncated\"" // trailing partial line, no newline: dropped

	stream, err := adapter.ProcessStreamingRequest(
		context.Background(),
		nimadapter.CreateChatCompletionRequest{
			Model:    "gpt-4",
			Messages: []nimadapter.ChatMessage{{Role: "user", Content: "hi"}},
		},
		&streamTransport{body: &chunkedBody{data: sse, chunkSize: 7}},
	)
	if err != nil {
		t.Fatalf("ProcessStreamingRequest: %v", err)
	}

	var contents []string
	for event, err := range stream {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		contents = append(contents, eventContent(t, *event))
	}

	want := []string{"<think>\na", "</think>\n\nb"}
	if len(contents) != len(want) {
		t.Fatalf("contents = %q, want %q", contents, want)
	}
	for i := range want {
		if contents[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, contents[i], want[i])
		}
	}
}
