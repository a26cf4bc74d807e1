package nim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

// Generation parameter defaults applied when the client leaves them unset and
// the deployment configures no override.
const (
	DefaultTemperature = 0.6
	DefaultMaxTokens   = 8192
)

// maxErrorBodyBytes bounds how much of an upstream error body is read back.
const maxErrorBodyBytes = 64 << 10

// Options configures the adapter. All fields are fixed at construction time;
// the adapter itself holds no mutable state across requests.
type Options struct {
	// BaseURL is the upstream API root, e.g. https://integrate.api.nvidia.com/v1.
	BaseURL string

	// ShowReasoning folds upstream reasoning_content into visible content
	// inside a <think> block. When false, reasoning never reaches the client.
	ShowReasoning bool

	// ThinkingMode asks the upstream to produce a reasoning trace.
	ThinkingMode bool
	// ThinkingInjection selects the encoding for ThinkingMode.
	// Defaults to InjectionTemplateKwargs.
	ThinkingInjection InjectionMode

	// Temperature and MaxTokens are the deployment defaults for requests that
	// leave them unset. Zero values fall back to the package defaults.
	Temperature float64
	MaxTokens   int

	// Models maps caller model names to upstream IDs.
	Models ModelTable
}

// CreateChatCompletionAdapter implements the OpenAI CreateChatCompletion
// operation against a NIM upstream.
type CreateChatCompletionAdapter struct {
	opts Options
}

// Compile-time check that the adapter satisfies the generic adapter contract
var _ nimadapter.CreateChatCompletionAdapter = (*CreateChatCompletionAdapter)(nil)

// NewCreateChatCompletionAdapter validates options and returns an adapter.
func NewCreateChatCompletionAdapter(opts Options) (*CreateChatCompletionAdapter, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if opts.ThinkingInjection == "" {
		opts.ThinkingInjection = InjectionTemplateKwargs
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &CreateChatCompletionAdapter{opts: opts}, nil
}

// ProcessRequest handles the buffered (non-streaming) path.
func (a *CreateChatCompletionAdapter) ProcessRequest(
	ctx context.Context,
	clientReq nimadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) (*nimadapter.CreateChatCompletionResponse, error) {
	resp, err := a.send(ctx, clientReq, transport, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var upstream chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
		return nil, toChatCompletionError(fmt.Errorf("decode upstream response: %w", err))
	}

	return a.toResponse(clientReq.Model, &upstream), nil
}

// ProcessStreamingRequest handles the streaming path. The returned iterator
// yields one event per upstream data line; consuming it to completion (or
// breaking early) closes the upstream body.
func (a *CreateChatCompletionAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq nimadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) (iter.Seq2[*nimadapter.StreamEvent, error], error) {
	resp, err := a.send(ctx, clientReq, transport, true)
	if err != nil {
		return nil, err
	}

	return func(yield func(*nimadapter.StreamEvent, error) bool) {
		defer resp.Body.Close()

		reasm := newReassembler(a.opts.ShowReasoning)
		buf := make([]byte, 4096)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				for _, event := range reasm.feed(buf[:n]) {
					if !yield(&event, nil) {
						return
					}
				}
			}
			if reasm.done {
				return
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					yield(nil, toChatCompletionError(readErr))
				}
				// A trailing partial line in the carry buffer is dropped here.
				return
			}
		}
	}, nil
}

// send builds the upstream request, performs the call and checks the status.
// On non-2xx the body is drained into an OpenAI-shaped error carrying the
// upstream status code.
func (a *CreateChatCompletionAdapter) send(
	ctx context.Context,
	clientReq nimadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
	stream bool,
) (*http.Response, error) {
	client, err := newClient(transport)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(a.buildRequest(clientReq, stream))
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = resp.Body.Close()
		return nil, toUpstreamStatusError(resp.StatusCode, raw)
	}

	return resp, nil
}
