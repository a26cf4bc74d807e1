package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

// validate checks decoded request bodies against the wire type constraints.
var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateChatCompletionsHandler handles OpenAI-compatible chat completion requests.
type CreateChatCompletionsHandler struct {
	Adapter   nimadapter.CreateChatCompletionAdapter
	Transport http.RoundTripper
}

// Compile-time check to ensure CreateChatCompletionsHandler implements http.Handler
var _ http.Handler = (*CreateChatCompletionsHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateChatCompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req nimadapter.CreateChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONOpenAIError(ctx, w, &nimadapter.ChatCompletionErrorResponse{
				Err: &nimadapter.ChatCompletionError{
					Message: http.StatusText(http.StatusRequestEntityTooLarge),
					Type:    "invalid_request_error",
					Code:    http.StatusRequestEntityTooLarge,
				},
			})
			return
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONOpenAIError(ctx, w, &nimadapter.ChatCompletionErrorResponse{
			Err: &nimadapter.ChatCompletionError{
				Message: http.StatusText(http.StatusBadRequest),
				Type:    "invalid_request_error",
				Code:    http.StatusBadRequest,
			},
		})
		return
	}

	if err := validate.Struct(&req); err != nil {
		slog.WarnContext(ctx, "request failed validation", "error", err)
		writeJSONOpenAIError(ctx, w, &nimadapter.ChatCompletionErrorResponse{
			Err: &nimadapter.ChatCompletionError{
				Message: err.Error(),
				Type:    "invalid_request_error",
				Code:    http.StatusBadRequest,
			},
		})
		return
	}

	if req.Stream != nil && *req.Stream {
		h.streamResponse(ctx, w, req)
	} else {
		h.writeResponse(ctx, w, req)
	}
}

// writeResponse handles non-streaming chat completion requests.
func (h *CreateChatCompletionsHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req nimadapter.CreateChatCompletionRequest,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)

		var errResp *nimadapter.ChatCompletionErrorResponse
		if errors.As(err, &errResp) {
			writeJSONOpenAIError(ctx, w, errResp)
			return
		}

		writeJSONOpenAIError(ctx, w, &nimadapter.ChatCompletionErrorResponse{
			Err: &nimadapter.ChatCompletionError{
				Message: http.StatusText(http.StatusInternalServerError),
				Type:    "api_error",
			},
		})
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse streams chat completion chunks using SSE.
func (h *CreateChatCompletionsHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req nimadapter.CreateChatCompletionRequest,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err)

		var errResp *nimadapter.ChatCompletionErrorResponse
		if errors.As(err, &errResp) {
			writeJSONOpenAIError(ctx, w, errResp)
			return
		}

		writeJSONOpenAIError(ctx, w, &nimadapter.ChatCompletionErrorResponse{
			Err: &nimadapter.ChatCompletionError{
				Message: http.StatusText(http.StatusInternalServerError),
				Type:    "api_error",
			},
		})
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONOpenAIError(ctx, w, &nimadapter.ChatCompletionErrorResponse{
			Err: &nimadapter.ChatCompletionError{
				Message: http.StatusText(http.StatusInternalServerError),
				Type:    "api_error",
			},
		})
		return
	}

	for chunk, err := range stream {
		// Check for client disconnect before processing chunk
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)

			var errorResponse *nimadapter.ChatCompletionErrorResponse
			if !errors.As(err, &errorResponse) {
				// Wrap unexpected errors for client visibility
				errorResponse = &nimadapter.ChatCompletionErrorResponse{
					Err: &nimadapter.ChatCompletionError{
						Message: err.Error(),
						Type:    "api_error",
					},
				}
			}

			// OpenAI SDK recognizes {"error": {...}} format and stops reading immediately
			if writeErr := sse.WriteEvent("error"); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error event type", "error", writeErr)
				return
			}
			if writeErr := sse.WriteData(errorResponse); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error", "error", writeErr)
			}
			return
		}

		if err := sse.WriteDataBytes(chunk.Payload); err != nil {
			slog.ErrorContext(ctx, "failed to write chunk", "error", err)
			return
		}
	}

	// OpenAI streaming protocol requires [DONE] marker
	if err := sse.WriteRaw("[DONE]"); err != nil {
		slog.ErrorContext(ctx, "failed to write stream termination marker", "error", err)
	}
}
