package nim

import (
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
)

// toChatCompletionError converts any error into the OpenAI-compatible error
// format. Transport failures (DNS, refused connections, missing credential
// reported by the token source) have no upstream status, so they surface as
// 500 with the underlying message for operator visibility.
func toChatCompletionError(err error) *nimadapter.ChatCompletionErrorResponse {
	if err == nil {
		return nil
	}
	return &nimadapter.ChatCompletionErrorResponse{
		Err: &nimadapter.ChatCompletionError{
			Message: err.Error(),
			Type:    "api_error",
			Code:    http.StatusInternalServerError,
		},
	}
}

// toUpstreamStatusError converts a non-2xx upstream reply into the
// OpenAI-compatible error format, preserving the upstream status code.
// The upstream error message is extracted when the body carries the
// {"error": {"message": ...}} envelope; otherwise the raw body stands in.
func toUpstreamStatusError(status int, body []byte) *nimadapter.ChatCompletionErrorResponse {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = string(body)
	}
	if message == "" {
		message = http.StatusText(status)
	}

	return &nimadapter.ChatCompletionErrorResponse{
		Err: &nimadapter.ChatCompletionError{
			Message: message,
			Type:    "invalid_request_error",
			Code:    status,
		},
	}
}
