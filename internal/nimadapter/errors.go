package nimadapter

// ChatCompletionError represents an OpenAI-formatted error for chat completion endpoints.
// This is the standard error structure that OpenAI clients expect. Code carries the
// HTTP status associated with the failure when one is known.
type ChatCompletionError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code,omitempty"`
}

// Error implements the error interface, returning the error message.
func (e *ChatCompletionError) Error() string {
	return e.Message
}

// ChatCompletionErrorResponse wraps ChatCompletionError in the envelope
// that OpenAI clients expect for both JSON and SSE responses: {"error": {...}}
type ChatCompletionErrorResponse struct {
	// Err is the underlying error detail. JSON tag ensures it serializes as "error".
	Err *ChatCompletionError `json:"error"`
}

// Error implements the error interface, returning the underlying error message.
// This allows ChatCompletionErrorResponse to be used directly in error returns
// while maintaining the full OpenAI error structure for marshaling.
func (e *ChatCompletionErrorResponse) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Message
}
