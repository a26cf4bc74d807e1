package nim

import (
	"fmt"
	"net/http"
)

// newClient creates an HTTP client for the NIM API with the provided transport.
// The transport chain needs to handle authentication.
func newClient(transport http.RoundTripper) (*http.Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	return &http.Client{
		Transport: transport,
		// Client.Timeout = 0 allows long-running SSE streams (bounded by server WriteTimeout)
	}, nil
}
