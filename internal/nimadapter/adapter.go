package nimadapter

import (
	"context"
	"iter"
	"net/http"
)

// Adapter defines the contract for transforming client requests to provider API calls.
//
// Type parameters allow the interface to express transformation contracts for different
// request/response shapes while maintaining compile-time type safety.
//
// Type parameters:
//   - TRequest:  Client-specific request structure
//   - TResponse: Client-specific response structure
//   - TChunk:    Client-specific streaming chunk protocol
type Adapter[TRequest, TResponse, TChunk any] interface {
	// ProcessRequest transforms the client request, calls the provider API, and returns
	// the transformed response. Implementations should remain stateless.
	ProcessRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (*TResponse, error)

	// ProcessStreamingRequest transforms the client request, calls the provider streaming API,
	// and returns an iterator of transformed chunks. Implementations should remain stateless.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (iter.Seq2[*TChunk, error], error)
}

// CreateChatCompletionAdapter is the concrete adapter interface for the
// chat completion operation. Streaming chunks are carried as pre-serialized
// SSE payloads (StreamEvent) so that upstream lines the adapter cannot parse
// pass through to the client byte-for-byte.
type CreateChatCompletionAdapter = Adapter[
	CreateChatCompletionRequest,
	CreateChatCompletionResponse,
	StreamEvent,
]
