// Package nim adapts OpenAI chat completion requests to the NVIDIA NIM
// dialect, enabling OpenAI SDK clients to work with NIM-hosted models without
// code changes.
//
// The adapter handles:
//
//   - Model resolution: Caller model names are mapped to NIM model IDs via a
//     configured alias table with an ordered substring-fallback ladder, so
//     unknown names always resolve to something servable.
//
//   - Thinking mode: When enabled, requests are tagged so the upstream emits a
//     reasoning trace, using either the chat_template_kwargs extension field
//     or a synthetic leading system message ("detailed thinking on").
//
//   - Reasoning merge: NIM models emit deliberation on a separate
//     reasoning_content channel. When reasoning display is enabled the adapter
//     folds it into visible content inside a <think>...</think> wrapper; when
//     disabled it is stripped before anything reaches the client.
//
//   - Streaming: Reassembles SSE lines from arbitrarily chunked upstream reads
//     and applies the reasoning merge incrementally with per-connection state.
//     Payload bytes the adapter cannot parse pass through untouched.
//
// # Adapters
//
// CreateChatCompletionAdapter: OpenAI CreateChatCompletion → NIM chat completions
package nim
