// Package proxy exposes the OpenAI-compatible HTTP surface and wires it to
// the NIM adapter.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tater980/openai-nim-proxy/internal/config"
	"github.com/tater980/openai-nim-proxy/internal/nimadapter"
	"github.com/tater980/openai-nim-proxy/internal/nimadapter/nim"
	"github.com/tater980/openai-nim-proxy/internal/observability/middleware"
)

// serviceName identifies this service in health responses.
const serviceName = "openai-nim-proxy"

const (
	// maxRequestBodyBytes bounds inbound bodies; chat transcripts are text,
	// so 10 MiB leaves ample headroom.
	maxRequestBodyBytes = 10 << 20
	readHeaderTimeout   = 10 * time.Second
)

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Option configures optional Proxy behavior.
type Option func(*Proxy)

// WithTransport overrides the base HTTP transport used for upstream calls.
// The authentication layer is applied on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Proxy) {
		p.baseTransport = rt
	}
}

// Proxy is the HTTP server translating OpenAI chat completion traffic to NIM.
type Proxy struct {
	handler       http.Handler
	server        *http.Server
	baseTransport http.RoundTripper
}

// Compile-time check to ensure Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

// New builds the proxy from configuration. The token source supplies the
// upstream credential; checker backs the health endpoint's readiness state.
func New(cfg *config.Config, tokenSource oauth2.TokenSource, checker ReadinessChecker, opts ...Option) (*Proxy, error) {
	p := &Proxy{baseTransport: http.DefaultTransport}
	for _, opt := range opts {
		opt(p)
	}

	adapter, err := nim.NewCreateChatCompletionAdapter(nim.Options{
		BaseURL:           strings.TrimRight(cfg.Upstream.BaseURL, "/"),
		ShowReasoning:     cfg.Reasoning.ShowReasoning,
		ThinkingMode:      cfg.Reasoning.ThinkingMode,
		ThinkingInjection: nim.InjectionMode(cfg.Reasoning.ThinkingInjection),
		Temperature:       cfg.Defaults.Temperature,
		MaxTokens:         cfg.Defaults.MaxTokens,
		Models:            modelTable(cfg.Models),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}

	// The transport chain handles authentication; handlers never see the key.
	transport := &oauth2.Transport{Source: tokenSource, Base: p.baseTransport}

	mux := http.NewServeMux()
	mux.Handle("GET /health", healthHandler(cfg.Reasoning, checker))
	mux.Handle("GET /livez", livenessHandler())
	mux.Handle("GET /v1/models", modelsHandler(modelIDs(cfg.Models.Map)))
	mux.Handle("POST /v1/chat/completions", &CreateChatCompletionsHandler{
		Adapter:   adapter,
		Transport: transport,
	})
	mux.HandleFunc("GET /v1/chat/completions", methodNotAllowedHandler)
	mux.Handle("GET /{$}", http.RedirectHandler("/health", http.StatusTemporaryRedirect))
	mux.Handle("GET /v1/health", http.RedirectHandler("/health", http.StatusTemporaryRedirect))
	mux.HandleFunc("/", notFoundHandler)

	p.handler = applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(maxRequestBodyBytes),
	)

	return p, nil
}

// ServeHTTP implements http.Handler, allowing the proxy to be mounted in tests
// without a listener.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start binds the listener and serves in the background. Runtime failures are
// delivered on the returned channel.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		// WriteTimeout stays 0: streaming responses are open-ended.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}

// modelTable converts the configuration routing policy into the adapter's form.
func modelTable(cfg config.ModelsConfig) nim.ModelTable {
	table := nim.ModelTable{
		Aliases: cfg.Map,
		Default: cfg.Default,
	}
	for _, rule := range cfg.Fallbacks {
		table.Fallbacks = append(table.Fallbacks, nim.FallbackRule{
			Contains: rule.Contains,
			Model:    rule.Model,
		})
	}
	return table
}

// modelIDs returns the configured caller-facing model names in stable order.
func modelIDs(aliases map[string]string) []string {
	ids := make([]string, 0, len(aliases))
	for id := range aliases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// notFoundHandler returns the OpenAI-shaped 404 for unknown paths.
func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONOpenAIError(r.Context(), w, &nimadapter.ChatCompletionErrorResponse{
		Err: &nimadapter.ChatCompletionError{
			Message: http.StatusText(http.StatusNotFound),
			Type:    "invalid_request_error",
			Code:    http.StatusNotFound,
		},
	})
}

// methodNotAllowedHandler rejects GET on the completions path.
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONOpenAIError(r.Context(), w, &nimadapter.ChatCompletionErrorResponse{
		Err: &nimadapter.ChatCompletionError{
			Message: http.StatusText(http.StatusMethodNotAllowed),
			Type:    "invalid_request_error",
			Code:    http.StatusMethodNotAllowed,
		},
	})
}
