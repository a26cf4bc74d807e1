package proxy

import (
	"net/http"

	"github.com/tater980/openai-nim-proxy/internal/config"
)

// healthResponse is the body served on /health. The reasoning toggles are
// exposed so operators can confirm what a deployment does with
// reasoning_content without reading its config.
type healthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	ReasoningDisplay bool   `json:"reasoning_display"`
	ThinkingMode     bool   `json:"thinking_mode"`
}

// healthHandler serves the service health document. Reports 503 with status
// "starting" until the application flips to ready.
func healthHandler(reasoning config.ReasoningConfig, checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")

		status, code := "ok", http.StatusOK
		if !checker.IsReady() {
			status, code = "starting", http.StatusServiceUnavailable
		}

		writeJSON(r.Context(), w, healthResponse{
			Status:           status,
			Service:          serviceName,
			ReasoningDisplay: reasoning.ShowReasoning,
			ThinkingMode:     reasoning.ThinkingMode,
		}, code)
	}
}

// livenessHandler handles liveness probe requests.
// Always returns 200 OK to indicate the process is alive.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
}
