package proxy

import (
	"net/http"
	"time"
)

// modelList is the OpenAI-shaped body for GET /v1/models.
type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// modelsHandler lists the caller-facing model names from the configured
// mapping table. The upstream catalog is not proxied: clients pick from the
// names this deployment routes, and the created timestamp is simply the
// moment the route table was materialized.
func modelsHandler(ids []string) http.HandlerFunc {
	created := time.Now().Unix()

	entries := make([]modelEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, modelEntry{
			ID:      id,
			Object:  "model",
			Created: created,
			OwnedBy: "nvidia",
		})
	}
	list := modelList{Object: "list", Data: entries}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, list, http.StatusOK)
	}
}
