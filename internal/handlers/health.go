package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"maamar-search/internal/contextutil"
)

// CollectionChecker reports whether the vector collection is reachable.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	records            int
	vectors            CollectionChecker
	collectionName     string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. records is the corpus size;
// vectors may be nil when semantic search runs without a vector store.
func NewHealthHandler(records int, vectors CollectionChecker, collectionName string) *HealthHandler {
	return &HealthHandler{
		records:            records,
		vectors:            vectors,
		collectionName:     collectionName,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "ok", "degraded" or "unhealthy"
	Status string `json:"status"`

	Message   string `json:"message"`
	Records   int    `json:"records"`
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// An empty corpus makes the service unhealthy (503). A failing vector
// store only degrades it, since searches still run without the blend.
//
// swagger:route GET /health healthCheck
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Service is healthy or degraded
//	'503':
//	  description: Corpus not loaded
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checks := map[string]string{"corpus": "ok"}
	var issues []string
	status, httpStatus := "ok", http.StatusOK

	if h.records == 0 {
		checks["corpus"] = "empty"
		issues = append(issues, "corpus_not_loaded")
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}

	if h.vectors != nil {
		checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
		defer cancel()

		exists, err := h.vectors.CollectionExists(checkCtx, h.collectionName)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "vector store health check failed", "error", err)
			checks["vector_store"] = "error"
			issues = append(issues, "vector_store_unavailable")
		case !exists:
			logger.WarnContext(ctx, "vector store collection does not exist", "collection", h.collectionName)
			checks["vector_store"] = "missing_collection"
			issues = append(issues, "vector_collection_missing")
		default:
			checks["vector_store"] = "ok"
		}
		if checks["vector_store"] != "ok" && status == "ok" {
			status = "degraded"
		}
	}

	response := HealthResponse{
		Status:    status,
		Message:   "Maamar Search API is running",
		Records:   h.records,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
