package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"maamar-search/internal/handlers"
	"maamar-search/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	SearchService service.SearchService
	// Records is the number of loaded corpus records, reported by /health.
	Records int
	// Vectors is nil when the vector store is disabled.
	Vectors        handlers.CollectionChecker
	CollectionName string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	searchHandler := handlers.NewSearchHandler(deps.SearchService)
	healthHandler := handlers.NewHealthHandler(deps.Records, deps.Vectors, deps.CollectionName)

	for _, path := range []string{"/search", "/api/v1/search"} {
		r.Method(http.MethodGet, path, searchHandler)
		r.Method(http.MethodPost, path, searchHandler)
	}
	r.Method(http.MethodGet, "/health", healthHandler)

	return r
}
