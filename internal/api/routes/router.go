package routes

import (
	"net/http"

	"github.com/contentloop/contentloop/internal/api/handlers"
	"github.com/contentloop/contentloop/internal/api/middleware"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	routingHandler *handlers.RoutingHandler
	runHandler     *handlers.RunHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	routingHandler *handlers.RoutingHandler,
	runHandler *handlers.RunHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		routingHandler: routingHandler,
		runHandler:     runHandler,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Routing endpoints
	r.mux.HandleFunc("POST /api/route", r.routingHandler.ResolveRoute)
	r.mux.HandleFunc("POST /api/route/adaptive", r.routingHandler.ResolveAdaptiveRoute)
	r.mux.HandleFunc("POST /api/batch/plan", r.routingHandler.PlanBatch)

	// Generation run endpoints
	r.mux.HandleFunc("POST /api/runs", r.runHandler.CreateRun)
	r.mux.HandleFunc("GET /api/runs/{id}", r.runHandler.GetRun)
	r.mux.HandleFunc("POST /api/runs/{id}/complete", r.runHandler.CompleteRun)
	r.mux.HandleFunc("POST /api/runs/{id}/feedback", r.runHandler.SubmitFeedback)
	r.mux.HandleFunc("GET /api/runs/{id}/feedback", r.runHandler.ListFeedback)

	// Decision endpoints
	r.mux.HandleFunc("GET /api/decisions/{id}", r.runHandler.GetDecision)
	r.mux.HandleFunc("POST /api/decisions/{id}/outcome", r.runHandler.UpdateOutcome)

	// Learning endpoints
	r.mux.HandleFunc("GET /api/clients/{id}/recommendations", r.runHandler.GetRecommendations)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on errors
	handler = middleware.CORSMiddleware(handler)

	return handler
}
