package routes

import (
	"net/http"

	"github.com/jeevanpath/backend/internal/api/handlers"
	"github.com/jeevanpath/backend/internal/api/middleware"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
)

// Options configures the middleware stack. Nil members are skipped.
type Options struct {
	CacheMiddleware *middleware.CacheMiddleware
	RateLimit       func(http.Handler) http.Handler
	Resources       repositories.ResourceRepository
	AllowedOrigins  []string
	Metrics         *observability.Metrics
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	emergencyHandler    *handlers.EmergencyHandler
	contactHandler      *handlers.ContactHandler
	notificationHandler *handlers.NotificationHandler
	resourceHandler     *handlers.ResourceHandler
	sseHandler          *handlers.SSEHandler

	opts Options
}

// NewRouter creates a new router
func NewRouter(
	emergencyHandler *handlers.EmergencyHandler,
	contactHandler *handlers.ContactHandler,
	notificationHandler *handlers.NotificationHandler,
	resourceHandler *handlers.ResourceHandler,
	sseHandler *handlers.SSEHandler,
	opts Options,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		emergencyHandler:    emergencyHandler,
		contactHandler:      contactHandler,
		notificationHandler: notificationHandler,
		resourceHandler:     resourceHandler,
		sseHandler:          sseHandler,
		opts:                opts,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", handlers.Health)

	// Emergency service and alert pipeline
	r.mux.HandleFunc("POST /api/emergency/toggle", r.emergencyHandler.Toggle)
	r.mux.HandleFunc("GET /api/emergency/service/{userId}", r.emergencyHandler.GetService)
	r.mux.HandleFunc("POST /api/emergency/alert", r.emergencyHandler.TriggerAlert)

	// Provider inbox
	r.mux.HandleFunc("GET /api/emergency/user-alerts/{userId}", r.emergencyHandler.ListAlerts)
	r.mux.HandleFunc("PUT /api/emergency/user-alerts/{alertId}/read", r.emergencyHandler.MarkAlertRead)
	r.mux.HandleFunc("PUT /api/emergency/user-alerts/{alertId}/respond", r.emergencyHandler.RespondToAlert)
	r.mux.HandleFunc("GET /api/emergency/check-provider/{phone}", r.emergencyHandler.CheckProvider)

	// Contacts
	r.mux.HandleFunc("GET /api/emergency/contacts/{userId}", r.contactHandler.ListContacts)
	r.mux.HandleFunc("POST /api/emergency/contacts", r.contactHandler.CreateContact)
	r.mux.HandleFunc("DELETE /api/emergency/contacts/{id}", r.contactHandler.DeleteContact)

	// Requester feed
	r.mux.HandleFunc("GET /api/emergency/notifications/{userId}", r.notificationHandler.ListNotifications)
	r.mux.HandleFunc("PUT /api/emergency/notifications/{id}/read", r.notificationHandler.MarkNotificationRead)

	// Realtime streams
	r.mux.HandleFunc("GET /api/emergency/stream/providers/{userId}", r.sseHandler.StreamProviderAlerts)
	r.mux.HandleFunc("GET /api/emergency/stream/requesters/{userId}", r.sseHandler.StreamRequesterUpdates)

	// Resources
	r.mux.HandleFunc("GET /api/resources/nearby", r.resourceHandler.Nearby)
	r.mux.HandleFunc("GET /api/resources/{id}", r.resourceHandler.GetResource)

	// Apply middleware in reverse order (last middleware wraps first).
	// Observability must wrap the mux directly: the mux records the matched
	// pattern on the request it is handed.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.opts.Metrics)(handler)

	if r.opts.CacheMiddleware != nil {
		handler = r.opts.CacheMiddleware.Middleware(handler)
	}
	if r.opts.Resources != nil {
		handler = middleware.LoadersMiddleware(r.opts.Resources)(handler)
	}
	if r.opts.RateLimit != nil {
		handler = r.opts.RateLimit(handler)
	}

	handler = middleware.LoggingMiddleware(handler)

	// CORS wraps everything so headers are set even on cache hits and 429s
	origins := r.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler = middleware.CORSMiddleware(origins)(handler)

	return handler
}
