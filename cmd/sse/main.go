// Command sse runs the realtime stream endpoints on their own. It shares the
// Redis event bus with the API servers, so any number of stream servers can
// sit behind a load balancer while alerts are dispatched elsewhere. It reads
// users from PostgreSQL to map external ids and phone numbers onto channels.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/adapters/database"
	"github.com/jeevanpath/backend/internal/adapters/events"
	"github.com/jeevanpath/backend/internal/api/handlers"
	"github.com/jeevanpath/backend/internal/api/middleware"
	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/redis"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	"github.com/jeevanpath/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is required here: an in-process bus would never see alerts
	// published by the API servers.
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient.Client())
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	identities := services.NewIdentityResolver(database.NewUserAdapter(pgClient))
	sseHandler := handlers.NewSSEHandler(eventBus).WithIdentityResolver(identities)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("GET /api/emergency/stream/providers/{userId}", sseHandler.StreamProviderAlerts)
	mux.HandleFunc("GET /api/emergency/stream/requesters/{userId}", sseHandler.StreamRequesterUpdates)
	mux.HandleFunc("GET /api/emergency/stream/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"connectedClients":%d}`, sseHandler.GetClientCount())
	})

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Streams are long lived; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("SSE server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("SSE server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("SSE server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	log.Info().Msg("SSE server stopped")
}
