package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/jeevanpath/backend/internal/adapters/cache"
	"github.com/jeevanpath/backend/internal/adapters/database"
	"github.com/jeevanpath/backend/internal/adapters/events"
	"github.com/jeevanpath/backend/internal/adapters/search"
	"github.com/jeevanpath/backend/internal/api/handlers"
	"github.com/jeevanpath/backend/internal/api/middleware"
	"github.com/jeevanpath/backend/internal/api/routes"
	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/redis"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/typesense"
	"github.com/jeevanpath/backend/internal/infrastructure/localization"
	"github.com/jeevanpath/backend/internal/infrastructure/notifications"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	"github.com/jeevanpath/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis is optional: without it there is no response cache, the resource
	// cache is skipped, events stay in-process and rate limits are per instance.
	var (
		redisConn     *goredis.Client
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without cache and shared event bus")
		eventBus = events.NewMemoryEventBus()
	} else {
		defer redisClient.Close()
		redisConn = redisClient.Client()
		cacheProvider = cache.NewRedisAdapter(redisConn)
		eventBus = events.NewRedisEventBus(redisConn)
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}()

	var searchProvider providers.ResourceSearchProvider
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, nearby searches use PostGIS")
		} else {
			adapter := search.NewTypesenseAdapter(tsClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to initialize Typesense schema, nearby searches use PostGIS")
			} else {
				searchProvider = adapter
			}
		}
	}

	translator, err := localization.NewTranslator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load message catalogs")
	}

	contactChannel, err := newContactChannel(cfg.Contact)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize contact channel")
	}

	// Adapters
	var resourceRepo repositories.ResourceRepository = database.NewResourceAdapter(pgClient)
	if cacheProvider != nil {
		resourceRepo = database.NewCachedResourceAdapter(resourceRepo, cacheProvider)
	}
	userRepo := database.NewUserAdapter(pgClient)
	alertRepo := database.NewAlertAdapter(pgClient)
	serviceRepo := database.NewEmergencyServiceAdapter(pgClient)
	contactRepo := database.NewContactAdapter(pgClient)
	notificationRepo := database.NewNotificationAdapter(sqlx.NewDb(pgClient.DB(), "postgres"))

	// Services
	identities := services.NewIdentityResolver(userRepo)
	feed := services.NewNotificationFeed(notificationRepo, userRepo, resourceRepo, searchProvider, eventBus, translator, cfg.Emergency.ResourceLimit)
	feed.SetIdentityResolver(identities)
	registry := services.NewEmergencyRegistry(serviceRepo, feed)
	registry.SetIdentityResolver(identities)
	contactService := services.NewContactService(contactRepo, contactChannel)
	contactService.SetIdentityResolver(identities)
	resolver := services.NewProviderResolver(resourceRepo, userRepo, cfg.Emergency.ResourceLimit)
	dispatcher := services.NewAlertDispatcher(resolver, alertRepo, contactChannel, eventBus, translator, metrics, services.AlertDispatcherConfig{
		AlertTTL:    cfg.Emergency.AlertTTL,
		Concurrency: cfg.Emergency.DispatchConcurrency,
	})
	trigger := services.NewTriggerService(userRepo, resourceRepo, registry, dispatcher, feed, contactService, translator, metrics, cfg.Emergency)
	lifecycle := services.NewAlertLifecycle(userRepo, alertRepo, resourceRepo, feed, eventBus)
	directory := services.NewProviderDirectory(userRepo, resourceRepo)
	resourceService := services.NewResourceService(resourceRepo, searchProvider)

	if cfg.Sweeper.Enabled {
		sweeper := services.NewExpirySweeper(alertRepo, notificationRepo, metrics)
		if err := sweeper.Start(cfg.Sweeper.Schedule); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Sweeper.Schedule).Msg("failed to start expiry sweeper")
		}
		defer sweeper.Stop(context.Background())
	}

	// HTTP
	opts := routes.Options{
		Resources:      resourceRepo,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        metrics,
	}
	if cacheProvider != nil {
		opts.CacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, cfg.Server.ResourceCacheTTL, metrics)
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit, err = newRateLimit(cfg.RateLimit, redisConn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize rate limiter")
		}
	}

	router := routes.NewRouter(
		handlers.NewEmergencyHandler(registry, trigger, lifecycle, directory),
		handlers.NewContactHandler(contactService),
		handlers.NewNotificationHandler(feed),
		handlers.NewResourceHandler(resourceService),
		handlers.NewSSEHandler(eventBus).WithIdentityResolver(identities),
		opts,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("contact_channel", cfg.Contact.Channel).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	log.Info().Msg("server stopped")
}

func newContactChannel(cfg config.ContactConfig) (providers.ContactChannel, error) {
	switch cfg.Channel {
	case "whatsapp":
		channel, err := notifications.NewWhatsAppChannel(cfg)
		if err != nil {
			return nil, err
		}
		return channel, nil
	default:
		return notifications.NewSimulatedChannel(cfg), nil
	}
}

// newRateLimit shares counters through Redis when it is available
func newRateLimit(cfg config.RateLimitConfig, client *goredis.Client) (func(http.Handler) http.Handler, error) {
	var store limiter.Store
	if client != nil {
		s, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "jeevanpath:ratelimit"})
		if err != nil {
			return nil, err
		}
		store = s
	}
	return middleware.RateLimitMiddleware(cfg.Rate, cfg.TrustForwardHeader, store)
}
