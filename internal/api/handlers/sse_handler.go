package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/domain/providers"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

const defaultHeartbeatInterval = 30 * time.Second

// IdentityResolver maps an external id or phone number to the internal user id
type IdentityResolver interface {
	ResolveUserID(ctx context.Context, identifier string) (string, error)
}

// SSEHandler streams alert events to providers and requesters
type SSEHandler struct {
	eventBus   providers.EventBus
	identities IdentityResolver
	heartbeat  time.Duration

	mu      sync.RWMutex
	clients map[string]int // channel -> open streams
}

// NewSSEHandler creates a new SSE handler. eventBus may be nil, in which case
// the stream endpoints answer 503.
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeatInterval,
		clients:   make(map[string]int),
	}
}

// WithHeartbeat overrides the heartbeat interval
func (h *SSEHandler) WithHeartbeat(interval time.Duration) *SSEHandler {
	h.heartbeat = interval
	return h
}

// WithIdentityResolver subscribes streams under the resolved user id, so the
// {userId} path segment may also be an external id or phone number.
func (h *SSEHandler) WithIdentityResolver(identities IdentityResolver) *SSEHandler {
	h.identities = identities
	return h
}

// StreamProviderAlerts handles GET /api/emergency/stream/providers/{userId}
func (h *SSEHandler) StreamProviderAlerts(w http.ResponseWriter, r *http.Request) {
	if userID, ok := h.userID(w, r); ok {
		h.stream(w, r, providers.GetProviderChannel(userID))
	}
}

// StreamRequesterUpdates handles GET /api/emergency/stream/requesters/{userId}
func (h *SSEHandler) StreamRequesterUpdates(w http.ResponseWriter, r *http.Request) {
	if userID, ok := h.userID(w, r); ok {
		h.stream(w, r, providers.GetRequesterChannel(userID))
	}
}

func (h *SSEHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	identifier := r.PathValue("userId")
	if h.identities == nil {
		return identifier, true
	}
	userID, err := h.identities.ResolveUserID(r.Context(), identifier)
	if err != nil {
		log.Error().Err(err).Str("identifier", identifier).Msg("failed to resolve stream user")
		respondWithError(w, http.StatusServiceUnavailable, "realtime updates are not available", apperrors.ErrorTypeExternal)
		return "", false
	}
	return userID, true
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel string) {
	if h.eventBus == nil {
		respondWithError(w, http.StatusServiceUnavailable, "realtime updates are not available", apperrors.ErrorTypeExternal)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported", apperrors.ErrorTypeInternal)
		return
	}

	ctx := r.Context()
	events, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "realtime updates are not available", apperrors.ErrorTypeExternal)
		return
	}

	h.registerClient(channel)
	defer h.unregisterClient(channel)

	// Streams outlive the server's write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to clear write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]interface{}{
		"channel":   channel,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("channel", channel).Msg("stream client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) registerClient(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel]++
	log.Debug().Str("channel", channel).Int("clients", h.clients[channel]).Msg("stream client registered")
}

func (h *SSEHandler) unregisterClient(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel]--
	if h.clients[channel] <= 0 {
		delete(h.clients, channel)
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event")
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// GetClientCount returns the number of open streams
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}
