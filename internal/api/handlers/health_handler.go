package handlers

import (
	"net/http"
	"time"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, envelope{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
