package server

import (
	"net/http"

	"waveger/logger"
)

// ResetRateLimiterHandler serves POST /api/admin/reset-rate-limiter. It drops
// every rate-limit bucket on the server and requires the X-Admin-Key header.
func (h *APIHandler) ResetRateLimiterHandler(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	logger.Info("Rate limiter reset attempt", logger.String("ip", ip))

	if h.cfg.AdminSecretKey == "" {
		logger.Error("ADMIN_SECRET_KEY not set")
		respondError(w, http.StatusInternalServerError, "Server misconfiguration: admin key not set")
		return
	}

	if r.Header.Get("X-Admin-Key") != h.cfg.AdminSecretKey {
		logger.Warn("Unauthorized rate limiter reset attempt", logger.String("ip", ip))
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.limiters.ResetAll()
	logger.Info("Rate limiter reset", logger.String("ip", ip))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Rate limiter reset successfully",
	})
}

// TestRateLimitHandler serves GET /api/test-rate-limit, a tightly limited
// probe route for verifying limiter behavior from the outside.
func (h *APIHandler) TestRateLimitHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Rate limit test endpoint",
	})
}
