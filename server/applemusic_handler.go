package server

import (
	"net/http"

	"waveger/logger"
)

// AppleMusicTokenHandler serves GET /api/apple-music-token. The frontend uses
// the developer token to query the Apple Music catalog directly.
func (h *APIHandler) AppleMusicTokenHandler(w http.ResponseWriter, r *http.Request) {
	token, err := h.appleTokens.Token()
	if err != nil {
		logger.Error("Apple Music token minting failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
