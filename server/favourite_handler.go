package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"waveger/logger"
	"waveger/repository"

	"github.com/gorilla/mux"
)

// ToggleFavouriteRequest is the body for POST /api/favourites.
type ToggleFavouriteRequest struct {
	SongName         string `json:"song_name"`
	Artist           string `json:"artist"`
	ChartID          string `json:"chart_id"`
	ChartTitle       string `json:"chart_title"`
	ImageURL         string `json:"image_url,omitempty"`
	Position         int    `json:"position,omitempty"`
	PeakPosition     int    `json:"peak_position,omitempty"`
	WeeksOnChart     int    `json:"weeks_on_chart,omitempty"`
	LastWeekPosition int    `json:"last_week_position,omitempty"`
}

// GetFavouritesHandler handles GET /api/favourites. An optional chart_id
// query parameter restricts the result to one chart.
func (h *APIHandler) GetFavouritesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chartID := r.URL.Query().Get("chart_id")

	favourites, err := h.favRepo.GetUserFavourites(r.Context(), userID, chartID)
	if err != nil {
		logger.Error("Failed to get favourites",
			logger.Int64("userID", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve favourites")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"favourites": favourites})
}

// ToggleFavouriteHandler handles POST /api/favourites: adds the song to the
// user's favourites, or removes it when already favourited.
func (h *APIHandler) ToggleFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ToggleFavouriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SongName == "" || req.Artist == "" || req.ChartID == "" || req.ChartTitle == "" {
		respondError(w, http.StatusBadRequest, "song_name, artist, chart_id and chart_title are required")
		return
	}

	result, err := h.favRepo.Toggle(r.Context(), userID, repository.ToggleInput{
		SongName:         req.SongName,
		Artist:           req.Artist,
		ChartID:          req.ChartID,
		ChartTitle:       req.ChartTitle,
		ImageURL:         req.ImageURL,
		Position:         req.Position,
		PeakPosition:     req.PeakPosition,
		WeeksOnChart:     req.WeeksOnChart,
		LastWeekPosition: req.LastWeekPosition,
	})
	if err != nil {
		logger.Error("Failed to toggle favourite",
			logger.Int64("userID", userID),
			logger.String("song", req.SongName),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to update favourite status")
		return
	}

	status := http.StatusOK
	message := "Song removed from favourites"
	if result.Action == "added" {
		status = http.StatusCreated
		message = "Song added to favourites"
	}

	respondJSON(w, status, map[string]interface{}{
		"message":      message,
		"favourite_id": result.FavouriteID,
	})
}

// RemoveFavouriteHandler handles DELETE /api/favourites/{id}.
func (h *APIHandler) RemoveFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	favouriteID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid favourite ID")
		return
	}

	removed, err := h.favRepo.Remove(r.Context(), userID, favouriteID)
	if err != nil {
		logger.Error("Failed to remove favourite",
			logger.Int64("userID", userID),
			logger.Int64("favouriteID", favouriteID),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to remove favourite")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "Favourite not found or unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Favourite removed successfully"})
}

// CheckFavouriteHandler handles GET /api/favourites/check.
func (h *APIHandler) CheckFavouriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	songName := r.URL.Query().Get("song_name")
	artist := r.URL.Query().Get("artist")
	chartID := r.URL.Query().Get("chart_id")

	if songName == "" || artist == "" || chartID == "" {
		respondError(w, http.StatusBadRequest, "song_name, artist and chart_id are required")
		return
	}

	status, err := h.favRepo.CheckStatus(r.Context(), userID, songName, artist, chartID)
	if err != nil {
		logger.Error("Failed to check favourite status",
			logger.Int64("userID", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to check favourite status")
		return
	}

	respondJSON(w, http.StatusOK, status)
}
