package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"waveger/config"
	"waveger/core/applemusic"
	"waveger/core/auth"
	"waveger/core/charts"
	"waveger/repository"
)

type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUsername contextKey = "username"
)

// APIHandler handles all API requests.
type APIHandler struct {
	chartService *charts.Service
	userRepo     repository.UserRepository
	favRepo      repository.FavouriteRepository
	tokens       *auth.TokenService
	appleTokens  *applemusic.TokenMinter
	limiters     *Limiters
	cfg          *config.Config
}

// NewAPIHandler creates the API handler with its dependencies.
func NewAPIHandler(
	chartService *charts.Service,
	userRepo repository.UserRepository,
	favRepo repository.FavouriteRepository,
	tokens *auth.TokenService,
	appleTokens *applemusic.TokenMinter,
	limiters *Limiters,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		chartService: chartService,
		userRepo:     userRepo,
		favRepo:      favRepo,
		tokens:       tokens,
		appleTokens:  appleTokens,
		limiters:     limiters,
		cfg:          cfg,
	}
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error body with the given status.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// AuthMiddleware checks for a valid JWT bearer token and injects the user
// identity into the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := h.tokens.ParseToken(parts[1])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}
