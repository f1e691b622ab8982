package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"waveger/core/auth"
	"waveger/logger"
	"waveger/model"
	"waveger/repository"
)

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login request body. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse is returned on successful login or registration.
type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterHandler handles POST /api/auth/register.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("Password hashing failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}

	userID, err := h.userRepo.CreateUser(r.Context(), user)
	if err != nil {
		var dup *repository.ErrDuplicateUser
		if errors.As(err, &dup) {
			msg := "Username already taken"
			if dup.Field == "email" {
				msg = "Email already registered"
			}
			respondError(w, http.StatusConflict, msg)
			return
		}
		logger.Error("User creation failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	user.ID = userID

	token, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("Token generation failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	logger.Info("User registered",
		logger.Int64("userID", user.ID),
		logger.String("username", user.Username))

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// LoginHandler handles POST /api/auth/login.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	// Email or username login.
	var (
		user *model.User
		err  error
	)
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(r.Context(), req.Username)
	}
	if err != nil {
		logger.Error("User lookup failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.userRepo.UpdateLastLogin(r.Context(), user.ID); err != nil {
		// Non-fatal: the login still succeeds.
		logger.Warn("Failed to update last login",
			logger.Int64("userID", user.ID), logger.ErrorField(err))
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("Token generation failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// ProfileHandler handles GET /api/auth/profile.
func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Error("Profile fetch failed",
			logger.Int64("userID", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
