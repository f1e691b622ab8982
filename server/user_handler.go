package server

import (
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"waveger/logger"
	"waveger/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxProfilePicSize caps profile picture uploads at 5 MB.
const maxProfilePicSize = 5 << 20

const profilePicPrefix = "profile-pics/"

// UploadProfilePicHandler handles POST /api/users/profile-pic. The picture is
// stored in MinIO and the previous one, if any, is removed.
func (h *APIHandler) UploadProfilePicHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxProfilePicSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("profile_pic")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		respondError(w, http.StatusBadRequest, "Unsupported image type")
		return
	}

	objectName := profilePicPrefix + uuid.New().String() + ext
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := storage.UploadObject(r.Context(), objectName, file, header.Size, contentType); err != nil {
		logger.Error("Profile picture upload failed",
			logger.Int64("userID", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to store profile picture")
		return
	}

	oldObject, err := h.userRepo.UpdateProfilePic(r.Context(), userID, objectName)
	if err != nil {
		logger.Error("Profile picture update failed",
			logger.Int64("userID", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to update profile picture")
		return
	}

	if oldObject != "" {
		if err := storage.RemoveObject(r.Context(), oldObject); err != nil {
			// The new picture is already in place; leaking the old object is
			// not worth failing the request.
			logger.Warn("Failed to remove old profile picture",
				logger.String("object", oldObject), logger.ErrorField(err))
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Profile picture updated successfully",
		"filename": path.Base(objectName),
	})
}

// GetProfilePicHandler handles GET /api/users/profile-pic/{name}.
func (h *APIHandler) GetProfilePicHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		respondError(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	obj, err := storage.GetObject(r.Context(), profilePicPrefix+name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Storage not available")
		return
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}

	if stat.ContentType != "" {
		w.Header().Set("Content-Type", stat.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("Profile picture stream interrupted",
			logger.String("object", name), logger.ErrorField(err))
	}
}
