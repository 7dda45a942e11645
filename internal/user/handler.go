package user

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"streamhub-api/internal/auth"
	"streamhub-api/internal/httpx"
)

const (
	maxJSONBodyBytes   = 1 << 20
	maxUploadSizeBytes = 10 << 20
)

// Store is the profile persistence contract; *Repository implements it.
type Store interface {
	UpdateAccount(ctx context.Context, userID, fullName, email string) (Profile, error)
	UpdateAvatar(ctx context.Context, userID, avatarURL string) (Profile, error)
	UpdateCoverImage(ctx context.Context, userID, coverURL string) (Profile, error)
	ProfileByUsername(ctx context.Context, username string) (Profile, error)
}

type ImageUploader interface {
	UploadImage(ctx context.Context, imageSource string) (string, error)
}

type Handler struct {
	store    Store
	uploader ImageUploader
}

func NewHandler(store Store, uploader ImageUploader) *Handler {
	return &Handler{store: store, uploader: uploader}
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var body updateAccountRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	body.FullName = strings.TrimSpace(body.FullName)
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.FullName == "" || body.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "full name and email are required")
		return
	}

	profile, err := h.store.UpdateAccount(r.Context(), userID, body.FullName, body.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, ErrEmailTaken):
			httpx.WriteError(w, http.StatusBadRequest, "email already taken")
		default:
			sentry.CaptureException(err)
			httpx.WriteError(w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "account details updated successfully", profile)
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.store.UpdateAvatar)
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.store.UpdateCoverImage)
}

func (h *Handler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.store.ProfileByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "profile fetched successfully", profile)
}

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field string, apply func(context.Context, string, string) (Profile, error)) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	source, err := imageSource(r, field)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploadedURL, err := h.uploader.UploadImage(r.Context(), source)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusBadGateway, fmt.Sprintf("failed to upload %s image", field))
		return
	}

	profile, err := apply(r.Context(), userID, uploadedURL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to update %s", field))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, fmt.Sprintf("%s updated successfully", field), profile)
}

func imageSource(r *http.Request, field string) (string, error) {
	if err := r.ParseMultipartForm(maxUploadSizeBytes); err != nil {
		return "", fmt.Errorf("invalid multipart form")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%s image is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s file", field)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s file is empty", field)
	}
	if len(data) > maxUploadSizeBytes {
		return "", fmt.Errorf("%s file is too large", field)
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", fmt.Errorf("%s must be an image", field)
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
