package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"

	"streamhub-api/internal/httpx"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const (
	maxJSONBodyBytes   = 1 << 20
	maxUploadSizeBytes = 10 << 20
	minPasswordLength  = 8
	maxPasswordLength  = 200
)

type ImageUploader interface {
	UploadImage(ctx context.Context, imageSource string) (string, error)
}

type Handler struct {
	service  *Service
	issuer   *Issuer
	uploader ImageUploader
}

func NewHandler(service *Service, issuer *Issuer, uploader ImageUploader) *Handler {
	return &Handler{service: service, issuer: issuer, uploader: uploader}
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"userName"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type sessionResponse struct {
	User         Projection `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

// Register creates a user from a multipart form. The avatar is required and
// uploaded before the user row exists; a failed avatar upload aborts
// registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSizeBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	params := RegisterParams{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.TrimSpace(strings.ToLower(r.FormValue("email"))),
		Username: strings.TrimSpace(strings.ToLower(r.FormValue("userName"))),
		Password: r.FormValue("password"),
	}

	if errs := validateRegistration(params); len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", errs...)
		return
	}

	avatarSource, hasAvatar, err := imageFieldSource(r, "avatar")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	coverSource, hasCover, err := imageFieldSource(r, "coverImage")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if hasAvatar {
		url, err := h.uploader.UploadImage(r.Context(), avatarSource)
		if err != nil {
			sentry.CaptureException(err)
			httpx.WriteError(w, http.StatusBadGateway, "failed to upload avatar image")
			return
		}
		params.AvatarURL = url
	}
	if hasCover {
		url, err := h.uploader.UploadImage(r.Context(), coverSource)
		if err != nil {
			sentry.CaptureException(err)
			httpx.WriteError(w, http.StatusBadGateway, "failed to upload cover image")
			return
		}
		params.CoverImageURL = url
	}

	user, err := h.service.Register(r.Context(), params)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			httpx.WriteError(w, http.StatusBadRequest, "user with this email or username already exists")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, "user registered successfully", user.Project())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	identifier := strings.TrimSpace(body.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(body.Username)
	}
	if identifier == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email or username is required")
		return
	}
	if body.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "password is required")
		return
	}

	user, pair, err := h.service.Login(r.Context(), identifier, body.Password)
	if err != nil {
		// Unknown identifier and wrong password are deliberately
		// indistinguishable to the client.
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid email/username or password")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	setSessionCookies(w, pair, h.issuer.AccessTTL(), h.issuer.RefreshTTL())
	httpx.WriteJSON(w, http.StatusOK, "user logged in successfully", sessionResponse{
		User:         user.Project(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	clearSessionCookies(w)
	httpx.WriteJSON(w, http.StatusOK, "user logged out successfully", nil)
}

// Refresh rotates the session using the refresh token from the cookie or,
// failing that, the JSON body. Every failure is a bare 401: the client never
// learns whether the token was malformed, expired, or reused.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := refreshTokenFromRequest(r)
	if presented == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	user, pair, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenReuse) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	setSessionCookies(w, pair, h.issuer.AccessTTL(), h.issuer.RefreshTTL())
	httpx.WriteJSON(w, http.StatusOK, "access token refreshed", sessionResponse{
		User:         user.Project(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	var body changePasswordRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	if len(body.NewPassword) < minPasswordLength || len(body.NewPassword) > maxPasswordLength {
		httpx.WriteError(w, http.StatusBadRequest, "new password format is invalid")
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, body.OldPassword, body.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusBadRequest, "old password is incorrect")
		case errors.Is(err, ErrUserNotFound):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		default:
			sentry.CaptureException(err)
			httpx.WriteError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "password changed successfully", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to fetch current user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "current user fetched successfully", user.Project())
}

func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var body refreshRequest
	r.Body = http.MaxBytesReader(nil, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ""
	}

	return strings.TrimSpace(body.RefreshToken)
}

func validateRegistration(params RegisterParams) []string {
	var errs []string
	if params.FullName == "" {
		errs = append(errs, "full name is required")
	}
	if params.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegex.MatchString(params.Email) {
		errs = append(errs, "email format is invalid")
	}
	if params.Username == "" {
		errs = append(errs, "username is required")
	} else if !usernameRegex.MatchString(params.Username) {
		errs = append(errs, "username format is invalid")
	}
	if params.Password == "" {
		errs = append(errs, "password is required")
	} else if len(params.Password) < minPasswordLength || len(params.Password) > maxPasswordLength {
		errs = append(errs, "password format is invalid")
	}
	return errs
}

// imageFieldSource reads an optional multipart image field into the data-URI
// form the upload client expects.
func imageFieldSource(r *http.Request, field string) (string, bool, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("invalid %s file", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s file", field)
	}
	if len(data) == 0 {
		return "", false, fmt.Errorf("%s file is empty", field)
	}
	if len(data) > maxUploadSizeBytes {
		return "", false, fmt.Errorf("%s file is too large", field)
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", false, fmt.Errorf("%s must be an image", field)
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), true, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
