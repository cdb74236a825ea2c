// auth.go — обработчики /api/auth: регистрация, вход, выход.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "drivebox/internal/api/errors"
	"drivebox/internal/api/middleware"
	"drivebox/internal/service"
)

// AuthHandler — обработчики аутентификации.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler создаёт обработчики аутентификации.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// credentialsRequest — тело запросов регистрации и входа.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register — POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Невалидное тело запроса")
		return
	}

	user, opErr := h.auth.Register(req.Username, req.Password)
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login — POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Невалидное тело запроса")
		return
	}

	res, opErr := h.auth.Login(req.Username, req.Password)
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":    res.Token,
		"user_id":  res.UserID,
		"username": res.Username,
	})
}

// Logout — POST /api/auth/logout. Требует аутентификации:
// идентификатор сессии берётся из контекста, а не из тела запроса.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		apierrors.Unauthorized(w, "Сессия не найдена")
		return
	}

	h.auth.Logout(sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
