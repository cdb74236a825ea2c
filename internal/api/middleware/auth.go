// auth.go — middleware аутентификации по сессионному токену.
//
// Токен (HS256 JWT) извлекается из заголовка Authorization
// (Bearer <token>) или из query-параметра token — последний нужен
// браузерным ссылкам на скачивание и изображения, где заголовок
// поставить нельзя.
//
// Проверка на КАЖДОМ запросе: подпись и срок токена, живая сессия
// в серверном хранилище по jti, совпадение владельца сессии
// с sub токена. Идентификатор владельца, присланный клиентом,
// никогда не принимается на веру.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "drivebox/internal/api/errors"
	"drivebox/internal/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyUserID — ключ владельца запроса в контексте.
	ContextKeyUserID contextKey = "auth_user_id"
	// ContextKeyUsername — ключ имени пользователя в контексте.
	ContextKeyUsername contextKey = "auth_username"
	// ContextKeySessionID — ключ идентификатора сессии в контексте.
	ContextKeySessionID contextKey = "auth_session_id"
)

// SessionAuth — middleware аутентификации по серверным сессиям.
type SessionAuth struct {
	secret   []byte
	sessions *auth.SessionStore
	logger   *slog.Logger
}

// NewSessionAuth создаёт middleware аутентификации.
func NewSessionAuth(secret []byte, sessions *auth.SessionStore, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		secret:   secret,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware возвращает HTTP middleware, требующее валидную сессию.
// Помещает владельца, имя пользователя и идентификатор сессии
// в контекст запроса.
func (a *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				apierrors.Unauthorized(w, "Требуется авторизация")
				return
			}

			claims, err := auth.ParseToken(a.secret, tokenString)
			if err != nil {
				a.logger.Debug("Токен не прошёл проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			// Сверяем токен с серверной сессией
			sess, ok := a.sessions.Get(claims.SessionID)
			if !ok {
				apierrors.Unauthorized(w, "Сессия не найдена или истекла")
				return
			}
			if sess.UserID != claims.UserID {
				// jti живой, но принадлежит другому пользователю
				apierrors.Unauthorized(w, "Сессия не соответствует пользователю")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, sess.UserID)
			ctx = context.WithValue(ctx, ContextKeyUsername, sess.Username)
			ctx = context.WithValue(ctx, ContextKeySessionID, sess.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken достаёт токен из Authorization: Bearer <token>
// или из query-параметра token.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// UserIDFromContext извлекает владельца запроса из контекста.
// Возвращает пустую строку, если запрос не аутентифицирован.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(ContextKeyUserID).(string)
	return userID
}

// UsernameFromContext извлекает имя пользователя из контекста.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(ContextKeyUsername).(string)
	return username
}

// SessionIDFromContext извлекает идентификатор сессии из контекста.
func SessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(ContextKeySessionID).(string)
	return sessionID
}
