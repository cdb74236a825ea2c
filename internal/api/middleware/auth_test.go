package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"drivebox/internal/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// okHandler отвечает 200 и записывает владельца из контекста.
func okHandler(gotUserID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

// setup создаёт middleware, хранилище сессий и живую сессию с токеном.
func setup(t *testing.T) (*SessionAuth, *auth.SessionStore, auth.Session, string) {
	t.Helper()
	secret := []byte("test-secret")
	sessions := auth.NewSessionStore(100, time.Hour, testLogger())
	sess := sessions.Create("user-1", "alice")

	token, err := auth.IssueToken(secret, sess, time.Hour)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	return NewSessionAuth(secret, sessions, testLogger()), sessions, sess, token
}

// TestMiddleware_ValidToken проверяет пропуск запроса с валидным токеном.
func TestMiddleware_ValidToken(t *testing.T) {
	mw, _, _, token := setup(t)

	var gotUserID string
	handler := mw.Middleware()(okHandler(&gotUserID))

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("ожидался владелец 'user-1', получен %q", gotUserID)
	}
}

// TestMiddleware_QueryToken проверяет токен из query-параметра.
func TestMiddleware_QueryToken(t *testing.T) {
	mw, _, _, token := setup(t)

	var gotUserID string
	handler := mw.Middleware()(okHandler(&gotUserID))

	req := httptest.NewRequest(http.MethodGet, "/api/files?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
}

// TestMiddleware_NoToken проверяет отказ без токена.
func TestMiddleware_NoToken(t *testing.T) {
	mw, _, _, _ := setup(t)

	var gotUserID string
	handler := mw.Middleware()(okHandler(&gotUserID))

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получен %d", rec.Code)
	}
}

// TestMiddleware_GarbageToken проверяет отказ с мусорным токеном.
func TestMiddleware_GarbageToken(t *testing.T) {
	mw, _, _, _ := setup(t)

	handler := mw.Middleware()(okHandler(new(string)))

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получен %d", rec.Code)
	}
}

// TestMiddleware_RevokedSession проверяет, что токен без живой
// серверной сессии недействителен.
func TestMiddleware_RevokedSession(t *testing.T) {
	mw, sessions, sess, token := setup(t)

	sessions.Revoke(sess.ID)

	handler := mw.Middleware()(okHandler(new(string)))

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("токен отозванной сессии должен давать 401, получен %d", rec.Code)
	}
}

// TestMiddleware_BadScheme проверяет отказ для не-Bearer схемы.
func TestMiddleware_BadScheme(t *testing.T) {
	mw, _, _, token := setup(t)

	handler := mw.Middleware()(okHandler(new(string)))

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получен %d", rec.Code)
	}
}
