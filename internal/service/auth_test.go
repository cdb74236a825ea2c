package service

import (
	"path/filepath"
	"testing"
	"time"

	"drivebox/internal/auth"
	"drivebox/internal/storage/metastore"
)

func newTestAuthService(t *testing.T) (*AuthService, *auth.SessionStore) {
	t.Helper()

	meta, err := metastore.Open(filepath.Join(t.TempDir(), "db.json"), testLogger())
	if err != nil {
		t.Fatalf("Ошибка открытия metastore: %v", err)
	}
	sessions := auth.NewSessionStore(100, time.Hour, testLogger())
	svc := NewAuthService(meta, sessions, []byte("test-secret"), time.Hour, testLogger())
	return svc, sessions
}

func TestRegister_And_Login(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, opErr := svc.Register("alice", "pass1234")
	if opErr != nil {
		t.Fatalf("Ошибка регистрации: %v", opErr)
	}
	if user.Username != "alice" {
		t.Errorf("Имя пользователя %q, ожидалось alice", user.Username)
	}
	if user.PasswordHash == "pass1234" {
		t.Error("Пароль сохранён открытым текстом")
	}

	res, opErr := svc.Login("alice", "pass1234")
	if opErr != nil {
		t.Fatalf("Ошибка входа: %v", opErr)
	}
	if res.Token == "" {
		t.Error("Вход не вернул токен")
	}
	if res.UserID != user.ID {
		t.Errorf("UserID %q, ожидался %q", res.UserID, user.ID)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, opErr := svc.Register("alice", "pass1234"); opErr != nil {
		t.Fatalf("Ошибка первой регистрации: %v", opErr)
	}

	_, opErr := svc.Register("alice", "другой-пароль")
	if opErr == nil {
		t.Fatal("Ожидалась ошибка повторной регистрации")
	}
	if opErr.Code != "DUPLICATE_USERNAME" {
		t.Errorf("Код ошибки %q, ожидался DUPLICATE_USERNAME", opErr.Code)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, opErr := svc.Register("alice", "abc")
	if opErr == nil {
		t.Fatal("Ожидалась ошибка короткого пароля")
	}
	if opErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Код ошибки %q, ожидался VALIDATION_ERROR", opErr.Code)
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, opErr := svc.Register("alice", "pass1234"); opErr != nil {
		t.Fatalf("Ошибка регистрации: %v", opErr)
	}

	// Неверный пароль и несуществующий пользователь дают
	// одинаковый ответ
	_, wrongPass := svc.Login("alice", "неверный")
	_, noUser := svc.Login("кто-то", "pass1234")

	for name, opErr := range map[string]*OpError{"неверный пароль": wrongPass, "нет пользователя": noUser} {
		if opErr == nil {
			t.Fatalf("%s: ожидалась ошибка", name)
		}
		if opErr.Code != "UNAUTHORIZED" {
			t.Errorf("%s: код %q, ожидался UNAUTHORIZED", name, opErr.Code)
		}
	}
	if wrongPass.Message != noUser.Message {
		t.Error("Сообщения об ошибке входа различаются и раскрывают существование имени")
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	svc, sessions := newTestAuthService(t)

	if _, opErr := svc.Register("alice", "pass1234"); opErr != nil {
		t.Fatalf("Ошибка регистрации: %v", opErr)
	}
	res, opErr := svc.Login("alice", "pass1234")
	if opErr != nil {
		t.Fatalf("Ошибка входа: %v", opErr)
	}
	if sessions.Len() != 1 {
		t.Fatalf("Живых сессий %d, ожидалась 1", sessions.Len())
	}

	claims, err := auth.ParseToken([]byte("test-secret"), res.Token)
	if err != nil {
		t.Fatalf("Ошибка разбора токена: %v", err)
	}

	svc.Logout(claims.SessionID)

	if _, ok := sessions.Get(claims.SessionID); ok {
		t.Error("Сессия жива после выхода")
	}

	// Повторный выход по той же сессии безвреден
	svc.Logout(claims.SessionID)
}
