package auth

import (
	"strings"
	"testing"
	"time"
)

// TestIssueAndParse проверяет выпуск и разбор токена.
func TestIssueAndParse(t *testing.T) {
	secret := []byte("test-secret")
	sess := Session{ID: "sess-1", UserID: "user-1", Username: "alice"}

	token, err := IssueToken(secret, sess, time.Hour)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ошибка разбора токена: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("ожидался sub 'user-1', получен %q", claims.UserID)
	}
	if claims.SessionID != "sess-1" {
		t.Errorf("ожидался jti 'sess-1', получен %q", claims.SessionID)
	}
}

// TestParse_WrongSecret проверяет отклонение токена с чужой подписью.
func TestParse_WrongSecret(t *testing.T) {
	sess := Session{ID: "sess-1", UserID: "user-1"}

	token, err := IssueToken([]byte("secret-a"), sess, time.Hour)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	if _, err := ParseToken([]byte("secret-b"), token); err == nil {
		t.Error("токен с чужой подписью должен отклоняться")
	}
}

// TestParse_Expired проверяет отклонение просроченного токена.
func TestParse_Expired(t *testing.T) {
	secret := []byte("test-secret")
	sess := Session{ID: "sess-1", UserID: "user-1"}

	token, err := IssueToken(secret, sess, -time.Minute)
	if err != nil {
		t.Fatalf("ошибка выпуска токена: %v", err)
	}

	if _, err := ParseToken(secret, token); err == nil {
		t.Error("просроченный токен должен отклоняться")
	}
}

// TestParse_Garbage проверяет отклонение мусорной строки.
func TestParse_Garbage(t *testing.T) {
	if _, err := ParseToken([]byte("secret"), "not.a.token"); err == nil {
		t.Error("мусорная строка должна отклоняться")
	}
	if _, err := ParseToken([]byte("secret"), strings.Repeat("x", 100)); err == nil {
		t.Error("мусорная строка должна отклоняться")
	}
}
