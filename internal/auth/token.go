// token.go — выпуск и проверка сессионных токенов (HS256 JWT).
// Токен несёт sub = идентификатор пользователя и jti = идентификатор
// серверной сессии; сам по себе он не даёт доступа — middleware
// дополнительно сверяет jti с хранилищем сессий.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims — результат проверки токена.
type TokenClaims struct {
	// UserID — sub токена
	UserID string
	// SessionID — jti токена
	SessionID string
}

// IssueToken подписывает токен для сессии с указанным сроком жизни.
func IssueToken(secret []byte, sess Session, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sess.UserID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
// Возвращает ошибку для невалидного, просроченного или подписанного
// другим алгоритмом токена.
func ParseToken(secret []byte, tokenString string) (*TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("невалидный токен: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("невалидный токен")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("в токене отсутствует sub или jti")
	}

	return &TokenClaims{
		UserID:    claims.Subject,
		SessionID: claims.ID,
	}, nil
}
