// Пакет auth — серверное хранилище сессий.
//
// Сессия создаётся при входе и проверяется на каждом запросе:
// токен без живой серверной записи недействителен (в отличие от
// чисто клиентской схемы, где выданный идентификатор больше
// никогда не сверяется). Logout отзывает сессию немедленно.
//
// Хранилище — expirable LRU: сессии истекают по TTL, общее число
// ограничено, при переполнении вытесняются самые старые.
package auth

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Session — серверная запись о входе пользователя.
type Session struct {
	// ID — идентификатор сессии (UUID v4), попадает в jti токена
	ID string
	// UserID — владелец сессии
	UserID string
	// Username — имя пользователя на момент входа
	Username string
	// CreatedAt — время входа (UTC)
	CreatedAt time.Time
}

// SessionStore — потокобезопасное хранилище сессий с TTL.
type SessionStore struct {
	cache  *expirable.LRU[string, Session]
	logger *slog.Logger
}

// NewSessionStore создаёт хранилище сессий.
// maxSessions — предел одновременных сессий, ttl — срок жизни сессии.
func NewSessionStore(maxSessions int, ttl time.Duration, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		cache:  expirable.NewLRU[string, Session](maxSessions, nil, ttl),
		logger: logger.With(slog.String("component", "sessions")),
	}
}

// Create регистрирует новую сессию для пользователя.
func (s *SessionStore) Create(userID, username string) Session {
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.cache.Add(sess.ID, sess)

	s.logger.Debug("Сессия создана",
		slog.String("session_id", sess.ID),
		slog.String("user_id", userID),
	)
	return sess
}

// Get возвращает живую сессию по идентификатору.
// Истёкшая или отозванная сессия не находится.
func (s *SessionStore) Get(sessionID string) (Session, bool) {
	return s.cache.Get(sessionID)
}

// Revoke отзывает сессию. Возвращает true, если сессия существовала.
func (s *SessionStore) Revoke(sessionID string) bool {
	ok := s.cache.Remove(sessionID)
	if ok {
		s.logger.Debug("Сессия отозвана", slog.String("session_id", sessionID))
	}
	return ok
}

// Len возвращает количество живых сессий.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}
