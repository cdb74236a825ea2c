// auth.go — регистрация, вход и выход пользователей.
// Пароли хранятся как bcrypt-хэши, вход создаёт серверную сессию
// и выдаёт подписанный токен с её идентификатором.
package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"drivebox/internal/auth"
	"drivebox/internal/domain/model"
	"drivebox/internal/storage/metastore"
)

// minPasswordLength — минимальная длина пароля при регистрации.
const minPasswordLength = 4

// AuthService — учётные записи и сессии.
type AuthService struct {
	meta       *metastore.Store
	sessions   *auth.SessionStore
	secret     []byte
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(meta *metastore.Store, sessions *auth.SessionStore, secret []byte, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		meta:       meta,
		sessions:   sessions,
		secret:     secret,
		sessionTTL: sessionTTL,
		logger:     logger.With(slog.String("component", "auth_service")),
	}
}

// Register создаёт нового пользователя.
func (s *AuthService) Register(username, password string) (*model.User, *OpError) {
	if username == "" {
		return nil, errValidation("Не указано имя пользователя")
	}
	if len(password) < minPasswordLength {
		return nil, errValidation("Пароль должен быть не короче 4 символов")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Ошибка хэширования пароля", slog.String("error", err.Error()))
		return nil, errStorageIO("Ошибка создания пользователя")
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.meta.CreateUser(user); err != nil {
		if errors.Is(err, metastore.ErrDuplicateUsername) {
			return nil, errDuplicateUsername(username)
		}
		s.logger.Error("Ошибка записи пользователя",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, errStorageIO("Ошибка создания пользователя")
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)
	return user, nil
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	Token    string
	UserID   string
	Username string
}

// Login проверяет учётные данные и создаёт сессию.
// Несуществующий пользователь и неверный пароль дают одинаковый
// ответ — существование имени не раскрывается.
func (s *AuthService) Login(username, password string) (*LoginResult, *OpError) {
	if username == "" || password == "" {
		return nil, errValidation("Не указаны имя пользователя или пароль")
	}

	user := s.meta.FindUser(username)
	if user == nil {
		return nil, errUnauthorized("Неверное имя пользователя или пароль")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Неудачная попытка входа", slog.String("username", username))
		return nil, errUnauthorized("Неверное имя пользователя или пароль")
	}

	sess := s.sessions.Create(user.ID, user.Username)

	token, err := auth.IssueToken(s.secret, sess, s.sessionTTL)
	if err != nil {
		s.sessions.Revoke(sess.ID)
		s.logger.Error("Ошибка выпуска токена", slog.String("error", err.Error()))
		return nil, errStorageIO("Ошибка создания сессии")
	}

	s.logger.Info("Пользователь вошёл",
		slog.String("user_id", user.ID),
		slog.String("username", username),
		slog.String("session_id", sess.ID),
	)

	return &LoginResult{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// Logout отзывает сессию. Повторный выход по той же сессии безвреден.
func (s *AuthService) Logout(sessionID string) {
	if s.sessions.Revoke(sessionID) {
		s.logger.Info("Пользователь вышел", slog.String("session_id", sessionID))
	}
}
