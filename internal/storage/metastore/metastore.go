// Пакет metastore — хранилище метаданных в одном сериализованном
// документе db.json ({"users": [...], "files": [...]}).
//
// Документ загружается в память при старте (создаётся пустым, если
// отсутствует) и целиком перезаписывается на диск после каждой
// мутации: temp → fsync → atomic rename.
//
// Все мутации выполняются под одним sync.RWMutex — цикл
// read-modify-write атомарен относительно других мутаций, потерянные
// обновления исключены. Чтения берут RLock и возвращают копии.
package metastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"drivebox/internal/domain/model"
)

var (
	// ErrDuplicateUsername — пользователь с таким именем уже существует.
	ErrDuplicateUsername = errors.New("имя пользователя уже занято")
	// ErrFileNotFound — запись о файле не найдена (или принадлежит
	// другому владельцу — снаружи эти случаи неразличимы).
	ErrFileNotFound = errors.New("запись о файле не найдена")
)

// document — структура db.json целиком.
type document struct {
	Users []*model.User       `json:"users"`
	Files []*model.FileRecord `json:"files"`
}

// Store — хранилище метаданных с единым документом.
type Store struct {
	mu     sync.RWMutex
	path   string
	doc    document
	ready  bool
	logger *slog.Logger
}

// Open загружает документ из path или создаёт пустой, если файл
// отсутствует. Вызывается при старте до начала обслуживания запросов.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.With(slog.String("component", "metastore")),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("ошибка десериализации %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Первый запуск: создаём пустой документ на диске
		s.doc = document{Users: []*model.User{}, Files: []*model.FileRecord{}}
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("ошибка создания пустого документа: %w", err)
		}
	default:
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}

	s.ready = true
	s.logger.Info("Документ метаданных загружен",
		slog.String("path", path),
		slog.Int("users", len(s.doc.Users)),
		slog.Int("files", len(s.doc.Files)),
	)

	return s, nil
}

// IsReady возвращает true, если документ загружен.
func (s *Store) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// CheckReady — проверка готовности для readiness probe.
func (s *Store) CheckReady() (status, message string) {
	if s.IsReady() {
		return "ok", ""
	}
	return "fail", "документ метаданных не загружен"
}

// persistLocked атомарно записывает документ целиком на диск.
// Вызывается только под s.mu (запись).
// Паттерн: JSON → temp файл → fsync → atomic rename.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации документа: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// --- Users ---

// FindUser возвращает пользователя по имени или nil.
func (s *Store) FindUser(username string) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if u.Username == username {
			copied := *u
			return &copied
		}
	}
	return nil
}

// FindUserByID возвращает пользователя по идентификатору или nil.
func (s *Store) FindUserByID(id string) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if u.ID == id {
			copied := *u
			return &copied
		}
	}
	return nil
}

// CreateUser добавляет пользователя в документ и сохраняет его.
// Возвращает ErrDuplicateUsername, если имя уже занято.
// При ошибке записи на диск in-memory документ откатывается.
func (s *Store) CreateUser(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.Username == user.Username {
			return fmt.Errorf("%w: %s", ErrDuplicateUsername, user.Username)
		}
	}

	copied := *user
	s.doc.Users = append(s.doc.Users, &copied)

	if err := s.persistLocked(); err != nil {
		s.doc.Users = s.doc.Users[:len(s.doc.Users)-1]
		return err
	}
	return nil
}

// --- Files ---

// ListFiles возвращает копии всех записей владельца.
// Порядок не определён — сортировка и фильтрация на стороне вызывающего.
func (s *Store) ListFiles(ownerID string) []*model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.FileRecord
	for _, f := range s.doc.Files {
		if f.OwnerID == ownerID {
			copied := *f
			result = append(result, &copied)
		}
	}
	return result
}

// AllFiles возвращает копии всех записей без фильтра по владельцу.
// Используется только сверкой целостности.
func (s *Store) AllFiles() []*model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.FileRecord, 0, len(s.doc.Files))
	for _, f := range s.doc.Files {
		copied := *f
		result = append(result, &copied)
	}
	return result
}

// FindFile возвращает запись по id, если она принадлежит ownerID.
// Чужая запись неотличима от отсутствующей: владение проверяется
// здесь, а не в вызывающем коде.
func (s *Store) FindFile(fileID, ownerID string) *model.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.doc.Files {
		if f.ID == fileID && f.OwnerID == ownerID {
			copied := *f
			return &copied
		}
	}
	return nil
}

// InsertFile добавляет запись в документ и сохраняет его.
// При ошибке записи на диск in-memory документ откатывается.
func (s *Store) InsertFile(rec *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	s.doc.Files = append(s.doc.Files, &copied)

	if err := s.persistLocked(); err != nil {
		s.doc.Files = s.doc.Files[:len(s.doc.Files)-1]
		return err
	}
	return nil
}

// UpdateFile заменяет существующую запись (по id и владельцу)
// и сохраняет документ. Возвращает ErrFileNotFound, если записи нет.
func (s *Store) UpdateFile(rec *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.doc.Files {
		if f.ID == rec.ID && f.OwnerID == rec.OwnerID {
			prev := s.doc.Files[i]
			copied := *rec
			s.doc.Files[i] = &copied

			if err := s.persistLocked(); err != nil {
				s.doc.Files[i] = prev
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileNotFound, rec.ID)
}

// DeleteFile удаляет запись по id, если она принадлежит ownerID,
// и сохраняет документ. Возвращает true, если запись была удалена.
func (s *Store) DeleteFile(fileID, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.doc.Files {
		if f.ID == fileID && f.OwnerID == ownerID {
			removed := s.doc.Files[i]
			s.doc.Files = append(s.doc.Files[:i], s.doc.Files[i+1:]...)

			if err := s.persistLocked(); err != nil {
				// Откат: возвращаем запись на прежнюю позицию
				s.doc.Files = append(s.doc.Files[:i], append([]*model.FileRecord{removed}, s.doc.Files[i:]...)...)
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// CountUsers возвращает количество пользователей.
func (s *Store) CountUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Users)
}

// CountFiles возвращает общее количество записей о файлах.
func (s *Store) CountFiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Files)
}

// Path возвращает путь к документу на диске.
func (s *Store) Path() string {
	return s.path
}
