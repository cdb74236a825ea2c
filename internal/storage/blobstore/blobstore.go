// Пакет blobstore — операции с блобами (содержимым файлов) на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету,
// чтение, перезапись и удаление. Имя блоба генерируется при записи
// и никогда не переиспользуется.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrBlobNotFound — блоб отсутствует на диске. Для вызывающего кода
// это признак расхождения метаданных и хранилища, а не ошибка пользователя.
var ErrBlobNotFound = errors.New("блоб не найден на диске")

// BlobStore — управление блобами на диске.
type BlobStore struct {
	// dataDir — корневая директория хранения блобов (DRIVE_DATA_DIR)
	dataDir string
}

// SaveResult — результат записи блоба на диск.
type SaveResult struct {
	// StoredName — имя блоба относительно dataDir
	StoredName string
	// FullPath — абсолютный путь блоба на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// New создаёт новый BlobStore. Создаёт директорию данных,
// если она не существует.
func New(dataDir string) (*BlobStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &BlobStore{dataDir: dataDir}, nil
}

// Save записывает данные из reader на диск под новым уникальным именем.
// Формат имени: {name}_{owner}_{timestamp}_{uuid8}.{ext} — уникально
// даже для повторяющихся оригинальных имён, существующие блобы
// никогда не перезаписываются.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (bs *BlobStore) Save(reader io.Reader, originalName, owner string) (*SaveResult, error) {
	storedName := generateStoredName(originalName, owner)
	fullPath := filepath.Join(bs.dataDir, storedName)

	size, checksum, err := bs.writeAtomic(fullPath, reader)
	if err != nil {
		return nil, err
	}

	return &SaveResult{
		StoredName: storedName,
		FullPath:   fullPath,
		Size:       size,
		Checksum:   checksum,
	}, nil
}

// Replace перезаписывает содержимое существующего блоба.
// Используется операцией edit. Возвращает ErrBlobNotFound,
// если блоб отсутствует на диске.
func (bs *BlobStore) Replace(storedName string, reader io.Reader) (*SaveResult, error) {
	fullPath := filepath.Join(bs.dataDir, storedName)

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, storedName)
		}
		return nil, fmt.Errorf("ошибка проверки блоба %s: %w", storedName, err)
	}

	size, checksum, err := bs.writeAtomic(fullPath, reader)
	if err != nil {
		return nil, err
	}

	return &SaveResult{
		StoredName: storedName,
		FullPath:   fullPath,
		Size:       size,
		Checksum:   checksum,
	}, nil
}

// writeAtomic записывает данные во временный файл с подсчётом SHA-256,
// затем атомарно переименовывает его в целевой путь.
func (bs *BlobStore) writeAtomic(fullPath string, reader io.Reader) (int64, string, error) {
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

// Open открывает блоб для чтения и возвращает *os.File.
// Возвращает ErrBlobNotFound, если блоб отсутствует.
// Вызывающий код обязан закрыть файл.
func (bs *BlobStore) Open(storedName string) (*os.File, error) {
	fullPath := filepath.Join(bs.dataDir, storedName)

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, storedName)
		}
		return nil, fmt.Errorf("ошибка открытия блоба %s: %w", storedName, err)
	}

	return f, nil
}

// ReadAll читает всё содержимое блоба в память.
// Используется для preview текстовых файлов.
func (bs *BlobStore) ReadAll(storedName string) ([]byte, error) {
	f, err := bs.Open(storedName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения блоба %s: %w", storedName, err)
	}
	return data, nil
}

// Delete удаляет блоб с диска. Идемпотентен: отсутствие блоба
// не является ошибкой, удаление метаданных должно продолжаться.
func (bs *BlobStore) Delete(storedName string) error {
	fullPath := filepath.Join(bs.dataDir, storedName)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления блоба %s: %w", storedName, err)
	}
	return nil
}

// Exists проверяет существование блоба на диске.
func (bs *BlobStore) Exists(storedName string) bool {
	_, err := os.Stat(filepath.Join(bs.dataDir, storedName))
	return err == nil
}

// Size возвращает размер блоба на диске.
func (bs *BlobStore) Size(storedName string) (int64, error) {
	info, err := os.Stat(filepath.Join(bs.dataDir, storedName))
	if err != nil {
		return 0, fmt.Errorf("ошибка получения информации о блобе %s: %w", storedName, err)
	}
	return info.Size(), nil
}

// ComputeChecksum вычисляет SHA-256 хэш существующего блоба.
// Используется при сверке целостности.
func (bs *BlobStore) ComputeChecksum(storedName string) (string, error) {
	f, err := bs.Open(storedName)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("ошибка вычисления checksum %s: %w", storedName, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FullPath возвращает абсолютный путь блоба на диске.
func (bs *BlobStore) FullPath(storedName string) string {
	return filepath.Join(bs.dataDir, storedName)
}

// DataDir возвращает путь к директории данных.
func (bs *BlobStore) DataDir() string {
	return bs.dataDir
}

// generateStoredName генерирует имя блоба для хранения на диске.
// Формат: {name}_{owner}_{timestamp}_{uuid8}.{ext}
// Пример: notes_alice_20260828150405_a1b2c3d4.c
// Имя всегда отличается от оригинального: исключает коллизии
// и path traversal через присланное клиентом имя.
func generateStoredName(originalName, owner string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	// Убираем небезопасные символы из имени и владельца
	name = sanitize(name)
	owner = sanitize(owner)

	// Ограничиваем длину имени для предотвращения проблем с FS
	if len(name) > 50 {
		name = name[:50]
	}
	if len(owner) > 20 {
		owner = owner[:20]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	if ext != "" {
		return fmt.Sprintf("%s_%s_%s_%s%s", name, owner, ts, uid, ext)
	}
	return fmt.Sprintf("%s_%s_%s_%s", name, owner, ts, uid)
}

// sanitize убирает небезопасные символы из строки для использования
// в имени файла. Оставляет буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
