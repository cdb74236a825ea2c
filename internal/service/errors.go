// Пакет service — бизнес-логика Drivebox: жизненный цикл файлов
// и учётных записей поверх blobstore и metastore.
package service

import (
	"errors"
	"fmt"
	"net/http"

	apierrors "drivebox/internal/api/errors"
)

// ErrAlreadyRunning — проход сверки уже выполняется.
var ErrAlreadyRunning = errors.New("сверка уже выполняется")

// OpError — ошибка операции с HTTP-кодом и машиночитаемым кодом.
type OpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Конструкторы для типичных ошибок операций ---

func errValidation(message string) *OpError {
	return &OpError{http.StatusBadRequest, apierrors.CodeValidationError, message}
}

func errEmptyUpload(message string) *OpError {
	return &OpError{http.StatusBadRequest, apierrors.CodeEmptyUpload, message}
}

func errNotFound(fileID string) *OpError {
	// Чужой файл и отсутствующий файл дают один и тот же ответ:
	// существование чужих файлов не раскрывается.
	return &OpError{http.StatusNotFound, apierrors.CodeNotFound,
		fmt.Sprintf("Файл %s не найден", fileID)}
}

func errUnauthorized(message string) *OpError {
	return &OpError{http.StatusUnauthorized, apierrors.CodeUnauthorized, message}
}

func errFileTooLarge(size, maxSize int64) *OpError {
	return &OpError{http.StatusRequestEntityTooLarge, apierrors.CodeFileTooLarge,
		fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", size, maxSize)}
}

func errPreviewUnsupported(ext string) *OpError {
	return &OpError{http.StatusUnsupportedMediaType, apierrors.CodePreviewUnsupported,
		fmt.Sprintf("Просмотр не поддерживается для типа %q", ext)}
}

func errEditUnsupported(ext string) *OpError {
	return &OpError{http.StatusUnsupportedMediaType, apierrors.CodeEditUnsupported,
		fmt.Sprintf("Редактирование не поддерживается для типа %q", ext)}
}

func errIntegrityFault(message string) *OpError {
	return &OpError{http.StatusInternalServerError, apierrors.CodeIntegrityFault, message}
}

func errStorageIO(message string) *OpError {
	return &OpError{http.StatusInternalServerError, apierrors.CodeStorageIOError, message}
}

func errDuplicateUsername(username string) *OpError {
	return &OpError{http.StatusConflict, apierrors.CodeDuplicateUsername,
		fmt.Sprintf("Имя пользователя %q уже занято", username)}
}
