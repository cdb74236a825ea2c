// files.go — жизненный цикл файлов: upload, list, download,
// preview, edit, delete. Координирует blobstore и metastore так,
// чтобы операция либо завершилась целиком, либо была откачена.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"drivebox/internal/api/middleware"
	"drivebox/internal/domain/model"
	"drivebox/internal/storage/blobstore"
	"drivebox/internal/storage/metastore"
)

// editRetries — число попыток записи метаданных после успешной
// перезаписи блоба: блоб нельзя откатить, поэтому запись повторяется
// прежде чем вернуть ошибку.
const editRetries = 3

// editRetryDelay — пауза между попытками записи метаданных.
const editRetryDelay = 100 * time.Millisecond

// FileService — оркестратор файловых операций.
type FileService struct {
	blobs       *blobstore.BlobStore
	meta        *metastore.Store
	locks       *fileLocks
	maxFileSize int64
	logger      *slog.Logger
}

// NewFileService создаёт сервис файловых операций.
func NewFileService(blobs *blobstore.BlobStore, meta *metastore.Store, maxFileSize int64, logger *slog.Logger) *FileService {
	return &FileService{
		blobs:       blobs,
		meta:        meta,
		locks:       newFileLocks(),
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "file_service")),
	}
}

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalName — оригинальное имя файла
	OriginalName string
	// Size — заявленный размер из multipart header.
	// Отрицательное значение — размер неизвестен заранее.
	Size int64
	// OwnerID — аутентифицированный владелец
	OwnerID string
	// UploadedBy — имя пользователя, загрузившего файл
	UploadedBy string
}

// Upload загружает файл: сначала блоб, затем запись метаданных.
// Если вставка метаданных после успешной записи блоба не удалась,
// блоб удаляется (компенсирующий откат) — осиротевших блобов
// успешная или ошибочная загрузка не оставляет.
func (s *FileService) Upload(params UploadParams) (*model.FileRecord, *OpError) {
	if params.OriginalName == "" {
		return nil, errValidation("Не указано имя файла")
	}
	// Ошибки валидации по заявленному размеру возвращаются до записи
	// блоба — без побочных эффектов на диске. Проверки по фактическому
	// размеру после записи остаются страховкой на случай расхождения
	// заявленного размера с потоком.
	if params.Size == 0 {
		return nil, errEmptyUpload("Файл не содержит данных")
	}
	if params.Size > s.maxFileSize {
		return nil, errFileTooLarge(params.Size, s.maxFileSize)
	}

	// Ограничиваем поток на случай расхождения заявленного размера
	// с фактическим
	limited := io.LimitReader(params.Reader, s.maxFileSize+1)

	saved, err := s.blobs.Save(limited, params.OriginalName, params.UploadedBy)
	if err != nil {
		s.logger.Error("Ошибка записи блоба",
			slog.String("filename", params.OriginalName),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, errStorageIO("Ошибка сохранения файла на диск")
	}

	// Компенсирующий откат: удалить уже записанный блоб
	rollback := func() {
		if delErr := s.blobs.Delete(saved.StoredName); delErr != nil {
			// Откат не удался — осиротевший блоб остаётся на диске,
			// фиксируем для сверки и очистки оператором
			s.logger.Error("Откат загрузки не удался, осиротевший блоб",
				slog.String("stored_name", saved.StoredName),
				slog.String("error", delErr.Error()),
			)
		}
	}

	if saved.Size == 0 {
		rollback()
		return nil, errEmptyUpload("Файл не содержит данных")
	}
	if saved.Size > s.maxFileSize {
		rollback()
		return nil, errFileTooLarge(saved.Size, s.maxFileSize)
	}

	ext := model.ExtensionOf(params.OriginalName)
	now := time.Now().UTC()
	rec := &model.FileRecord{
		ID:           uuid.New().String(),
		OwnerID:      params.OwnerID,
		OriginalName: params.OriginalName,
		StoredName:   saved.StoredName,
		SizeBytes:    saved.Size,
		Checksum:     saved.Checksum,
		Extension:    ext,
		Capability:   model.Classify(ext),
		UploadedBy:   params.UploadedBy,
		EditedBy:     params.UploadedBy,
		CreatedAt:    now,
		ModifiedAt:   now,
	}

	if err := s.meta.InsertFile(rec); err != nil {
		rollback()
		s.logger.Error("Ошибка вставки метаданных, блоб откачен",
			slog.String("file_id", rec.ID),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, errStorageIO("Ошибка записи метаданных")
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.FilesTotal.Inc()

	s.logger.Info("Файл загружен",
		slog.String("file_id", rec.ID),
		slog.String("filename", rec.OriginalName),
		slog.Int64("size", rec.SizeBytes),
		slog.String("capability", string(rec.Capability)),
		slog.String("owner_id", rec.OwnerID),
	)

	return rec, nil
}

// List возвращает записи владельца. Порядок не определён —
// сортировка и фильтрация выполняются на стороне представления.
func (s *FileService) List(ownerID string) []*model.FileRecord {
	return s.meta.ListFiles(ownerID)
}

// Get возвращает запись владельца по идентификатору.
func (s *FileService) Get(fileID, ownerID string) (*model.FileRecord, *OpError) {
	rec := s.meta.FindFile(fileID, ownerID)
	if rec == nil {
		return nil, errNotFound(fileID)
	}
	return rec, nil
}

// ServeDownload отдаёт содержимое файла с оригинальным именем.
// Отсутствие блоба при существующей записи — нарушение целостности
// хранилища, а не обычный 404.
func (s *FileService) ServeDownload(w http.ResponseWriter, r *http.Request, fileID, ownerID string) *OpError {
	rec := s.meta.FindFile(fileID, ownerID)
	if rec == nil {
		return errNotFound(fileID)
	}

	file, opErr := s.openBlob(rec)
	if opErr != nil {
		return opErr
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat блоба",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return errStorageIO("Ошибка чтения файла")
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalName))
	w.Header().Set("ETag", fmt.Sprintf("%q", rec.Checksum))

	// http.ServeContent обрабатывает Range, If-None-Match,
	// Content-Length и Content-Type по расширению имени
	http.ServeContent(w, r, rec.OriginalName, stat.ModTime(), file)

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()
	return nil
}

// PreviewResult — результат операции preview.
type PreviewResult struct {
	// Type — "text" или "image"
	Type string
	// Content — декодированное содержимое (только текстовый класс)
	Content string
	// URL — ссылка на получение байтов изображения (только изображения)
	URL string
}

// Preview возвращает представление файла в зависимости от класса:
// текст — содержимое, изображение — URL endpoint'а с байтами,
// остальные классы не поддерживаются.
func (s *FileService) Preview(fileID, ownerID string) (*PreviewResult, *OpError) {
	rec := s.meta.FindFile(fileID, ownerID)
	if rec == nil {
		return nil, errNotFound(fileID)
	}

	switch rec.Capability {
	case model.CapabilityText:
		data, err := s.blobs.ReadAll(rec.StoredName)
		if err != nil {
			if errors.Is(err, blobstore.ErrBlobNotFound) {
				return nil, s.integrityFault(rec, "preview")
			}
			return nil, errStorageIO("Ошибка чтения файла")
		}
		middleware.OperationsTotal.WithLabelValues("preview", "success").Inc()
		return &PreviewResult{Type: "text", Content: string(data)}, nil

	case model.CapabilityImage:
		middleware.OperationsTotal.WithLabelValues("preview", "success").Inc()
		return &PreviewResult{
			Type: "image",
			URL:  fmt.Sprintf("/api/files/%s/image", rec.ID),
		}, nil

	default:
		return nil, errPreviewUnsupported(rec.Extension)
	}
}

// OpenImage открывает блоб изображения для отдачи байтов.
// Вызывающий код обязан закрыть файл.
func (s *FileService) OpenImage(fileID, ownerID string) (*os.File, *model.FileRecord, *OpError) {
	rec := s.meta.FindFile(fileID, ownerID)
	if rec == nil {
		return nil, nil, errNotFound(fileID)
	}
	if rec.Capability != model.CapabilityImage {
		return nil, nil, errPreviewUnsupported(rec.Extension)
	}

	file, opErr := s.openBlob(rec)
	if opErr != nil {
		return nil, nil, opErr
	}
	return file, rec, nil
}

// Edit перезаписывает содержимое текстового файла и обновляет
// метаданные. Блоб после перезаписи откатить нельзя, поэтому запись
// метаданных повторяется до editRetries раз прежде чем вернуть ошибку.
func (s *FileService) Edit(fileID, ownerID, editedBy string, content []byte) (*model.FileRecord, *OpError) {
	s.locks.lock(fileID)
	defer s.locks.unlock(fileID)

	rec := s.meta.FindFile(fileID, ownerID)
	if rec == nil {
		return nil, errNotFound(fileID)
	}
	if !rec.IsEditable() {
		return nil, errEditUnsupported(rec.Extension)
	}

	replaced, err := s.blobs.Replace(rec.StoredName, bytes.NewReader(content))
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, s.integrityFault(rec, "edit")
		}
		s.logger.Error("Ошибка перезаписи блоба",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("edit", "error").Inc()
		return nil, errStorageIO("Ошибка записи файла на диск")
	}

	rec.SizeBytes = replaced.Size
	rec.Checksum = replaced.Checksum
	rec.EditedBy = editedBy
	rec.ModifiedAt = time.Now().UTC()

	var lastErr error
	for attempt := 1; attempt <= editRetries; attempt++ {
		lastErr = s.meta.UpdateFile(rec)
		if lastErr == nil {
			middleware.OperationsTotal.WithLabelValues("edit", "success").Inc()
			s.logger.Info("Файл отредактирован",
				slog.String("file_id", rec.ID),
				slog.Int64("size", rec.SizeBytes),
				slog.String("edited_by", editedBy),
			)
			return rec, nil
		}
		s.logger.Warn("Ошибка записи метаданных после перезаписи блоба, повтор",
			slog.String("file_id", fileID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt < editRetries {
			time.Sleep(editRetryDelay)
		}
	}

	// Блоб уже перезаписан, метаданные расходятся с ним —
	// расхождение фиксируется для сверки
	s.logger.Error("Метаданные не записаны после перезаписи блоба",
		slog.String("file_id", fileID),
		slog.String("error", lastErr.Error()),
	)
	middleware.OperationsTotal.WithLabelValues("edit", "error").Inc()
	return nil, errStorageIO("Не удалось сохранить метаданные после изменения файла")
}

// Delete удаляет файл: сперва запись метаданных, затем блоб.
// Ошибка удаления блоба после удаления записи не возвращается
// вызывающему — файл уже исчез из представления пользователя,
// осиротевший блоб фиксируется предупреждением для сверки.
func (s *FileService) Delete(fileID, ownerID string) *OpError {
	s.locks.lock(fileID)
	defer s.locks.unlock(fileID)

	rec := s.meta.FindFile(fileID, ownerID)
	if rec == nil {
		return errNotFound(fileID)
	}

	ok, err := s.meta.DeleteFile(fileID, ownerID)
	if err != nil {
		s.logger.Error("Ошибка удаления метаданных",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return errStorageIO("Ошибка удаления метаданных")
	}
	if !ok {
		return errNotFound(fileID)
	}

	if err := s.blobs.Delete(rec.StoredName); err != nil {
		s.logger.Warn("Осиротевший блоб: метаданные удалены, блоб остался",
			slog.String("file_id", fileID),
			slog.String("stored_name", rec.StoredName),
			slog.String("error", err.Error()),
		)
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	middleware.FilesTotal.Dec()

	s.logger.Info("Файл удалён",
		slog.String("file_id", fileID),
		slog.String("owner_id", ownerID),
	)
	return nil
}

// openBlob открывает блоб записи, преобразуя отсутствие блоба
// в нарушение целостности.
func (s *FileService) openBlob(rec *model.FileRecord) (*os.File, *OpError) {
	file, err := s.blobs.Open(rec.StoredName)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, s.integrityFault(rec, "open")
		}
		return nil, errStorageIO("Ошибка открытия файла")
	}
	return file, nil
}

// integrityFault фиксирует расхождение метаданных и блобов.
func (s *FileService) integrityFault(rec *model.FileRecord, op string) *OpError {
	s.logger.Error("Нарушение целостности: запись есть, блоб отсутствует",
		slog.String("file_id", rec.ID),
		slog.String("stored_name", rec.StoredName),
		slog.String("operation", op),
	)
	middleware.OperationsTotal.WithLabelValues(op, "integrity_fault").Inc()
	return errIntegrityFault("Содержимое файла отсутствует в хранилище")
}
