// files.go — обработчики /api/files: список, загрузка, скачивание,
// просмотр, редактирование, удаление. Владелец всегда берётся из
// аутентифицированного контекста запроса — идентификаторам в
// параметрах клиент доверять не может.
package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	apierrors "drivebox/internal/api/errors"
	"drivebox/internal/api/middleware"
	"drivebox/internal/service"
)

// FilesHandler — обработчики файловых операций.
type FilesHandler struct {
	files       *service.FileService
	maxFileSize int64
	logger      *slog.Logger
}

// NewFilesHandler создаёт обработчики файловых операций.
func NewFilesHandler(files *service.FileService, maxFileSize int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:       files,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "files_handler")),
	}
}

// List — GET /api/files?filter=&sort=&order=.
// Если передан параметр owner, он обязан совпадать с владельцем
// сессии: подмена идентификатора отклоняется, а не исполняется.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserIDFromContext(r.Context())

	if requested := r.URL.Query().Get("owner"); requested != "" && requested != ownerID {
		apierrors.Unauthorized(w, "Доступ к чужим файлам запрещён")
		return
	}

	records := h.files.List(ownerID)
	records = SortFiles(records,
		r.URL.Query().Get("filter"),
		r.URL.Query().Get("sort"),
		r.URL.Query().Get("order"),
	)

	resp := make([]fileResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toFileResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": resp,
		"total": len(resp),
	})
}

// Upload — POST /api/files, multipart/form-data с полем file.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "В запросе отсутствует поле file")
		return
	}
	defer file.Close()

	rec, opErr := h.files.Upload(service.UploadParams{
		Reader:       file,
		OriginalName: filepath.Base(header.Filename),
		Size:         header.Size,
		OwnerID:      middleware.UserIDFromContext(r.Context()),
		UploadedBy:   middleware.UsernameFromContext(r.Context()),
	})
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(rec))
}

// Get — GET /api/files/{id}, метаданные одного файла.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, opErr := h.files.Get(chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec))
}

// Download — GET /api/files/{id}/download.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	opErr := h.files.ServeDownload(w, r,
		chi.URLParam(r, "id"),
		middleware.UserIDFromContext(r.Context()),
	)
	if opErr != nil {
		writeOpError(w, opErr)
	}
}

// Preview — GET /api/files/{id}/preview.
// Текст: {"type":"text","content":"..."}.
// Изображение: {"type":"image","url":"..."}.
func (h *FilesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	res, opErr := h.files.Preview(chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}

	body := map[string]string{"type": res.Type}
	switch res.Type {
	case "text":
		body["content"] = res.Content
	case "image":
		body["url"] = res.URL
	}
	writeJSON(w, http.StatusOK, body)
}

// Image — GET /api/files/{id}/image, байты изображения.
func (h *FilesHandler) Image(w http.ResponseWriter, r *http.Request) {
	file, rec, opErr := h.files.OpenImage(chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(rec.Extension)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if _, err := io.Copy(w, file); err != nil {
		h.logger.Error("Ошибка отдачи изображения",
			slog.String("file_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// editRequest — тело PUT /api/files/{id}/edit.
type editRequest struct {
	Content string `json:"content"`
}

// Edit — PUT /api/files/{id}/edit, перезапись содержимого
// текстового файла.
func (h *FilesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxFileSize+1024)).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Невалидное тело запроса")
		return
	}

	rec, opErr := h.files.Edit(
		chi.URLParam(r, "id"),
		middleware.UserIDFromContext(r.Context()),
		middleware.UsernameFromContext(r.Context()),
		[]byte(req.Content),
	)
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(rec))
}

// Delete — DELETE /api/files/{id}.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	opErr := h.files.Delete(chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if opErr != nil {
		writeOpError(w, opErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
