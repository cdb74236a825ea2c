// Пакет handlers — HTTP-обработчики API Drivebox.
// Обработчики тонкие: разбор запроса, вызов сервисного слоя,
// сериализация ответа. Бизнес-логика живёт в internal/service.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apierrors "drivebox/internal/api/errors"
	"drivebox/internal/domain/model"
	"drivebox/internal/service"
)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeOpError транслирует ошибку сервисного слоя в HTTP-ответ
// стандартного формата.
func writeOpError(w http.ResponseWriter, opErr *service.OpError) {
	apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
}

// fileResponse — представление записи о файле в API.
// Служебные поля (stored_name, owner_id) наружу не отдаются.
type fileResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SizeBytes    int64  `json:"size_bytes"`
	Checksum     string `json:"checksum"`
	Extension    string `json:"extension"`
	Capability   string `json:"capability"`
	UploadedBy   string `json:"uploaded_by"`
	EditedBy     string `json:"edited_by"`
	CreatedAt    string `json:"created_at"`
	ModifiedAt   string `json:"modified_at"`
	PreviewAble  bool   `json:"previewable"`
	EditableFlag bool   `json:"editable"`
}

// toFileResponse конвертирует доменную запись в API-представление.
func toFileResponse(rec *model.FileRecord) fileResponse {
	return fileResponse{
		ID:           rec.ID,
		Name:         rec.OriginalName,
		SizeBytes:    rec.SizeBytes,
		Checksum:     rec.Checksum,
		Extension:    rec.Extension,
		Capability:   string(rec.Capability),
		UploadedBy:   rec.UploadedBy,
		EditedBy:     rec.EditedBy,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		ModifiedAt:   rec.ModifiedAt.Format(time.RFC3339),
		PreviewAble:  rec.Capability != model.CapabilityUnsupported,
		EditableFlag: rec.IsEditable(),
	}
}
