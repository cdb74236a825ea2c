// Пакет model — доменные модели Drivebox.
// FileRecord — единая структура метаданных файла, используется
// как in-memory представление и как элемент массива files в db.json.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Capability — класс возможностей файла, определяет поведение
// preview и edit. Вычисляется один раз при загрузке из расширения
// оригинального имени и сохраняется в записи.
type Capability string

const (
	// CapabilityText — текстовый файл: preview возвращает содержимое,
	// edit разрешён
	CapabilityText Capability = "text"
	// CapabilityImage — изображение: preview возвращает URL,
	// edit запрещён
	CapabilityImage Capability = "image"
	// CapabilityUnsupported — preview и edit недоступны
	CapabilityUnsupported Capability = "unsupported"
)

// textExtensions — расширения текстового класса (редактируемые).
var textExtensions = map[string]bool{
	".c":   true,
	".h":   true,
	".txt": true,
	".md":  true,
}

// imageExtensions — расширения класса изображений.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ExtensionOf возвращает расширение имени файла в нижнем регистре,
// включая точку. Пример: "Notes.C" → ".c", "README" → "".
func ExtensionOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Classify определяет класс возможностей по расширению.
// Сравнение без учёта регистра: ".C" и ".c" эквивалентны.
func Classify(ext string) Capability {
	ext = strings.ToLower(ext)
	switch {
	case textExtensions[ext]:
		return CapabilityText
	case imageExtensions[ext]:
		return CapabilityImage
	default:
		return CapabilityUnsupported
	}
}

// FileRecord — метаданные файла. Соответствует элементу массива
// files в db.json.
type FileRecord struct {
	// ID — уникальный идентификатор файла (UUID v4), неизменяемый
	ID string `json:"id"`

	// OwnerID — идентификатор владельца. Не меняется после создания;
	// все операции над записью сверяются с ним.
	OwnerID string `json:"owner_id"`

	// OriginalName — оригинальное имя файла при загрузке
	OriginalName string `json:"original_name"`

	// StoredName — имя блоба на диске (относительно каталога данных).
	// Формат: {name}_{owner}_{timestamp}_{uuid8}.{ext}
	// Никогда не переиспользуется другой записью.
	StoredName string `json:"stored_name"`

	// SizeBytes — размер содержимого в байтах
	SizeBytes int64 `json:"size_bytes"`

	// Checksum — SHA-256 хэш содержимого блоба
	Checksum string `json:"checksum"`

	// Extension — расширение оригинального имени в нижнем регистре
	Extension string `json:"extension"`

	// Capability — класс возможностей, вычислен при загрузке
	Capability Capability `json:"capability"`

	// UploadedBy — кто загрузил файл, фиксируется при создании
	UploadedBy string `json:"uploaded_by"`

	// EditedBy — кто последним изменил содержимое (upload или edit)
	EditedBy string `json:"edited_by"`

	// CreatedAt — дата и время загрузки (UTC)
	CreatedAt time.Time `json:"created_at"`

	// ModifiedAt — дата последнего изменения содержимого.
	// Инвариант: ModifiedAt >= CreatedAt.
	ModifiedAt time.Time `json:"modified_at"`
}

// IsEditable проверяет, разрешено ли редактирование содержимого.
func (r *FileRecord) IsEditable() bool {
	return r.Capability == CapabilityText
}
