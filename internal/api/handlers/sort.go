// sort.go — фильтрация и сортировка списка файлов.
// Чистая функция представления: не трогает хранилище, принимает
// копии записей и возвращает новый срез.
package handlers

import (
	"sort"
	"strings"

	"drivebox/internal/domain/model"
)

// Ключи сортировки списка файлов.
const (
	SortByName     = "name"
	SortBySize     = "size"
	SortByCreated  = "created"
	SortByModified = "modified"
)

// SortFiles фильтрует записи по классу или расширению и сортирует
// по указанному ключу. Значения filter: пустая строка — все записи,
// имя класса (text, image, unsupported) — по классу, иначе —
// точное совпадение расширения (".txt" и "txt" эквивалентны,
// без учёта регистра). Неизвестный ключ сортировки трактуется как
// сортировка по имени, order "desc" обращает порядок, всё остальное —
// по возрастанию. Исходный срез не изменяется.
func SortFiles(records []*model.FileRecord, filter, sortKey, order string) []*model.FileRecord {
	result := make([]*model.FileRecord, 0, len(records))

	match := filterFunc(filter)
	for _, rec := range records {
		if match(rec) {
			result = append(result, rec)
		}
	}

	less := func(a, b *model.FileRecord) bool {
		switch sortKey {
		case SortBySize:
			if a.SizeBytes != b.SizeBytes {
				return a.SizeBytes < b.SizeBytes
			}
		case SortByCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case SortByModified:
			if !a.ModifiedAt.Equal(b.ModifiedAt) {
				return a.ModifiedAt.Before(b.ModifiedAt)
			}
		}
		// Ключ по умолчанию и разрешение ничьих — имя, затем id
		// для детерминированного порядка одноимённых файлов
		if a.OriginalName != b.OriginalName {
			return strings.ToLower(a.OriginalName) < strings.ToLower(b.OriginalName)
		}
		return a.ID < b.ID
	}

	desc := order == "desc"
	sort.SliceStable(result, func(i, j int) bool {
		if desc {
			return less(result[j], result[i])
		}
		return less(result[i], result[j])
	})

	return result
}

// filterFunc строит предикат фильтра по классу или расширению.
func filterFunc(filter string) func(*model.FileRecord) bool {
	switch needle := strings.ToLower(filter); needle {
	case "":
		return func(*model.FileRecord) bool { return true }
	case string(model.CapabilityText), string(model.CapabilityImage), string(model.CapabilityUnsupported):
		return func(rec *model.FileRecord) bool {
			return string(rec.Capability) == needle
		}
	default:
		ext := needle
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return func(rec *model.FileRecord) bool {
			return rec.Extension == ext
		}
	}
}
