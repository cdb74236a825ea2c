package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")

	bs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	if bs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, bs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestSave проверяет запись блоба с подсчётом SHA-256.
func TestSave(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	content := []byte("int main(){}")
	result, err := bs.Save(bytes.NewReader(content), "notes.c", "alice")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	expectedHash := sha256.Sum256(content)
	if result.Checksum != hex.EncodeToString(expectedHash[:]) {
		t.Errorf("checksum не совпадает: %s", result.Checksum)
	}

	// Имя блоба отличается от оригинального и сохраняет расширение
	if result.StoredName == "notes.c" {
		t.Error("имя блоба не должно совпадать с оригинальным")
	}
	if !strings.HasSuffix(result.StoredName, ".c") {
		t.Errorf("имя блоба должно сохранять расширение: %s", result.StoredName)
	}

	data, err := os.ReadFile(result.FullPath)
	if err != nil {
		t.Fatalf("ошибка чтения блоба: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое блоба не совпадает")
	}
}

// TestSave_UniqueNames проверяет, что повторная запись одного имени
// даёт разные имена блобов.
func TestSave_UniqueNames(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	r1, err := bs.Save(bytes.NewReader([]byte("first")), "same.txt", "alice")
	if err != nil {
		t.Fatalf("ошибка первой записи: %v", err)
	}
	r2, err := bs.Save(bytes.NewReader([]byte("second")), "same.txt", "alice")
	if err != nil {
		t.Fatalf("ошибка второй записи: %v", err)
	}

	if r1.StoredName == r2.StoredName {
		t.Errorf("имена блобов должны различаться: %s", r1.StoredName)
	}
}

// TestSave_PathTraversal проверяет, что присланное имя не выводит
// блоб за пределы директории данных.
func TestSave_PathTraversal(t *testing.T) {
	dir := t.TempDir()
	bs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	result, err := bs.Save(bytes.NewReader([]byte("x")), "../../etc/passwd", "alice")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if filepath.Dir(result.FullPath) != dir {
		t.Errorf("блоб записан вне директории данных: %s", result.FullPath)
	}
}

// TestReplace проверяет перезапись содержимого существующего блоба.
func TestReplace(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	saved, err := bs.Save(bytes.NewReader([]byte("int main(){}")), "notes.c", "alice")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	newContent := []byte("int main(){return 0;}")
	replaced, err := bs.Replace(saved.StoredName, bytes.NewReader(newContent))
	if err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}

	// Имя не меняется, размер и checksum обновлены
	if replaced.StoredName != saved.StoredName {
		t.Error("имя блоба не должно меняться при перезаписи")
	}
	if replaced.Size != int64(len(newContent)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(newContent), replaced.Size)
	}

	data, err := bs.ReadAll(saved.StoredName)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !bytes.Equal(data, newContent) {
		t.Error("содержимое после перезаписи не совпадает")
	}
}

// TestReplace_NotFound проверяет ErrBlobNotFound при перезаписи
// несуществующего блоба.
func TestReplace_NotFound(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	_, err = bs.Replace("nonexistent.txt", bytes.NewReader([]byte("x")))
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("ожидалась ErrBlobNotFound, получено: %v", err)
	}
}

// TestOpen проверяет чтение блоба.
func TestOpen(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	content := []byte("read test data")
	saved, err := bs.Save(bytes.NewReader(content), "read.txt", "bob")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	f, err := bs.Open(saved.StoredName)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("прочитанные данные не совпадают с записанными")
	}
}

// TestOpen_NotFound проверяет ErrBlobNotFound для отсутствующего блоба.
func TestOpen_NotFound(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	_, err = bs.Open("nonexistent.txt")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("ожидалась ErrBlobNotFound, получено: %v", err)
	}
}

// TestDelete проверяет удаление блоба.
func TestDelete(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	saved, err := bs.Save(bytes.NewReader([]byte("delete me")), "delete.txt", "bob")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if err := bs.Delete(saved.StoredName); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	if bs.Exists(saved.StoredName) {
		t.Error("блоб должен быть удалён")
	}
}

// TestDelete_Idempotent проверяет, что повторное удаление не ошибка.
func TestDelete_Idempotent(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	if err := bs.Delete("nonexistent.txt"); err != nil {
		t.Errorf("удаление несуществующего блоба не должно быть ошибкой: %v", err)
	}
}

// TestSave_NoTmpFile проверяет, что temp файл удалён после записи.
func TestSave_NoTmpFile(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	saved, err := bs.Save(bytes.NewReader([]byte("data")), "file.txt", "user")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if _, err := os.Stat(saved.FullPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("временный файл не должен существовать")
	}
}

// TestComputeChecksum проверяет повторное вычисление SHA-256.
func TestComputeChecksum(t *testing.T) {
	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	saved, err := bs.Save(bytes.NewReader([]byte("checksum data")), "check.bin", "user")
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	checksum, err := bs.ComputeChecksum(saved.StoredName)
	if err != nil {
		t.Fatalf("ошибка вычисления checksum: %v", err)
	}
	if checksum != saved.Checksum {
		t.Errorf("checksum не совпадает: save=%s, compute=%s", saved.Checksum, checksum)
	}
}

// TestGenerateStoredName проверяет генерацию имени блоба.
func TestGenerateStoredName(t *testing.T) {
	name := generateStoredName("My Notes.C", "alice")

	if !strings.HasSuffix(name, ".c") {
		t.Errorf("расширение должно приводиться к нижнему регистру: %s", name)
	}
	if !strings.Contains(name, "alice") {
		t.Errorf("имя должно содержать владельца: %s", name)
	}
	if strings.Contains(name, " ") {
		t.Errorf("имя не должно содержать пробелов: %s", name)
	}
}

// TestSanitize проверяет очистку строк для имени блоба.
func TestSanitize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"hello world", "helloworld"},
		{"test-file_01", "test-file_01"},
		{"file@#$%", "file"},
		{"", "file"},
		{"нотатки", "нотатки"},
	}

	for _, tt := range tests {
		if got := sanitize(tt.input); got != tt.expected {
			t.Errorf("sanitize(%q): ожидалось %q, получено %q", tt.input, tt.expected, got)
		}
	}
}
