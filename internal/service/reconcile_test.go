package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drivebox/internal/storage/blobstore"
	"drivebox/internal/storage/metastore"
)

func newTestReconciler(t *testing.T) (*Reconciler, *FileService) {
	t.Helper()

	dir := t.TempDir()
	blobs, err := blobstore.New(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("Ошибка создания blobstore: %v", err)
	}
	meta, err := metastore.Open(filepath.Join(dir, "db.json"), testLogger())
	if err != nil {
		t.Fatalf("Ошибка открытия metastore: %v", err)
	}
	files := NewFileService(blobs, meta, 1<<20, testLogger())
	return NewReconciler(blobs, meta, 0, testLogger()), files
}

func TestReconcile_CleanStore(t *testing.T) {
	rec, files := newTestReconciler(t)
	mustUpload(t, files, "owner-1", "alice", "a.txt", "данные а")
	mustUpload(t, files, "owner-1", "alice", "b.txt", "данные б")

	report, err := rec.RunOnce()
	if err != nil {
		t.Fatalf("Ошибка сверки: %v", err)
	}
	if report.FilesChecked != 2 {
		t.Errorf("Проверено %d файлов, ожидалось 2", report.FilesChecked)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Найдены расхождения в целостном хранилище: %+v", report.Issues)
	}
}

func TestReconcile_MissingBlob(t *testing.T) {
	rec, files := newTestReconciler(t)
	uploaded := mustUpload(t, files, "owner-1", "alice", "a.txt", "данные")

	if err := files.blobs.Delete(uploaded.StoredName); err != nil {
		t.Fatalf("Ошибка удаления блоба: %v", err)
	}

	report, err := rec.RunOnce()
	if err != nil {
		t.Fatalf("Ошибка сверки: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != IssueMissingBlob {
		t.Fatalf("Ожидалось одно расхождение missing_blob, получено %+v", report.Issues)
	}
	if report.Issues[0].FileID != uploaded.ID {
		t.Errorf("FileID расхождения %q, ожидался %q", report.Issues[0].FileID, uploaded.ID)
	}
}

func TestReconcile_OrphanedBlob(t *testing.T) {
	rec, files := newTestReconciler(t)

	// Блоб без записи метаданных
	orphan := filepath.Join(files.blobs.DataDir(), "orphan_alice_123_abcd1234.txt")
	if err := os.WriteFile(orphan, []byte("осиротевшие данные"), 0o640); err != nil {
		t.Fatalf("Ошибка записи блоба: %v", err)
	}

	report, err := rec.RunOnce()
	if err != nil {
		t.Fatalf("Ошибка сверки: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != IssueOrphanedBlob {
		t.Fatalf("Ожидалось одно расхождение orphaned_blob, получено %+v", report.Issues)
	}
}

func TestReconcile_ChecksumMismatch(t *testing.T) {
	rec, files := newTestReconciler(t)
	uploaded := mustUpload(t, files, "owner-1", "alice", "a.txt", "оригинал")

	// Порча блоба в обход сервиса: длина та же, содержимое другое
	path := files.blobs.FullPath(uploaded.StoredName)
	corrupted := strings.Repeat("x", int(uploaded.SizeBytes))
	if err := os.WriteFile(path, []byte(corrupted), 0o640); err != nil {
		t.Fatalf("Ошибка порчи блоба: %v", err)
	}

	report, err := rec.RunOnce()
	if err != nil {
		t.Fatalf("Ошибка сверки: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != IssueChecksumMismatch {
		t.Fatalf("Ожидалось одно расхождение checksum_mismatch, получено %+v", report.Issues)
	}
}

func TestReconcile_SizeMismatch(t *testing.T) {
	rec, files := newTestReconciler(t)
	uploaded := mustUpload(t, files, "owner-1", "alice", "a.txt", "оригинал")

	path := files.blobs.FullPath(uploaded.StoredName)
	if err := os.WriteFile(path, []byte("совсем другая длина содержимого"), 0o640); err != nil {
		t.Fatalf("Ошибка порчи блоба: %v", err)
	}

	report, err := rec.RunOnce()
	if err != nil {
		t.Fatalf("Ошибка сверки: %v", err)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != IssueSizeMismatch {
		t.Fatalf("Ожидалось одно расхождение size_mismatch, получено %+v", report.Issues)
	}
}

func TestReconcile_LastReport(t *testing.T) {
	rec, _ := newTestReconciler(t)

	if rec.LastReport() != nil {
		t.Error("LastReport не nil до первого прохода")
	}

	if _, err := rec.RunOnce(); err != nil {
		t.Fatalf("Ошибка сверки: %v", err)
	}

	report := rec.LastReport()
	if report == nil {
		t.Fatal("LastReport nil после прохода")
	}
	if report.CompletedAt.Before(report.StartedAt) {
		t.Error("CompletedAt раньше StartedAt")
	}
}
