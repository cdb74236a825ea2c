// reconcile.go — периодическая сверка метаданных и блобов.
// Находит расхождения, которые остаются после отказа отката:
// осиротевшие блобы (блоб без записи), пропавшие блобы (запись без
// блоба), расхождения размера и контрольной суммы.
package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"drivebox/internal/storage/blobstore"
	"drivebox/internal/storage/metastore"
)

var (
	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_reconcile_runs_total",
			Help: "Количество запусков сверки метаданных и блобов",
		},
		[]string{"result"},
	)

	reconcileIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_reconcile_issues_total",
			Help: "Количество найденных расхождений по типам",
		},
		[]string{"kind"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drive_reconcile_duration_seconds",
			Help:    "Длительность прохода сверки",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Виды расхождений.
const (
	IssueOrphanedBlob     = "orphaned_blob"
	IssueMissingBlob      = "missing_blob"
	IssueSizeMismatch     = "size_mismatch"
	IssueChecksumMismatch = "checksum_mismatch"
)

// Issue — одно найденное расхождение.
type Issue struct {
	// Kind — вид расхождения
	Kind string `json:"kind"`
	// FileID — идентификатор записи (пусто для осиротевших блобов)
	FileID string `json:"file_id,omitempty"`
	// StoredName — имя блоба на диске
	StoredName string `json:"stored_name"`
	// Detail — человекочитаемое описание
	Detail string `json:"detail"`
}

// Report — итог одного прохода сверки.
type Report struct {
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	FilesChecked int       `json:"files_checked"`
	Issues       []Issue   `json:"issues"`
	Summary      string    `json:"summary"`
}

// Reconciler — фоновая сверка целостности хранилища.
type Reconciler struct {
	blobs    *blobstore.BlobStore
	meta     *metastore.Store
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	inProcess  bool
	lastReport *Report

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler создаёт сервис сверки.
// interval — период фоновых проходов; 0 отключает фоновый цикл,
// сверка остаётся доступной по запросу через RunOnce.
func NewReconciler(blobs *blobstore.BlobStore, meta *metastore.Store, interval time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		blobs:    blobs,
		meta:     meta,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconciler")),
	}
}

// Start запускает фоновый цикл сверки. Первый проход выполняется
// сразу, последующие — по тикеру.
func (r *Reconciler) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("Фоновая сверка отключена")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		r.logger.Info("Фоновая сверка запущена",
			slog.Duration("interval", r.interval))

		if _, err := r.RunOnce(); err != nil {
			r.logger.Error("Ошибка сверки", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Фоновая сверка остановлена")
				return
			case <-ticker.C:
				if _, err := r.RunOnce(); err != nil {
					r.logger.Error("Ошибка сверки", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop останавливает фоновый цикл и дожидается его завершения.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// InProcess возвращает true, если проход сверки выполняется сейчас.
func (r *Reconciler) InProcess() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inProcess
}

// LastReport возвращает итог последнего завершённого прохода или nil.
func (r *Reconciler) LastReport() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReport
}

// RunOnce выполняет один проход сверки. Параллельные проходы не
// допускаются: если сверка уже идёт, возвращается ErrAlreadyRunning.
func (r *Reconciler) RunOnce() (*Report, error) {
	r.mu.Lock()
	if r.inProcess {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.inProcess = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inProcess = false
		r.mu.Unlock()
	}()

	started := time.Now().UTC()
	report := &Report{StartedAt: started}

	var scanErrs *multierror.Error

	// Снимок записей и снимок содержимого каталога. Файлы, загруженные
	// между снимками, могут дать ложный orphaned_blob на один проход —
	// следующий проход его не увидит.
	records := r.meta.AllFiles()
	known := make(map[string]int, len(records))
	for i, rec := range records {
		known[rec.StoredName] = i
	}

	entries, err := os.ReadDir(r.blobs.DataDir())
	if err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	onDisk := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// Временные файлы атомарной записи и сам документ метаданных
		// не являются блобами
		if strings.HasSuffix(name, ".tmp") || name == filepath.Base(r.meta.Path()) {
			continue
		}
		onDisk[name] = true

		if _, ok := known[name]; !ok {
			report.Issues = append(report.Issues, Issue{
				Kind:       IssueOrphanedBlob,
				StoredName: name,
				Detail:     "блоб без записи метаданных",
			})
			reconcileIssuesTotal.WithLabelValues(IssueOrphanedBlob).Inc()
		}
	}

	for _, rec := range records {
		report.FilesChecked++

		if !onDisk[rec.StoredName] {
			report.Issues = append(report.Issues, Issue{
				Kind:       IssueMissingBlob,
				FileID:     rec.ID,
				StoredName: rec.StoredName,
				Detail:     "запись метаданных без блоба",
			})
			reconcileIssuesTotal.WithLabelValues(IssueMissingBlob).Inc()
			continue
		}

		size, err := r.blobs.Size(rec.StoredName)
		if err != nil {
			scanErrs = multierror.Append(scanErrs, err)
			continue
		}
		if size != rec.SizeBytes {
			report.Issues = append(report.Issues, Issue{
				Kind:       IssueSizeMismatch,
				FileID:     rec.ID,
				StoredName: rec.StoredName,
				Detail:     "размер блоба не совпадает с метаданными",
			})
			reconcileIssuesTotal.WithLabelValues(IssueSizeMismatch).Inc()
			continue
		}

		sum, err := r.blobs.ComputeChecksum(rec.StoredName)
		if err != nil {
			scanErrs = multierror.Append(scanErrs, err)
			continue
		}
		if sum != rec.Checksum {
			report.Issues = append(report.Issues, Issue{
				Kind:       IssueChecksumMismatch,
				FileID:     rec.ID,
				StoredName: rec.StoredName,
				Detail:     "контрольная сумма блоба не совпадает с метаданными",
			})
			reconcileIssuesTotal.WithLabelValues(IssueChecksumMismatch).Inc()
		}
	}

	report.CompletedAt = time.Now().UTC()
	reconcileDuration.Observe(report.CompletedAt.Sub(started).Seconds())

	if len(report.Issues) == 0 {
		report.Summary = "расхождений не найдено"
	} else {
		report.Summary = "найдены расхождения, требуется вмешательство оператора"
	}

	r.mu.Lock()
	r.lastReport = report
	r.mu.Unlock()

	if err := scanErrs.ErrorOrNil(); err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		r.logger.Error("Сверка завершена с ошибками сканирования",
			slog.Int("files_checked", report.FilesChecked),
			slog.Int("issues", len(report.Issues)),
			slog.String("error", err.Error()),
		)
		return report, err
	}

	reconcileRunsTotal.WithLabelValues("success").Inc()
	r.logger.Info("Сверка завершена",
		slog.Int("files_checked", report.FilesChecked),
		slog.Int("issues", len(report.Issues)),
	)
	return report, nil
}
