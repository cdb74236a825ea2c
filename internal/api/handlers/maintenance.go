// maintenance.go — служебные операции: запуск сверки целостности.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "drivebox/internal/api/errors"
	"drivebox/internal/service"
)

// MaintenanceHandler — обработчики служебных операций.
type MaintenanceHandler struct {
	reconciler *service.Reconciler
	logger     *slog.Logger
}

// NewMaintenanceHandler создаёт обработчики служебных операций.
func NewMaintenanceHandler(reconciler *service.Reconciler, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		reconciler: reconciler,
		logger:     logger.With(slog.String("component", "maintenance_handler")),
	}
}

// Reconcile — POST /api/maintenance/reconcile.
// Запускает проход сверки синхронно и возвращает отчёт.
// Если сверка уже идёт, возвращает 409.
func (h *MaintenanceHandler) Reconcile(w http.ResponseWriter, _ *http.Request) {
	report, err := h.reconciler.RunOnce()
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			apierrors.WriteError(w, http.StatusConflict, "RECONCILE_IN_PROGRESS", "Сверка уже выполняется")
			return
		}
		h.logger.Error("Ошибка сверки", slog.String("error", err.Error()))
		// Отчёт с ошибками сканирования всё равно полезен вызывающему
		if report == nil {
			apierrors.InternalError(w, "Ошибка выполнения сверки")
			return
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// LastReport — GET /api/maintenance/reconcile.
// Возвращает итог последнего завершённого прохода.
func (h *MaintenanceHandler) LastReport(w http.ResponseWriter, _ *http.Request) {
	report := h.reconciler.LastReport()
	if report == nil {
		apierrors.NotFound(w, "Сверка ещё не выполнялась")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
