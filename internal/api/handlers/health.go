// health.go — health endpoints Drivebox.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (документ метаданных загружен,
// каталог данных доступен на запись)
// /metrics — Prometheus метрики
package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drivebox/internal/config"
)

// Статусы проверок готовности.
const (
	statusOK   = "ok"
	statusFail = "fail"
)

// ReadinessChecker — проверка готовности одной зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "fail") и сообщение.
	CheckReady() (status, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	metaChecker ReadinessChecker
	dataDir     string
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(metaChecker ReadinessChecker, dataDir string) *HealthHandler {
	return &HealthHandler{
		metaChecker: metaChecker,
		dataDir:     dataDir,
		promHandler: promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse — ответ health endpoints.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    *struct {
		Metastore healthCheckResult `json:"metastore"`
		DataDir   healthCheckResult `json:"data_dir"`
	} `json:"checks,omitempty"`
}

// Live — liveness probe. Возвращает 200, если процесс жив.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "drivebox",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// Ready — readiness probe. Проверяет metastore и каталог данных.
// Возвращает 200 или 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "drivebox",
		Checks: &struct {
			Metastore healthCheckResult `json:"metastore"`
			DataDir   healthCheckResult `json:"data_dir"`
		}{},
	}

	if h.metaChecker != nil {
		status, msg := h.metaChecker.CheckReady()
		resp.Checks.Metastore = healthCheckResult{Status: status, Message: msg}
	} else {
		resp.Checks.Metastore = healthCheckResult{Status: statusFail, Message: "не инициализирован"}
	}

	resp.Checks.DataDir = h.checkDataDir()

	resp.Status = statusOK
	if resp.Checks.Metastore.Status == statusFail || resp.Checks.DataDir.Status == statusFail {
		resp.Status = statusFail
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == statusFail {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// checkDataDir проверяет, что каталог данных доступен на запись.
func (h *HealthHandler) checkDataDir() healthCheckResult {
	probe := filepath.Join(h.dataDir, ".ready_probe")

	f, err := os.Create(probe)
	if err != nil {
		return healthCheckResult{Status: statusFail, Message: "каталог данных недоступен на запись: " + err.Error()}
	}
	f.Close()
	os.Remove(probe)

	return healthCheckResult{Status: statusOK}
}

// Metrics — Prometheus метрики.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
