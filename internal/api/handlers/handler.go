// handler.go — основной обработчик API DRS-сервера.
// Объединяет health и бизнес-обработчики, регистрирует маршруты chi.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/drs-server/internal/auth"
	"github.com/bigkaa/drs-server/internal/domain/model"
	"github.com/bigkaa/drs-server/internal/filestore"
	"github.com/bigkaa/drs-server/internal/service"
)

// TokenVerifier — проверка токена подписанного URL скачивания.
// Verify возвращает object_id, для которого токен был выпущен.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// APIHandler — основной обработчик API DRS-сервера.
// Делегирует запросы в сервисный слой (Resolver, Access Resolver).
type APIHandler struct {
	resolver    *service.ResolverService
	access      *service.AccessService
	validator   auth.Validator
	serviceInfo *model.ServiceInfo
	files       *filestore.Store
	verifier    TokenVerifier
	openAPIJSON []byte
	health      *HealthHandler
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// files — файловое хранилище endpoint'а скачивания (nil — endpoint отключён).
// verifier — проверка токенов подписанных URL (nil — скачивание без токена).
// openAPIJSON — OpenAPI контракт для /openapi.json (nil — endpoint отключён).
func NewAPIHandler(
	resolver *service.ResolverService,
	access *service.AccessService,
	validator auth.Validator,
	serviceInfo *model.ServiceInfo,
	files *filestore.Store,
	verifier TokenVerifier,
	openAPIJSON []byte,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		resolver:    resolver,
		access:      access,
		validator:   validator,
		serviceInfo: serviceInfo,
		files:       files,
		verifier:    verifier,
		openAPIJSON: openAPIJSON,
		health:      health,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// RegisterRoutes регистрирует все маршруты DRS API на роутере chi.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/service-info", h.GetServiceInfo)

	r.Get("/objects/{object_id}", h.GetObject)
	r.Post("/objects/{object_id}", h.PostObject)
	r.Get("/objects/{object_id}/access/{access_id}", h.GetAccessURL)
	r.Post("/objects/{object_id}/access/{access_id}", h.PostAccessURL)

	if h.files != nil {
		r.Get("/files/{object_id}", h.DownloadFile)
	}
	if h.openAPIJSON != nil {
		r.Get("/openapi.json", h.GetOpenAPI)
	}

	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)
}

// GetOpenAPI — GET /openapi.json: отдаёт OpenAPI контракт сервиса.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openAPIJSON)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
