// access.go — обработчики /objects/{object_id}/access/{access_id}.
// Обмен access_id на AccessURL (подписанный URL + заголовки).
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/drs-server/internal/api/errors"
	"github.com/bigkaa/drs-server/internal/auth"
	"github.com/bigkaa/drs-server/internal/service"
)

// accessPassportRequest — тело POST /objects/{object_id}/access/{access_id}.
type accessPassportRequest struct {
	Passports []string `json:"passports"`
}

// GetAccessURL — GET /objects/{object_id}/access/{access_id}.
func (h *APIHandler) GetAccessURL(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")
	accessID := chi.URLParam(r, "access_id")

	h.serveAccessURL(w, r, objectID, accessID)
}

// PostAccessURL — POST /objects/{object_id}/access/{access_id} с passport.
// Авторизация выполняется до разрешения access method.
func (h *APIHandler) PostAccessURL(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")
	accessID := chi.URLParam(r, "access_id")

	var req accessPassportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "Некорректное тело запроса")
		return
	}

	if err := h.validator.Validate(r.Context(), req.Passports); err != nil {
		if errors.Is(err, auth.ErrDenied) {
			apierrors.Unauthorized(w, "Клиент не авторизован для доступа к объекту")
			return
		}
		h.logger.Error("Ошибка валидации passport",
			slog.String("object_id", objectID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при проверке passport")
		return
	}

	h.serveAccessURL(w, r, objectID, accessID)
}

// serveAccessURL — общая часть GET/POST: обмен access_id на URL.
func (h *APIHandler) serveAccessURL(w http.ResponseWriter, r *http.Request, objectID, accessID string) {
	accessURL, err := h.access.ResolveAccess(r.Context(), objectID, accessID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Объект или access method не найден")
			return
		}
		h.logger.Error("Ошибка разрешения access method",
			slog.String("object_id", objectID),
			slog.String("access_id", accessID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при разрешении access method")
		return
	}

	writeJSON(w, http.StatusOK, accessURL)
}
