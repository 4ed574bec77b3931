// objects.go — обработчики /objects/{object_id}.
// GET — публичное получение DrsObject (query-параметр expand).
// POST — вариант с GA4GH Passport в теле запроса: авторизация выполняется
// до обращения к Object Store, чтобы не раскрывать факт существования
// объекта неавторизованному клиенту.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/drs-server/internal/api/errors"
	"github.com/bigkaa/drs-server/internal/auth"
	"github.com/bigkaa/drs-server/internal/service"
)

// objectPassportRequest — тело POST /objects/{object_id}.
type objectPassportRequest struct {
	Passports []string `json:"passports"`
	Expand    bool     `json:"expand"`
}

// GetObject — GET /objects/{object_id}?expand=.
func (h *APIHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")

	var expand bool
	if err := runtime.BindQueryParameter("form", true, false, "expand", r.URL.Query(), &expand); err != nil {
		apierrors.BadRequest(w, "Некорректное значение параметра expand")
		return
	}

	h.serveObject(w, r, objectID, expand)
}

// PostObject — POST /objects/{object_id}: получение объекта с passport.
// Expand берётся из тела запроса; query-параметр expand также принимается
// и имеет приоритет, если задан.
func (h *APIHandler) PostObject(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")

	var req objectPassportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.BadRequest(w, "Некорректное тело запроса")
		return
	}

	expand := req.Expand
	if r.URL.Query().Has("expand") {
		if err := runtime.BindQueryParameter("form", true, false, "expand", r.URL.Query(), &expand); err != nil {
			apierrors.BadRequest(w, "Некорректное значение параметра expand")
			return
		}
	}

	// Авторизация до обращения к Object Store
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

	h.serveObject(w, r, objectID, expand)
}

// serveObject — общая часть GET/POST: разрешение объекта и ответ.
func (h *APIHandler) serveObject(w http.ResponseWriter, r *http.Request, objectID string, expand bool) {
	obj, err := h.resolver.Resolve(r.Context(), objectID, expand)
	if err != nil {
		var cycleErr *service.CyclicBundleError
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Объект не найден")
		case errors.As(err, &cycleErr):
			apierrors.InternalError(w, "Цикл в графе bundle")
		default:
			h.logger.Error("Ошибка разрешения объекта",
				slog.String("object_id", objectID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при разрешении объекта")
		}
		return
	}

	writeJSON(w, http.StatusOK, obj)
}
