// files.go — обработчик GET /files/{object_id}: отдача байт объекта.
// Blob отдаётся через http.ServeContent (поддержка Range-запросов).
// Bundle отдаётся как zip-архив, собираемый на лету из достижимых blob.
// При включённой подписи URL запрос обязан содержать валидный токен,
// выпущенный access endpoint'ом для этого object_id.
package handlers

import (
	"archive/zip"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/drs-server/internal/api/errors"
	"github.com/bigkaa/drs-server/internal/domain/model"
	"github.com/bigkaa/drs-server/internal/filestore"
	"github.com/bigkaa/drs-server/internal/service"
)

// DownloadFile — GET /files/{object_id}.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")

	if h.verifier != nil {
		if !h.checkDownloadToken(w, r, objectID) {
			return
		}
	}

	obj, err := h.resolver.Resolve(r.Context(), objectID, true)
	if err != nil {
		var cycleErr *service.CyclicBundleError
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Объект не найден")
		case errors.As(err, &cycleErr):
			apierrors.InternalError(w, "Цикл в графе bundle")
		default:
			h.logger.Error("Ошибка разрешения объекта для скачивания",
				slog.String("object_id", objectID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при скачивании")
		}
		return
	}

	if obj.IsBundle() {
		h.serveBundleZip(w, r, obj)
		return
	}

	h.serveBlob(w, r, obj)
}

// checkDownloadToken проверяет токен подписанного URL.
// Токен принимается из query-параметра token или заголовка Authorization.
// Возвращает false, если ответ об ошибке уже записан.
func (h *APIHandler) checkDownloadToken(w http.ResponseWriter, r *http.Request, objectID string) bool {
	token := r.URL.Query().Get("token")
	if token == "" {
		auth := r.Header.Get("Authorization")
		token = strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			token = ""
		}
	}
	if token == "" {
		apierrors.Unauthorized(w, "Требуется токен подписанного URL")
		return false
	}

	tokenObjectID, err := h.verifier.Verify(token)
	if err != nil {
		apierrors.Unauthorized(w, "Невалидный или просроченный токен")
		return false
	}
	if tokenObjectID != objectID {
		apierrors.Forbidden(w, "Токен выпущен для другого объекта")
		return false
	}
	return true
}

// serveBlob отдаёт байты blob через http.ServeContent (Range, If-Modified-Since).
func (h *APIHandler) serveBlob(w http.ResponseWriter, r *http.Request, obj *model.DrsObject) {
	f, info, err := h.files.Open(obj.ID)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) || errors.Is(err, filestore.ErrInvalidName) {
			apierrors.NotFound(w, "Файл объекта не найден")
			return
		}
		h.logger.Error("Ошибка открытия файла объекта",
			slog.String("object_id", obj.ID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при чтении файла")
		return
	}
	defer f.Close()

	if obj.MimeType != "" {
		w.Header().Set("Content-Type", obj.MimeType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+obj.Name+`"`)

	http.ServeContent(w, r, obj.Name, info.ModTime(), f)
}

// serveBundleZip собирает zip-архив из достижимых blob bundle на лету.
// Объект уже раскрыт (expand=true): reference-only записи пропускаются,
// каждый blob попадает в архив под своим именем внутри bundle.
func (h *APIHandler) serveBundleZip(w http.ResponseWriter, _ *http.Request, obj *model.DrsObject) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+obj.Name+`.zip"`)
	w.WriteHeader(http.StatusOK)

	zw := zip.NewWriter(w)
	for _, entry := range obj.Contents {
		if entry.ID == "" {
			continue
		}

		f, _, err := h.files.Open(entry.ID)
		if err != nil {
			// Заголовки уже отправлены — запись пропускается, архив
			// остаётся валидным для остальных файлов
			h.logger.Warn("Файл записи bundle недоступен, пропуск",
				slog.String("bundle_id", obj.ID),
				slog.String("object_id", entry.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		fw, err := zw.Create(name)
		if err == nil {
			_, err = io.Copy(fw, f)
		}
		_ = f.Close()
		if err != nil {
			h.logger.Error("Ошибка записи в zip-архив bundle",
				slog.String("bundle_id", obj.ID),
				slog.String("object_id", entry.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	if err := zw.Close(); err != nil {
		h.logger.Error("Ошибка завершения zip-архива bundle",
			slog.String("bundle_id", obj.ID),
			slog.String("error", err.Error()),
		)
	}
}
