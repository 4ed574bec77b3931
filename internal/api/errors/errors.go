// Пакет errors — конструкторы стандартных ошибок в формате DRS.
// Единый формат по спецификации GA4GH: {"msg": "...", "status_code": N}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// errorBody — структура тела ответа ошибки DRS.
type errorBody struct {
	Msg        string `json:"msg"`
	StatusCode int    `json:"status_code"`
}

// WriteError записывает ответ ошибки в формате DRS.
// statusCode дублируется в теле ответа (поле status_code).
func WriteError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Msg:        msg,
		StatusCode: statusCode,
	})
}

// --- Конструкторы для типичных ошибок ---

// BadRequest — 400 некорректные входные данные.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, msg)
}

// Unauthorized — 401 клиент не авторизован для объекта.
func Unauthorized(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusUnauthorized, msg)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusForbidden, msg)
}

// NotFound — 404 объект или access method не найден.
func NotFound(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusNotFound, msg)
}

// InternalError — 500 внутренняя ошибка (в том числе цикл в графе bundle).
func InternalError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusInternalServerError, msg)
}
