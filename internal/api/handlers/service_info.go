// service_info.go — обработчик GET /service-info.
// Отдаёт документ GA4GH service-info v1.0.0 (валидирован при старте).
package handlers

import "net/http"

// GetServiceInfo — GET /service-info.
func (h *APIHandler) GetServiceInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.serviceInfo)
}
