package respond

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// JSON пишет data с кодом code. Ошибка кодирования уже не может изменить статус.
func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// Error отдает {"error": message}; при наличии RequestID он добавляется в тело
func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	body := map[string]string{"error": message}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		body["request_id"] = reqID
	}
	JSON(w, r, code, body)
}
