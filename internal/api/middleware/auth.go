package middleware

import (
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
)

// Auth проверяет наличие заголовка X-User-ID
// Сервис доверяет API-гейтвею: заголовок проставляется после аутентификации,
// здесь проверяется только его наличие
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-ID") == "" {
			handlers.RespondError(w, http.StatusUnauthorized, "заголовок X-User-ID обязателен")
			return
		}

		next.ServeHTTP(w, r)
	})
}
