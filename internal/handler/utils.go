package handler

import (
	"context"
	"net/http"
	"time"

	"tush00nka/s3files/internal/pkg/httputils"
)

type PongResponse struct {
	Message string `json:"message"`
}

// Ping
// @Summary Пингануть сервер
// @Tags system
// @Produce json
// @Success 200 {object} PongResponse
// @Router /ping [get]
func Ping(w http.ResponseWriter, r *http.Request) {
	httputils.ResponseJSON(w, http.StatusOK, PongResponse{Message: "Pong"})
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Health
// @Summary Проверка доступности хранилища
// @Tags system
// @Produce json
// @Success 200 {object} PongResponse
// @Failure 503 {object} httputils.ErrorResponse
// @Router /health [get]
func Health(checkers ...HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		for _, checker := range checkers {
			if err := checker.HealthCheck(ctx); err != nil {
				httputils.ResponseError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		httputils.ResponseJSON(w, http.StatusOK, PongResponse{Message: "OK"})
	}
}
