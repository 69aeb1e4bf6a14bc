package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/bidhub/internal/api/response"
)

// Pinger is anything whose connectivity the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health checks database and cache connectivity.
func Health(db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := cache.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.JSONStatus(w, http.StatusServiceUnavailable, response.Envelope{
				Success: false,
				Message: "One or more services degraded",
				Code:    response.CodeUnavailable,
				Data:    healthStatus{Status: "degraded", Services: checks},
			})
			return
		}
		response.OK(w, "", healthStatus{Status: "ok", Services: checks})
	}
}
