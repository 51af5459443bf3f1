// Package api implements the HTTP surface described by spec §6.2 beyond
// /metrics: the /health liveness contract.
package api

import (
	"encoding/json"
	"net/http"

	"mikrotik-exporter/internal/config"
	"mikrotik-exporter/internal/pool"
)

// RouterHealth is one element of the /health response body.
type RouterHealth struct {
	Name              string `json:"name"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

// HealthResponse is the full /health JSON body (spec §6.2).
type HealthResponse struct {
	Status  string         `json:"status"`
	Routers []RouterHealth `json:"routers"`
}

// HealthHandler reports 200/"healthy" when every router has zero
// consecutive errors, otherwise 503 with the same schema.
func HealthHandler(routers []config.RouterSpec, p *pool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy"}
		healthy := true

		for _, router := range routers {
			errs := p.ConsecutiveErrors(router.Name)
			if errs != 0 {
				healthy = false
			}

			resp.Routers = append(resp.Routers, RouterHealth{Name: router.Name, ConsecutiveErrors: errs})
		}

		w.Header().Set("Content-Type", "application/json")

		if !healthy {
			resp.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(resp)
	}
}
