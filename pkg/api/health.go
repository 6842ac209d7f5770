package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Gateway/Resource Service"

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "healthy", Service: ServiceName})
}
