package httpapi

import (
	"net/http"
)

// NewMux returns a mux with GET /healthz backed by checks. Feature modules
// register their own routes on it.
func NewMux(checks map[string]HealthCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz(checks))
	return mux
}
