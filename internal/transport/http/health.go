package http

import "net/http"

// HealthHandler reports process liveness. It says nothing about the
// database or the broker.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
